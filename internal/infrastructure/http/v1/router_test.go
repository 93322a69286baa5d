package v1_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowvault/internal/domain/account"
	"flowvault/internal/domain/distribution"
	"flowvault/internal/domain/ledger"
	"flowvault/internal/domain/projection"
	"flowvault/internal/domain/reconciliation"
	"flowvault/internal/domain/transfer"
	v1 "flowvault/internal/infrastructure/http/v1"
	"flowvault/internal/infrastructure/storage/memory"
	"flowvault/pkg/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	store := memory.NewStore()
	accounts := memory.NewAccountRepo(store)
	movements := memory.NewMovementRepo(store)
	txm := memory.NewTxManager(store)
	gates := account.NewGates()
	registry := account.NewRegistry(accounts, movements, txm, gates)

	rules, err := distribution.ParseRules("boveda_monte:63,fletes:5,utilidades:32")
	require.NoError(t, err)

	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	return v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		Registry:       registry,
		Ledger:         ledger.NewService(movements),
		Projector:      projection.NewProjector(accounts, movements, txm),
		Engine:         distribution.NewEngine(registry, memory.NewBatchRepo(store), rules),
		Transfers:      transfer.NewService(registry, memory.NewTransferRepo(store)),
		Reconciliation: reconciliation.NewService(accounts, movements, memory.NewCorteRepo(store), txm, gates),
	})
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func createAccount(t *testing.T, router *gin.Engine, code, currency, kind string) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/accounts", gin.H{
		"code": code, "name": code, "currency": currency, "kind": kind,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccountLifecycle(t *testing.T) {
	router := newTestRouter(t)

	accID := createAccount(t, router, "azteca", "MXN", "operational")

	w := doJSON(t, router, http.MethodGet, "/api/v1/accounts/"+accID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var acc struct {
		Code    string `json:"code"`
		Balance string `json:"balance"`
	}
	decode(t, w, &acc)
	assert.Equal(t, "azteca", acc.Code)
	assert.Equal(t, "0", acc.Balance)

	w = doJSON(t, router, http.MethodGet, "/api/v1/accounts/by-code/azteca", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Duplicate code is rejected with the structured error shape.
	w = doJSON(t, router, http.MethodPost, "/api/v1/accounts", gin.H{
		"code": "azteca", "name": "other", "currency": "MXN", "kind": "operational",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	var errResp struct {
		Code string `json:"code"`
	}
	decode(t, w, &errResp)
	assert.Equal(t, "DUPLICATE_ENTRY", errResp.Code)
}

func TestIncomeExpenseAndBalance(t *testing.T) {
	router := newTestRouter(t)
	accID := createAccount(t, router, "azteca", "MXN", "operational")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/incomes", accID), gin.H{
		"amount": "1000", "concept": "venta",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/expenses", accID), gin.H{
		"amount": "250.50", "concept": "gasolina", "category": "combustible",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/balance?verify=true", accID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bal struct {
		Cached     string `json:"cached"`
		Recomputed string `json:"recomputed"`
		InSync     *bool  `json:"inSync"`
	}
	decode(t, w, &bal)
	assert.Equal(t, "749.5", bal.Cached)
	assert.Equal(t, "749.5", bal.Recomputed)
	require.NotNil(t, bal.InSync)
	assert.True(t, *bal.InSync)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/movements", accID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 2, list.Count)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/turnover", accID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var turnover struct {
		Credits string `json:"credits"`
		Debits  string `json:"debits"`
		Net     string `json:"net"`
	}
	decode(t, w, &turnover)
	assert.Equal(t, "1000", turnover.Credits)
	assert.Equal(t, "250.5", turnover.Debits)
	assert.Equal(t, "749.5", turnover.Net)
}

func TestExpenseInsufficientFundsHTTP(t *testing.T) {
	router := newTestRouter(t)
	accID := createAccount(t, router, "azteca", "MXN", "operational")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/expenses", accID), gin.H{
		"amount": "10", "concept": "overdraw",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var errResp struct {
		Code string `json:"code"`
	}
	decode(t, w, &errResp)
	assert.Equal(t, "INSUFFICIENT_FUNDS", errResp.Code)
}

func TestDistributeEndpoint(t *testing.T) {
	router := newTestRouter(t)
	createAccount(t, router, "boveda_monte", "MXN", "vault")
	createAccount(t, router, "fletes", "MXN", "vault")
	createAccount(t, router, "utilidades", "MXN", "vault")

	w := doJSON(t, router, http.MethodPost, "/api/v1/distributions", gin.H{
		"sourceAmount": "10000", "currency": "MXN", "sourceRef": "pago-123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var batch struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Splits []struct {
			Amount string `json:"amount"`
		} `json:"splits"`
	}
	decode(t, w, &batch)
	assert.Equal(t, "committed", batch.Status)
	require.Len(t, batch.Splits, 3)
	assert.Equal(t, "6300", batch.Splits[0].Amount)
	assert.Equal(t, "500", batch.Splits[1].Amount)
	assert.Equal(t, "3200", batch.Splits[2].Amount)

	w = doJSON(t, router, http.MethodGet, "/api/v1/distributions/"+batch.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransferEndpoint(t *testing.T) {
	router := newTestRouter(t)
	originID := createAccount(t, router, "azteca", "MXN", "operational")
	destID := createAccount(t, router, "leftie", "MXN", "operational")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/incomes", originID), gin.H{
		"amount": "500", "concept": "funding",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/transfers", gin.H{
		"originAccountId": originID,
		"destAccountId":   destID,
		"amount":          "200",
		"concept":         "reposición",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tr struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &tr)
	assert.Equal(t, "completed", tr.Status)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/transfers", destID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)
}

func TestCorteEndpoint(t *testing.T) {
	router := newTestRouter(t)
	accID := createAccount(t, router, "boveda_monte", "MXN", "vault")

	w := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/incomes", accID), gin.H{
		"amount": "1000", "concept": "ingreso",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/accounts/%s/cortes", accID), gin.H{
		"periodEnd":     time.Now().UTC().Format(time.RFC3339Nano),
		"actualBalance": "990",
		"notes":         "faltante",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var corte struct {
		ID             string `json:"id"`
		Discrepancy    string `json:"discrepancy"`
		HasDiscrepancy bool   `json:"hasDiscrepancy"`
	}
	decode(t, w, &corte)
	assert.True(t, corte.HasDiscrepancy)
	assert.Equal(t, "-10", corte.Discrepancy)

	w = doJSON(t, router, http.MethodGet, "/api/v1/cortes/"+corte.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/cortes", accID), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownAccountReturns404(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/api/v1/accounts/0190e3a1-0000-7000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
