package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowvault/internal/core/apperror"
	"flowvault/internal/core/types"
)

func TestParseRules(t *testing.T) {
	rs, err := ParseRules("boveda_monte:63,fletes:5,utilidades:32")
	require.NoError(t, err)

	rules := rs.Rules()
	require.Len(t, rules, 3)
	assert.Equal(t, "boveda_monte", rules[0].AccountCode)
	assert.True(t, rules[0].Percent.Equal(types.MustMoney("63")))
	assert.Equal(t, "utilidades", rules[2].AccountCode)
	assert.True(t, rules[2].Percent.Equal(types.MustMoney("32")))
}

func TestParseRulesFractionalPercentages(t *testing.T) {
	rs, err := ParseRules("a:33.33,b:33.33,c:33.34")
	require.NoError(t, err)
	assert.Len(t, rs.Rules(), 3)
}

func TestParseRulesMalformed(t *testing.T) {
	_, err := ParseRules("boveda_monte=63")
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidSplitConfig, appErr.Code)
}

func TestNewRuleSetValidation(t *testing.T) {
	tests := []struct {
		name  string
		rules []SplitRule
	}{
		{"empty", nil},
		{"sum below 100", []SplitRule{
			{AccountCode: "a", Percent: types.MustMoney("60")},
			{AccountCode: "b", Percent: types.MustMoney("30")},
		}},
		{"sum above 100", []SplitRule{
			{AccountCode: "a", Percent: types.MustMoney("63")},
			{AccountCode: "b", Percent: types.MustMoney("38")},
		}},
		{"duplicate account", []SplitRule{
			{AccountCode: "a", Percent: types.MustMoney("50")},
			{AccountCode: "a", Percent: types.MustMoney("50")},
		}},
		{"zero percent", []SplitRule{
			{AccountCode: "a", Percent: types.MustMoney("0")},
			{AccountCode: "b", Percent: types.MustMoney("100")},
		}},
		{"negative percent", []SplitRule{
			{AccountCode: "a", Percent: types.MustMoney("-10")},
			{AccountCode: "b", Percent: types.MustMoney("110")},
		}},
		{"missing code", []SplitRule{
			{AccountCode: "", Percent: types.MustMoney("100")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleSet(tt.rules)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeInvalidSplitConfig, appErr.Code)
		})
	}
}

func TestRuleSetCopySemantics(t *testing.T) {
	src := []SplitRule{
		{AccountCode: "a", Percent: types.MustMoney("40")},
		{AccountCode: "b", Percent: types.MustMoney("60")},
	}
	rs, err := NewRuleSet(src)
	require.NoError(t, err)

	// Mutating the input or the returned copy must not affect the set.
	src[0].AccountCode = "mutated"
	got := rs.Rules()
	got[1].AccountCode = "also mutated"

	fresh := rs.Rules()
	assert.Equal(t, "a", fresh[0].AccountCode)
	assert.Equal(t, "b", fresh[1].AccountCode)
}
