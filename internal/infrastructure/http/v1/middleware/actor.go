package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "flowvault/internal/core/context"
)

// HeaderActor carries the caller identity used for movement audit fields.
const HeaderActor = "X-Actor"

// Actor middleware captures the caller identity from the X-Actor header.
// The ledger records it on every movement; absent header falls back to
// "system".
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.GetHeader(HeaderActor)
		if name == "" {
			name = "system"
		}

		ctx := appctx.WithActor(c.Request.Context(), &appctx.ActorContext{
			ActorID: name,
			Name:    name,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor", name)

		c.Next()
	}
}
