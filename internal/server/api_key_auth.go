package server

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	apikeydomain "github.com/loyaltyworks/tally/internal/apikey/domain"
)

const (
	contextAuthTypeKey = "auth_type"
	contextAPIKeyIDKey = "api_key_id"
)

// APIKeyRequired authenticates requests with a bearer API key. Identity is
// derived solely from the api_keys table.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		hash := apikeydomain.HashAPIKey(parts[1])
		record, err := s.apiKeys.FindActiveByHash(c.Request.Context(), s.db, hash)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if record == nil || subtle.ConstantTimeCompare([]byte(record.KeyHash), []byte(hash)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		ctx = context.WithValue(ctx, contextAuthTypeKey, "api_key")
		ctx = context.WithValue(ctx, contextAPIKeyIDKey, int64(record.ID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
