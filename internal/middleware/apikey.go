package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"selfserve-api/internal/service"
)

// APIKeyValidator authenticates requests carrying an X-API-Key header.
// Requests without the header pass through untouched; bearer-token auth
// handles those.
func APIKeyValidator(apiKeyService *service.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKeyHeader := c.GetHeader("X-API-Key")

		if apiKeyHeader == "" {
			c.Next()
			return
		}

		apiKeyHeader = strings.TrimSpace(apiKeyHeader)

		ctx := c.Request.Context()
		apiKey, err := apiKeyService.Validate(ctx, apiKeyHeader)

		if err != nil || apiKey == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid API key",
			})
			c.Abort()
			return
		}

		c.Set("user_id", apiKey.UserID.String())
		c.Set("org_id", apiKey.OrganizationID.String())
		c.Set("api_key_id", apiKey.ID)

		go apiKeyService.UpdateLastUsed(ctx, apiKey.ID)

		c.Next()
	}
}
