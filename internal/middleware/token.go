package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/auth"
	"github.com/team-telnyx/telnyx-meet-sub000/pkg/response"
)

// ContextKeyClaims is where validated room claims land on the gin context.
const ContextKeyClaims = "room_claims"

// RequireRoomToken validates the Bearer access token and stores its claims.
func RequireRoomToken(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "bearer token required")
			c.Abort()
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// ClaimsFrom returns the validated claims set by RequireRoomToken.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}
