package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/akshayrajeevnambiar/Pantrypal/pkg/auth"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/errors"
)

// ContextKeyClaims is the Gin context key holding the verified token claims
const ContextKeyClaims = "authClaims"

// RequireAuth middleware verifies the bearer token and stores its claims in
// the request context. Requests without a valid token are rejected with 401.
func RequireAuth(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			AbortWithAppError(c, errors.ErrUnauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			AbortWithAppError(c, errors.ErrUnauthorized("invalid authorization header"))
			return
		}

		claims, err := issuer.Verify(parts[1])
		if err != nil {
			AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClaims extracts the verified claims set by RequireAuth
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := val.(*auth.Claims)
	return claims, ok
}
