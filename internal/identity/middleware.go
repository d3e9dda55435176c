package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxOperatorClaims = "operator_claims"

// RequireOperator returns a Gin middleware that enforces a valid operator
// Bearer token.
//
// On success it injects the *OperatorClaims into the context under the
// "operator_claims" key.
func RequireOperator(tokens *OperatorTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer operator token required",
				"code":  "Unauthenticated",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid operator token: " + err.Error(),
				"code":  "Unauthenticated",
			})
			return
		}

		c.Set(ctxOperatorClaims, claims)
		c.Next()
	}
}

// ClaimsFromCtx retrieves the operator claims injected by RequireOperator.
// Returns nil if no token is present in the context.
func ClaimsFromCtx(c *gin.Context) *OperatorClaims {
	v, _ := c.Get(ctxOperatorClaims)
	claims, _ := v.(*OperatorClaims)
	return claims
}
