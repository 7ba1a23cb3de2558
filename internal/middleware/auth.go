package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SubjectKey is the gin context key holding the authenticated subject
const SubjectKey = "auth.subject"

// TokenVerifier validates an access token and returns its subject
type TokenVerifier interface {
	Verify(accessToken string) (string, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" access
// token with 401 and stores the token subject under SubjectKey
func BearerAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		subject, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}
		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// Subject returns the authenticated subject of the request
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}
