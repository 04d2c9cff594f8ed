package middleware

import (
	"net/http"

	"github.com/eduverge/eduverge-backend/internal/response"
	"github.com/eduverge/eduverge-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// CheckSingleDeviceLogin validates the JWT's JTI against the active login
// session in Redis. If the JTI doesn't match, the request is rejected (the
// student logged in elsewhere or the session was reset).
func CheckSingleDeviceLogin(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for student tokens.
		if claims.TokenType != service.TokenTypeStudent {
			c.Next()
			return
		}

		if err := authService.ValidateStudentLogin(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
