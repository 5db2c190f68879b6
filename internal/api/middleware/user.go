package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
)

// UserHeader carries the caller's user id. Authentication happens upstream.
const UserHeader = "X-User-ID"

const userIDKey = "user_id"

// RequireUser rejects requests without a user id and stores it on the context.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewAPIError(dto.ErrCodeUnauthorized, "missing "+UserHeader+" header"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the user id set by RequireUser, or "".
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
