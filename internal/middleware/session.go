package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
)

// ContextKeySession is the Gin context key for the caller's loaded session.
const ContextKeySession = "session"

// LoadSession resolves the token's session. A token whose session was removed
// together with its exam is rejected. Must run after RequireSessionToken.
func LoadSession(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		session, err := sessions.GetByID(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
		if session.StudentID != claims.StudentID || session.ExamID != claims.ExamID {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Set(ContextKeySession, session)
		c.Next()
	}
}

// GetSession retrieves the session loaded by LoadSession.
func GetSession(c *gin.Context) *model.Session {
	val, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	session, _ := val.(*model.Session)
	return session
}
