package adminauth

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iaros/itinerary_core/internal/apperr"
)

// ActorUserIDKey is the gin context key the verified actor ID is stored
// under after Middleware succeeds.
const ActorUserIDKey = "admin_actor_user_id"

// Middleware builds a gin handler that verifies the HMAC signature on
// every request under /admin/*, aborting with 401/503 on any failure.
// It reads and restores the raw body so downstream handlers can still
// bind it.
func Middleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		req := Request{
			Method:          c.Request.Method,
			Path:            c.Request.URL.Path,
			RawQuery:        c.Request.URL.RawQuery,
			Body:            body,
			Signature:       c.GetHeader("X-Admin-Signature"),
			TimestampHeader: c.GetHeader("X-Admin-Timestamp"),
			UserID:          c.GetHeader("X-Admin-User-Id"),
			BodyHashHeader:  c.GetHeader("X-Admin-Body-Hash"),
		}

		actorUserID, err := VerifyRequest(secret, req, time.Now().UTC())
		if err != nil {
			status := http.StatusUnauthorized
			if apperr.Is(err, apperr.KindUpstream) {
				status = http.StatusServiceUnavailable
			}
			logger.Warn("admin HMAC verification failed",
				zap.Error(err), zap.String("path", req.Path), zap.String("method", req.Method))
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}

		c.Set(ActorUserIDKey, actorUserID)
		c.Next()
	}
}
