package adminauth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(secret, zap.NewNop()))
	router.POST("/admin/trips", func(c *gin.Context) {
		actor, _ := c.Get(ActorUserIDKey)
		c.JSON(http.StatusOK, gin.H{"actor": actor})
	})
	return router
}

func TestMiddleware_ValidSignatureReachesHandler(t *testing.T) {
	secret := "shared-secret"
	router := newTestRouter(secret)

	now := time.Now().UTC()
	body := []byte(`{"foo":"bar"}`)
	bodyHash := ComputeBodyHash(body)
	timestamp := timeToStr(now.Unix())
	signature := sign(secret, "POST", "/admin/trips", "", timestamp, "user-1", bodyHash)

	req := httptest.NewRequest(http.MethodPost, "/admin/trips", strings.NewReader(string(body)))
	req.Header.Set("X-Admin-Signature", signature)
	req.Header.Set("X-Admin-Timestamp", timestamp)
	req.Header.Set("X-Admin-User-Id", "user-1")
	req.Header.Set("X-Admin-Body-Hash", bodyHash)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "user-1")
}

func TestMiddleware_MissingSignatureRejected(t *testing.T) {
	router := newTestRouter("shared-secret")

	req := httptest.NewRequest(http.MethodPost, "/admin/trips", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_TamperedBodyRejected(t *testing.T) {
	secret := "shared-secret"
	router := newTestRouter(secret)

	now := time.Now().UTC()
	signedBody := []byte(`{"foo":"bar"}`)
	bodyHash := ComputeBodyHash(signedBody)
	timestamp := timeToStr(now.Unix())
	signature := sign(secret, "POST", "/admin/trips", "", timestamp, "user-1", bodyHash)

	// Send a different body than what was signed.
	req := httptest.NewRequest(http.MethodPost, "/admin/trips", strings.NewReader(`{"foo":"tampered"}`))
	req.Header.Set("X-Admin-Signature", signature)
	req.Header.Set("X-Admin-Timestamp", timestamp)
	req.Header.Set("X-Admin-User-Id", "user-1")
	req.Header.Set("X-Admin-Body-Hash", bodyHash)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
