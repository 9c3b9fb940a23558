package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/deifi86/TeamChat/internal/session"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, session.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	store := session.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	r := gin.New()
	r.Use(AuthMiddleware(store))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("userID")})
	})
	return r, store
}

func TestAuthMiddlewareAcceptsAnyBearerCasing(t *testing.T) {
	router, store := setupAuthRouter(t)
	require.NoError(t, store.Save(context.Background(), "tok-1", 7, time.Minute))

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", scheme+" tok-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, "scheme %q", scheme)
		require.Contains(t, rec.Body.String(), `"user_id":7`)
	}
}

func TestAuthMiddlewareQueryTokenFallback(t *testing.T) {
	router, store := setupAuthRouter(t)
	require.NoError(t, store.Save(context.Background(), "tok-2", 9, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/whoami?token=tok-2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"user_id":9`)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	router, store := setupAuthRouter(t)
	require.NoError(t, store.Save(context.Background(), "tok-3", 5, time.Minute))

	for _, header := range []string{"tok-3", "Basic tok-3", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}
