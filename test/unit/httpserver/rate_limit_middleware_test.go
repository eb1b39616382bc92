package httpserver_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	impl "github.com/perchnet/user-service/internal/application/services"
	"github.com/perchnet/user-service/internal/infrastructure/httpserver/middleware"
	"github.com/perchnet/user-service/test/mocks"
)

func newLimitedEcho(t *testing.T, store *mocks.MemoryStore) *echo.Echo {
	t.Helper()
	limiter := impl.NewRateLimitService(store, nil, nil)
	rl := middleware.NewRateLimitMiddleware(limiter, nil)

	e := echo.New()
	e.Use(rl.Handler())
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/api/v1/profiles/:username", ok)
	e.POST("/api/v1/auth/login", ok)
	e.GET("/health", ok)
	return e
}

func doRequest(e *echo.Echo, method, path, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.10:52100"
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_LoginBudgetEnforced(t *testing.T) {
	e := newLimitedEcho(t, mocks.NewMemoryStore())

	for i := 1; i <= 5; i++ {
		rec := doRequest(e, http.MethodPost, "/api/v1/auth/login", "")
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d should pass", i)
		require.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, strconv.Itoa(5-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := doRequest(e, http.MethodPost, "/api/v1/auth/login", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Rate limit exceeded", body["error"])
	require.Contains(t, body["message"], "Too many requests")
}

func TestRateLimit_ResetHeaderIsEpochInFuture(t *testing.T) {
	e := newLimitedEcho(t, mocks.NewMemoryStore())

	rec := doRequest(e, http.MethodGet, "/api/v1/profiles/alice", "")
	require.Equal(t, http.StatusOK, rec.Code)

	reset, err := strconv.ParseInt(rec.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err)
	require.Greater(t, reset, int64(0))
}

func TestRateLimit_HealthIsNeverLimited(t *testing.T) {
	e := newLimitedEcho(t, mocks.NewMemoryStore())

	for i := 0; i < 200; i++ {
		rec := doRequest(e, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("X-RateLimit-Limit"), "skipped paths get no limit headers")
	}
}

func TestRateLimit_ForwardedClientsAreIsolated(t *testing.T) {
	e := newLimitedEcho(t, mocks.NewMemoryStore())

	// Exhaust the login budget for one forwarded client.
	for i := 0; i < 5; i++ {
		rec := doRequest(e, http.MethodPost, "/api/v1/auth/login", "203.0.113.5, 10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := doRequest(e, http.MethodPost, "/api/v1/auth/login", "203.0.113.5, 10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different first hop is a different identity.
	rec = doRequest(e, http.MethodPost, "/api/v1/auth/login", "203.0.113.99")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_FailsOpenOnStoreOutage(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.GetErr = errors.New("connection refused")
	e := newLimitedEcho(t, store)

	for i := 0; i < 20; i++ {
		rec := doRequest(e, http.MethodPost, "/api/v1/auth/login", "")
		require.Equal(t, http.StatusOK, rec.Code, "a store outage must not deny traffic")
	}
}

func TestRateLimit_ReadAndWriteClassesDiffer(t *testing.T) {
	e := newLimitedEcho(t, mocks.NewMemoryStore())

	readRec := doRequest(e, http.MethodGet, "/api/v1/profiles/alice", "")
	require.Equal(t, "100", readRec.Header().Get("X-RateLimit-Limit"))

	loginRec := doRequest(e, http.MethodPost, "/api/v1/auth/login", "")
	require.Equal(t, "5", loginRec.Header().Get("X-RateLimit-Limit"))
}
