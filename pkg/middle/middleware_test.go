package middle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		assert.NotNil(t, Logger(r.Context(), nil))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, strings.HasPrefix(seen, "req-"))
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "from-proxy")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "from-proxy", seen)

	assert.Empty(t, RequestID(context.Background()))
}

func TestLoggingRecoversPanic(t *testing.T) {
	h := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vsearch/vog", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIP(req, true))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", ClientIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req, true))

	// headers are ignored unless a proxy is trusted
	assert.Equal(t, "192.0.2.10", ClientIP(req, false))
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(1, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
	}
	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfter)

	// other clients have their own bucket
	d, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	assert.Equal(t, 0, l.Cleanup(time.Hour))
	// a negative idle time drops everyone
	assert.Equal(t, 2, l.Cleanup(-time.Minute))
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimitMiddleware(NewLocalLimiter(9, 2), false, zap.NewNop())(http.HandlerFunc(ok))

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/vsearch/species", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("192.0.2.1").Code)
	rec := do("192.0.2.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))

	rec = do("192.0.2.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")

	assert.Equal(t, http.StatusOK, do("192.0.2.2").Code)
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	do := func(h http.Handler, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/vsearch/species", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := RateLimitMiddleware(NewLocalLimiter(1, 1), false, zap.NewNop())(http.HandlerFunc(ok))
	assert.Equal(t, http.StatusOK, do(direct, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, do(direct, "203.0.113.2"))

	proxied := RateLimitMiddleware(NewLocalLimiter(1, 1), true, zap.NewNop())(http.HandlerFunc(ok))
	assert.Equal(t, http.StatusOK, do(proxied, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, do(proxied, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, do(proxied, "203.0.113.2"))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLimiter(t *testing.T) {
	mr, client := newRedis(t)
	l := NewRedisLimiter(client, 2, "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "ip:192.0.2.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	assert.True(t, mr.Exists("vogdb:ratelimit:ip:192.0.2.1"))
	assert.Equal(t, time.Second, mr.TTL("vogdb:ratelimit:ip:192.0.2.1"))

	d, err := l.Allow(ctx, "ip:192.0.2.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// the window expires
	mr.FastForward(time.Second)
	d, err = l.Allow(ctx, "ip:192.0.2.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	require.NoError(t, l.Reset(ctx, "ip:192.0.2.1"))
	assert.False(t, mr.Exists("vogdb:ratelimit:ip:192.0.2.1"))
}

func TestRedisLimiterFailsOpen(t *testing.T) {
	mr, client := newRedis(t)
	h := RateLimitMiddleware(NewRedisLimiter(client, 1, ""), false, zap.NewNop())(http.HandlerFunc(ok))
	mr.Close()

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/vplain/vog/hmm/{id}", ok)

	for _, id := range []string{"VOG00001", "VOG00002"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/vplain/vog/hmm/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/vplain/vog/hmm/{id}", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestsTotal))
}
