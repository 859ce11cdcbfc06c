// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyByIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain uses last hop", map[string]string{"X-Forwarded-For": "10.0.0.1, 203.0.113.7"}, "192.0.2.1:4000", "ip:203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "192.0.2.1:4000", "ip:198.51.100.2"},
		{"remote addr", nil, "192.0.2.1:4000", "ip:192.0.2.1"},
		{"remote addr without port", nil, "192.0.2.1", "ip:192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, KeyByIP(req))
		})
	}
}

func TestKeyByAccountAndRoute(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/leads", nil)
	req.RemoteAddr = "192.0.2.1:4000"

	assert.Equal(t, "ip:192.0.2.1", KeyByAccount(req))
	assert.Equal(t, "ip:192.0.2.1:route:/v1/leads", KeyByIPAndRoute(req))

	req = req.WithContext(WithClaims(req.Context(), &AccessTokenClaims{AccountID: "acct-1"}))
	assert.Equal(t, "account:acct-1", KeyByAccount(req))
}

func TestLocalLimiter(t *testing.T) {
	l := newLocalLimiter()
	limit := PerHour(2, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for range 2 {
		res, err := l.allow("k", limit, now)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Allowed)
	}

	res, err := l.allow("k", limit, now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Allowed)
	assert.Equal(t, 30*time.Minute, res.RetryAfter)

	res, err = l.allow("other", limit, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed, "keys are limited independently")

	res, err = l.allow("k", limit, now.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allowed, "bucket refills over the period")
}

func TestLocalLimiterPrunesIdleKeys(t *testing.T) {
	l := newLocalLimiter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := l.allow("idle", PerMinute(10, 10), now)
	require.NoError(t, err)
	_, err = l.allow("fresh", PerMinute(10, 10), now.Add(3*time.Hour))
	require.NoError(t, err)

	assert.NotContains(t, l.entries, "idle")
	assert.Contains(t, l.entries, "fresh")
}

func TestLocalLimiterRejectsZeroRate(t *testing.T) {
	_, err := newLocalLimiter().allow("k", PerMinute(0, 1), time.Now())
	assert.Error(t, err)
}

func TestRateLimiterFallsBackWhenRedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRateLimiter(rdb, RateLimitConfig{Name: "intake", Limit: PerHour(1, 1)})
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/leads", nil)
		req.RemoteAddr = "192.0.2.55:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := send()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "RATE_LIMITED")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}
