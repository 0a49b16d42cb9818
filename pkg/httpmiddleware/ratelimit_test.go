package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func post(h http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestLimiter_OverLimit(t *testing.T) {
	clock := newClock()
	h := NewLimiter(RateLimitConfig{Max: 2, Window: time.Minute, Now: clock.Now}).Middleware()(okHandler())

	first := post(h, "10.0.0.1:9999")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	require.Equal(t, http.StatusOK, post(h, "10.0.0.1:9999").Code)

	w := post(h, "10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	var (
		success = true
		msg     string
	)
	require.NoError(t, jx.DecodeBytes(w.Body.Bytes()).ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "success":
			success, err = d.Bool()
		case "error":
			msg, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}))
	assert.False(t, success)
	assert.NotEmpty(t, msg)

	assert.Equal(t, http.StatusOK, post(h, "10.0.0.2:1234").Code, "clients are independent")
}

func TestLimiter_Sliding(t *testing.T) {
	clock := newClock()
	l := NewLimiter(RateLimitConfig{Max: 4, Window: time.Minute, Now: clock.Now})

	for range 4 {
		require.True(t, l.Allow("a").Allowed)
	}
	require.False(t, l.Allow("a").Allowed)

	// Half way into the next window half of the previous count still applies.
	clock.now = clock.now.Add(90 * time.Second)
	assert.True(t, l.Allow("a").Allowed)
	assert.True(t, l.Allow("a").Allowed)
	assert.False(t, l.Allow("a").Allowed)

	// Two windows later the client starts fresh.
	clock.now = clock.now.Add(2 * time.Minute)
	d := l.Allow("a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 3, d.Remaining)
}

func TestLimiter_Sweep(t *testing.T) {
	clock := newClock()
	l := NewLimiter(RateLimitConfig{Max: 1, Window: time.Minute, Now: clock.Now})
	l.Allow("a")
	clock.now = clock.now.Add(time.Minute)
	l.Allow("b")

	clock.now = clock.now.Add(90 * time.Second)
	l.Sweep()
	assert.NotContains(t, l.clients, "a")
	assert.Contains(t, l.clients, "b")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:4444"
	assert.Equal(t, "192.168.1.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	assert.Equal(t, "203.0.113.50", ClientIP(req))
}

func TestLimiter_CustomKey(t *testing.T) {
	l := NewLimiter(RateLimitConfig{
		Max:     1,
		Window:  time.Minute,
		KeyFunc: func(r *http.Request) string { return r.Header.Get("X-Customer-Phone") },
	})
	h := l.Middleware()(okHandler())

	send := func(phone string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Customer-Phone", phone)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, send("0811"))
	assert.Equal(t, http.StatusTooManyRequests, send("0811"))
	assert.Equal(t, http.StatusOK, send("0822"))
}
