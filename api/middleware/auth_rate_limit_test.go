package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginAttempt(handler http.Handler, remote, email string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuthRateLimitLeavesBodyForHandler(t *testing.T) {
	var seen string
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 2, 2), newFakeRateStore(), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			seen = string(body)
		}))

	rec := loginAttempt(handler, "1.2.3.4:5678", "tester@example.com")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"tester@example.com"`)
}

func TestAuthRateLimitBlocksPerDimension(t *testing.T) {
	cases := []struct {
		name    string
		policy  AuthRateLimitPolicy
		remotes []string
		emails  []string
	}{
		{
			name:    "email across ips",
			policy:  NewAuthRateLimitPolicy("login", time.Minute, 0, 2),
			remotes: []string{"1.1.1.1:1", "2.2.2.2:2", "3.3.3.3:3"},
			emails:  []string{"blocked@example.com", "Blocked@Example.com", " blocked@example.com"},
		},
		{
			name:    "ip across emails",
			policy:  NewAuthRateLimitPolicy("register", time.Minute, 2, 0),
			remotes: []string{"5.6.7.8:1", "5.6.7.8:2", "5.6.7.8:3"},
			emails:  []string{"a@example.com", "b@example.com", "c@example.com"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthRateLimit(tc.policy, newFakeRateStore(), nil)(http.HandlerFunc(okHandler))

			var codes []int
			var last *httptest.ResponseRecorder
			for i := range tc.remotes {
				last = loginAttempt(handler, tc.remotes[i], tc.emails[i])
				codes = append(codes, last.Code)
			}
			assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
			assert.Equal(t, "60", last.Header().Get("Retry-After"))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, last))
		})
	}
}

func TestAuthRateLimitKeysEmailsByHash(t *testing.T) {
	store := newFakeRateStore()
	handler := AuthRateLimit(NewAuthRateLimitPolicy("Login", time.Minute, 0, 5), store, nil)(http.HandlerFunc(okHandler))

	loginAttempt(handler, "1.2.3.4:1", "Shopper@Example.com")
	require.Len(t, store.counts, 1)
	assert.Contains(t, store.counts, "login:email:"+hashValue("shopper@example.com"))
}

func TestAuthRateLimitPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:443"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "9.9.9.9")
	assert.Equal(t, "9.9.9.9", clientIP(req))

	req.Header.Set("X-Forwarded-For", " 8.8.8.8 , 10.0.0.1")
	assert.Equal(t, "8.8.8.8", clientIP(req))
}

func TestAuthRateLimitStoreFailureIsUnavailable(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := AuthRateLimit(NewAuthRateLimitPolicy("login", time.Minute, 1, 1), store, nil)(http.HandlerFunc(okHandler))

	rec := loginAttempt(handler, "1.2.3.4:1", "a@example.com")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	for _, policy := range []AuthRateLimitPolicy{
		NewAuthRateLimitPolicy("", 0, 5, 5),
		NewAuthRateLimitPolicy("login", time.Minute, 0, 0),
	} {
		rec := httptest.NewRecorder()
		AuthRateLimit(policy, newFakeRateStore(), nil)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
