package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sagargautam500/storefront/api/responses"
	"github.com/sagargautam500/storefront/api/validators"
	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
	"github.com/sagargautam500/storefront/pkg/logger"
)

// rateLimiter is satisfied by the redis client's fixed window counter.
type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// AuthRateLimitPolicy caps attempts against one auth endpoint per client IP
// and per submitted email within a fixed window.
type AuthRateLimitPolicy struct {
	name       string
	window     time.Duration
	ipLimit    int
	emailLimit int
}

// NewAuthRateLimitPolicy builds a policy. A zero limit turns that
// dimension off; a zero window turns the policy off.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	return AuthRateLimitPolicy{name: name, window: window, ipLimit: ipLimit, emailLimit: emailLimit}
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// bucket is one counter a request must fit under.
type bucket struct {
	dimension string
	scope     string
	limit     int
}

func (p AuthRateLimitPolicy) buckets(r *http.Request, body []byte) []bucket {
	var out []bucket
	if ip := clientIP(r); p.ipLimit > 0 && ip != "" {
		out = append(out, bucket{dimension: "ip", scope: p.name + ":ip:" + ip, limit: p.ipLimit})
	}
	if email := extractEmail(body); p.emailLimit > 0 && email != "" {
		// emails stay out of redis keys
		out = append(out, bucket{dimension: "email", scope: p.name + ":email:" + hashValue(email), limit: p.emailLimit})
	}
	return out
}

// AuthRateLimit answers RATE_LIMIT_EXCEEDED with a Retry-After once any
// bucket is full. Attempts are counted before the handler runs, so failed
// and successful logins both use up the budget.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter rateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.emailLimit > 0 && r.Body != nil {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, validators.MaxBodyBytes+1))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, b := range policy.buckets(r, body) {
				allowed, count, err := limiter.FixedWindowAllow(ctx, b.scope, int64(b.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					reject(ctx, w, logg, policy, b, count)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, policy AuthRateLimitPolicy, b bucket, count int64) {
	retryAfter := int(policy.window.Round(time.Second).Seconds())
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":         policy.name,
			"dimension":      b.dimension,
			"attempts":       count,
			"limit":          b.limit,
			"window_seconds": retryAfter,
		}), "auth.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
}

// clientIP prefers the left-most forwarded address; the API runs behind a
// proxy that sets it.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func extractEmail(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(payload, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
