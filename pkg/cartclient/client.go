// Package cartclient is the HTTP client for the storefront API. It
// implements cartsync.Remote on top of the cart endpoints and carries the
// session (access + refresh token) used to reach them.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
	"github.com/sagargautam500/storefront/pkg/types"
)

const (
	defaultTimeout = 10 * time.Second
	defaultRetries = 2
	retryBase      = 100 * time.Millisecond
	maxErrorBody   = 64 << 10
)

// Session is the token pair issued by login, register and refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Email        string `json:"email,omitempty"`
}

func (s *Session) valid() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Retries bounds extra attempts for idempotent calls that failed in
	// transport. Zero uses the default; negative disables retries.
	Retries int
	// OnSession observes every session change, including nil on logout or
	// when a refresh is rejected.
	OnSession func(*Session)
}

// Client talks to the storefront API. It is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	retries   int
	onSession func(*Session)

	mu      sync.RWMutex
	session *Session

	refreshMu sync.Mutex
}

// New validates opts and returns a client without a session.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	retries := opts.Retries
	switch {
	case retries == 0:
		retries = defaultRetries
	case retries < 0:
		retries = 0
	}

	return &Client{
		base:      base,
		http:      httpClient,
		retries:   retries,
		onSession: opts.OnSession,
	}, nil
}

// Session returns a copy of the current session, or nil.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// SetSession installs a previously persisted session. Invalid sessions are
// treated as nil.
func (c *Client) SetSession(s *Session) {
	if !s.valid() {
		s = nil
	} else {
		cp := *s
		s = &cp
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	if c.onSession != nil {
		c.onSession(c.Session())
	}
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// request describes one API call.
type request struct {
	method string
	path   string
	body   any
	out    any
	// authed calls carry the bearer token and refresh it once on 401.
	authed bool
	// retryable calls are safe to repeat after a transport failure.
	retryable      bool
	idempotencyKey string
}

func (c *Client) do(ctx context.Context, req request) error {
	if req.authed && c.accessToken() == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}

	err := c.attempt(ctx, req)
	if !req.authed || !isUnauthorized(err) {
		return err
	}

	if refreshErr := c.refreshAfter(ctx, err); refreshErr != nil {
		return refreshErr
	}
	return c.attempt(ctx, req)
}

// attempt sends req, retrying transport failures for retryable calls.
func (c *Client) attempt(ctx context.Context, req request) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request")
		}
		payload = encoded
	}

	retries := 0
	if req.retryable {
		retries = c.retries
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewExponential(retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.send(ctx, req, payload)
		if err == nil {
			return nil
		}
		// A keyed request that timed out may still be running server side;
		// the retry waits for it and then receives the replayed response.
		if isTransport(err) || (req.idempotencyKey != "" && isInProgress(err)) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) send(ctx context.Context, req request, payload []byte) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.base.String()+req.path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.authed {
		httpReq.Header.Set("Authorization", "Bearer "+c.accessToken())
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if req.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	envelope := types.SuccessEnvelope{Data: req.out}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}

// transportErr marks failures that never produced an HTTP response.
type transportErr struct{ cause error }

func (e transportErr) Error() string { return e.cause.Error() }
func (e transportErr) Unwrap() error { return e.cause }

func transportError(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, transportErr{cause: err}, "storefront api unreachable")
}

func isTransport(err error) bool {
	var t transportErr
	return errors.As(err, &t)
}

func isInProgress(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIdempotency {
		return false
	}
	details, ok := typed.Details().(map[string]any)
	return ok && details["reason"] == types.ReasonInProgress
}

func isUnauthorized(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized)
}

// decodeError maps the API error envelope onto a typed error, falling back
// to the HTTP status when the body is not an envelope.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		typed := pkgerrors.New(pkgerrors.Code(envelope.Error.Code), envelope.Error.Message)
		if id := envelope.Error.RequestID; id != "" {
			typed = pkgerrors.Wrap(typed.Code(), fmt.Errorf("request %s", id), typed.Message())
		}
		if envelope.Error.Details != nil {
			typed = typed.WithDetails(envelope.Error.Details)
		}
		return typed
	}

	return pkgerrors.New(codeForStatus(resp.StatusCode), strings.TrimSpace(http.StatusText(resp.StatusCode)))
}

func codeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status >= http.StatusInternalServerError:
		return pkgerrors.CodeDependency
	case status >= http.StatusBadRequest:
		return pkgerrors.CodeValidation
	}
	return pkgerrors.CodeInternal
}

func newIdempotencyKey() string {
	return uuid.NewString()
}
