package cartclient

import (
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type refreshBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (t tokenResponse) session() *Session {
	s := &Session{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if t.User != nil {
		s.UserID = t.User.ID
		s.Email = t.User.Email
	}
	return s
}

// Register creates an account and installs its session.
func (c *Client) Register(ctx context.Context, email, password, name string) (*Session, error) {
	return c.authenticate(ctx, "/api/v1/auth/register", credentials{
		Email:    strings.TrimSpace(email),
		Password: password,
		Name:     strings.TrimSpace(name),
	})
}

// Login signs in and installs the new session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/api/v1/auth/login", credentials{
		Email:    strings.TrimSpace(email),
		Password: password,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body credentials) (*Session, error) {
	var out tokenResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, out: &out}); err != nil {
		return nil, err
	}
	s := out.session()
	if s.UserID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auth response missing user")
	}
	c.SetSession(s)
	return c.Session(), nil
}

// Refresh rotates the refresh token. A rejected refresh clears the session.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

// refreshAfter refreshes once for a batch of concurrent 401s: callers that
// queued behind an in-flight refresh reuse its result.
func (c *Client) refreshAfter(ctx context.Context, cause error) error {
	stale := c.accessToken()
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.accessToken(); current != "" && current != stale {
		return nil
	}
	if _, err := c.refreshLocked(ctx); err != nil {
		if isUnauthorized(err) {
			return cause
		}
		return err
	}
	return nil
}

func (c *Client) refreshLocked(ctx context.Context) (*Session, error) {
	current := c.Session()
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in")
	}

	var out tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/auth/refresh",
		body:   refreshBody{AccessToken: current.AccessToken, RefreshToken: current.RefreshToken},
		out:    &out,
	})
	if err != nil {
		if isUnauthorized(err) {
			c.SetSession(nil)
		}
		return nil, err
	}

	next := out.session()
	if next.UserID == "" {
		next.UserID = current.UserID
		next.Email = current.Email
	}
	c.SetSession(next)
	return c.Session(), nil
}

// Logout revokes the server session and always drops the local one.
func (c *Client) Logout(ctx context.Context) error {
	if c.accessToken() == "" {
		return nil
	}
	err := c.attempt(ctx, request{method: http.MethodPost, path: "/api/v1/auth/logout", authed: true})
	c.SetSession(nil)
	if isUnauthorized(err) {
		return nil
	}
	return err
}
