package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagargautam500/storefront/pkg/cartclient"
)

type apiLine struct {
	ID        string         `json:"id"`
	ProductID string         `json:"product_id"`
	Quantity  int            `json:"quantity"`
	Size      string         `json:"size"`
	Color     string         `json:"color"`
	Product   map[string]any `json:"product"`
}

// fakeStorefront serves the catalog, auth and cart routes the CLI calls.
type fakeStorefront struct {
	mu     sync.Mutex
	lines  []apiLine
	nextID int
	adds   int
}

func (f *fakeStorefront) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds
}

func (f *fakeStorefront) handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/public/products/{productId}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "productId") != "tee" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "product not found"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id":             "tee",
			"name":           "Basic Tee",
			"category":       "tops",
			"price":          "12.50",
			"original_price": "15.00",
			"stock":          9,
			"variants":       []map[string]any{{"size": "M", "color": "Black", "stock": 4}},
		}})
	})
	r.Get("/api/public/products", func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{}
		if cat := r.URL.Query().Get("category"); cat == "" || cat == "tops" {
			items = append(items, map[string]any{"id": "tee", "name": "Basic Tee", "category": "tops", "price": "12.50", "stock": 9})
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"items": items, "cursor": "abc"}})
	})
	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"user":          map[string]any{"id": "user-1", "email": "ada@example.com"},
		}})
	})
	r.Post("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer access-1" {
					writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "UNAUTHORIZED", "message": "missing token"}})
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/api/v1/cart", func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			defer f.mu.Unlock()
			items := append([]apiLine{}, f.lines...)
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"items": items}})
		})
		r.Post("/api/v1/cart/items", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				ProductID string `json:"product_id"`
				Quantity  int    `json:"quantity"`
				Size      string `json:"size"`
				Color     string `json:"color"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.adds++
			f.nextID++
			line := apiLine{
				ID:        "line-" + strconv.Itoa(f.nextID),
				ProductID: body.ProductID,
				Quantity:  body.Quantity,
				Size:      body.Size,
				Color:     body.Color,
				Product:   map[string]any{"name": "Basic Tee", "price": "12.50", "stock": 4},
			}
			f.lines = append(f.lines, line)
			f.mu.Unlock()
			writeJSON(w, http.StatusCreated, map[string]any{"data": line})
		})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type harness struct {
	api       *fakeStorefront
	url       string
	guest     string
	tokenFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	api := &fakeStorefront{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	t.Setenv("STOREFRONT_CLIENT_TIMEOUT", "5s")
	t.Setenv("STOREFRONT_LOG_LEVEL", "error")
	return &harness{
		api:       api,
		url:       srv.URL,
		guest:     filepath.Join(dir, "guest", "cart.db"),
		tokenFile: filepath.Join(dir, "session.json"),
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--api", h.url, "--guest-store", h.guest, "--token-file", h.tokenFile}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (h *harness) showJSON(t *testing.T) cartJSON {
	t.Helper()
	stdout, _, err := h.run(t, "show", "--json")
	require.NoError(t, err)
	var out cartJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	return out
}

func TestGuestCartPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "add", "tee", "--size", "M", "--color", "Black", "-q", "2")
	require.NoError(t, err)
	_, _, err = h.run(t, "add", "tee", "--size", "M", "--color", "Black")
	require.NoError(t, err)

	cart := h.showJSON(t)
	assert.Equal(t, "anonymous", cart.Mode)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "guest-1", cart.Items[0].ID.String())
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.Items[0].Snapshot.Stock)
	assert.Equal(t, "37.5", cart.Total.String())

	_, _, err = h.run(t, "update", "guest-1", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, h.showJSON(t).Count)

	_, _, err = h.run(t, "remove", "guest-1")
	require.NoError(t, err)
	assert.Empty(t, h.showJSON(t).Items)
	assert.Zero(t, h.api.addCount())
}

func TestShowPrintsTable(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, "add", "tee", "--size", "M", "--color", "Black")
	require.NoError(t, err)

	stdout, _, err := h.run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cart (anonymous)")
	assert.Contains(t, stdout, "Basic Tee")
	assert.Contains(t, stdout, "M/Black")
	assert.Contains(t, stdout, "1 item(s), total 12.50")
}

func TestVerboseLogsEngineMetrics(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run(t, "-v", "add", "tee", "--size", "M", "--color", "Black")
	require.NoError(t, err)
	assert.Contains(t, stderr, "cart_engine_mutations_total")

	_, stderr, err = h.run(t, "add", "tee", "--size", "M", "--color", "Black")
	require.NoError(t, err)
	assert.NotContains(t, stderr, "cart_engine_mutations_total")
}

func TestAnonymousAddUnknownProductFails(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "add", "missing")
	require.Error(t, err)
	assert.Equal(t, "product not found", err.Error())
	assert.Empty(t, h.showJSON(t).Items)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "add", "tee", "-q", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestUpdateRejectsMalformedInput(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "update", "guest-x", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid guest line id")

	_, _, err = h.run(t, "update", "guest-1", "two")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quantity")
}

func TestUpdateMissingGuestLineReportsFailure(t *testing.T) {
	h := newHarness(t)

	_, stderr, err := h.run(t, "update", "guest-7", "2")
	require.ErrorIs(t, err, errMutationFailed)
	assert.Contains(t, stderr, "✗")
}

func TestLoginMergesGuestCartAndPersistsSession(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.run(t, "add", "tee", "--size", "M", "--color", "Black", "-q", "2")
	require.NoError(t, err)

	stdout, _, err := h.run(t, "login", "--email", "ada@example.com", "--password", "secret-pass")
	require.NoError(t, err)
	assert.Contains(t, stdout, "signed in as ada@example.com")
	assert.Equal(t, 1, h.api.addCount())

	saved, err := loadSession(h.tokenFile)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "user-1", saved.UserID)

	cart := h.showJSON(t)
	assert.Equal(t, "authenticated", cart.Mode)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "line-1", cart.Items[0].ID.String())
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 1, h.api.addCount(), "a resumed session must not merge again")

	_, _, err = h.run(t, "logout")
	require.NoError(t, err)
	_, statErr := os.Stat(h.tokenFile)
	assert.True(t, os.IsNotExist(statErr))

	cart = h.showJSON(t)
	assert.Equal(t, "anonymous", cart.Mode)
	assert.Empty(t, cart.Items)
}

func TestLoginRequiresCredentials(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.run(t, "login", "--email", "ada@example.com")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "password"))
}

func TestProductCommand(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run(t, "product", "tee")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Basic Tee  12.50")
	assert.Contains(t, stdout, "- M/Black: 4")
}

func TestCatalogCommand(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := h.run(t, "catalog", "--category", "tops")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Basic Tee")
	assert.Contains(t, stdout, "more: --cursor abc")

	stdout, _, err = h.run(t, "catalog", "--category", "shoes")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "Basic Tee")
}

func TestSessionFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := loadSession(path)
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &cartclient.Session{AccessToken: "a", RefreshToken: "r", UserID: "u", Email: "e@example.com"}
	require.NoError(t, saveSession(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := loadSession(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, saveSession(path, nil))
	require.NoError(t, saveSession(path, nil))
	got, err = loadSession(path)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := loadSession(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding session file")
}
