package cartclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sagargautam500/storefront/internal/cartsync"
	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

type cartPayload struct {
	Items []cartLine `json:"items"`
}

type cartLine struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Product   struct {
		Name          string          `json:"name"`
		Price         decimal.Decimal `json:"price"`
		OriginalPrice decimal.Decimal `json:"original_price"`
		Thumbnail     string          `json:"thumbnail"`
		Category      string          `json:"category"`
		Stock         int             `json:"stock"`
	} `json:"product"`
}

func (l cartLine) toLine() cartsync.Line {
	return cartsync.Line{
		ID:        cartsync.RemoteLineID(l.ID),
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		Variant:   cartsync.NewVariant(l.Size, l.Color),
		Snapshot: &cartsync.Snapshot{
			Name:          l.Product.Name,
			Price:         l.Product.Price,
			OriginalPrice: l.Product.OriginalPrice,
			Thumbnail:     l.Product.Thumbnail,
			Stock:         l.Product.Stock,
			Category:      l.Product.Category,
		},
	}
}

type addBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// Fetch returns the server cart in server order.
func (c *Client) Fetch(ctx context.Context) ([]cartsync.Line, error) {
	var out cartPayload
	if err := c.do(ctx, request{method: http.MethodGet, path: "/api/v1/cart", out: &out, authed: true, retryable: true}); err != nil {
		return nil, err
	}
	lines := make([]cartsync.Line, 0, len(out.Items))
	for _, item := range out.Items {
		lines = append(lines, item.toLine())
	}
	return lines, nil
}

// Add posts one add intent. A single Idempotency-Key covers every retry of
// the call, so a lost response never double-adds.
func (c *Client) Add(ctx context.Context, req cartsync.AddLineRequest) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/cart/items",
		body: addBody{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Size:      strings.TrimSpace(req.Size),
			Color:     strings.TrimSpace(req.Color),
		},
		authed:         true,
		retryable:      true,
		idempotencyKey: newIdempotencyKey(),
	})
}

// UpdateQuantity sets a server line's quantity.
func (c *Client) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	path, err := linePath(lineID)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:    http.MethodPatch,
		path:      path,
		body:      quantityBody{Quantity: quantity},
		authed:    true,
		retryable: true,
	})
}

// Remove deletes a server line. It is not retried: a repeat after a lost
// response would report NOT_FOUND for a delete that succeeded.
func (c *Client) Remove(ctx context.Context, lineID string) error {
	path, err := linePath(lineID)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodDelete, path: path, authed: true})
}

// Clear empties the server cart.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/api/v1/cart", authed: true, retryable: true})
}

func linePath(lineID string) (string, error) {
	id := strings.TrimSpace(lineID)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return "/api/v1/cart/items/" + url.PathEscape(id), nil
}

var _ cartsync.Remote = (*Client)(nil)
