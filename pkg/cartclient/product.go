package cartclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sagargautam500/storefront/internal/cartsync"
	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

// Variant is the live stock of one size/color combination.
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

// Product is the public catalog view of one product.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Thumbnail     *string         `json:"thumbnail"`
	Sizes         []string        `json:"sizes"`
	Colors        []string        `json:"colors"`
	Stock         int             `json:"stock"`
	Variants      []Variant       `json:"variants"`
}

// Product loads a product from the public catalog.
func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var out Product
	err := c.do(ctx, request{
		method:    http.MethodGet,
		path:      "/api/public/products/" + url.PathEscape(id),
		out:       &out,
		retryable: true,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductPage is one page of the catalog. Cursor is empty on the last page.
type ProductPage struct {
	Items  []Product `json:"items"`
	Cursor string    `json:"cursor"`
}

// ListQuery narrows a catalog listing. Zero values use the server defaults.
type ListQuery struct {
	Category string
	Limit    int
	Cursor   string
}

// Products lists active catalog products, newest first.
func (c *Client) Products(ctx context.Context, q ListQuery) (*ProductPage, error) {
	values := url.Values{}
	if category := strings.TrimSpace(q.Category); category != "" {
		values.Set("category", category)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Cursor != "" {
		values.Set("cursor", q.Cursor)
	}
	path := "/api/public/products"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out ProductPage
	if err := c.do(ctx, request{method: http.MethodGet, path: path, out: &out, retryable: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Snapshot builds the display data stored with a guest line. Stock is the
// chosen variant's stock when the product has variants.
func (p *Product) Snapshot(v *cartsync.Variant) *cartsync.Snapshot {
	snap := &cartsync.Snapshot{
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Stock:         p.Stock,
		Category:      p.Category,
	}
	if p.Thumbnail != nil {
		snap.Thumbnail = *p.Thumbnail
	}
	if v == nil && len(p.Variants) == 0 {
		return snap
	}
	want := cartsync.Variant{}
	if v != nil {
		want = *v
	}
	snap.Stock = 0
	for _, variant := range p.Variants {
		if variant.Size == want.Size && variant.Color == want.Color {
			snap.Stock = variant.Stock
			break
		}
	}
	return snap
}
