package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sagargautam500/storefront/pkg/db/models"
)

// CartDTO is the caller's full cart.
type CartDTO struct {
	Items []CartLineDTO `json:"items"`
}

// CartLineDTO is one server line with its snapshot joined at read time.
type CartLineDTO struct {
	ID        uuid.UUID          `json:"id"`
	ProductID uuid.UUID          `json:"product_id"`
	Quantity  int                `json:"quantity"`
	Size      string             `json:"size,omitempty"`
	Color     string             `json:"color,omitempty"`
	Product   ProductSnapshotDTO `json:"product"`
}

// ProductSnapshotDTO is the catalog data a client renders for a line.
type ProductSnapshotDTO struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Category      string          `json:"category"`
	Stock         int             `json:"stock"`
}

func toLineDTO(item models.CartItem, stock int) CartLineDTO {
	line := CartLineDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Size:      item.Size,
		Color:     item.Color,
	}
	if p := item.Product; p != nil {
		line.Product = ProductSnapshotDTO{
			Name:          p.Name,
			Price:         p.Price,
			OriginalPrice: p.OriginalPrice,
			Category:      p.Category,
			Stock:         stock,
		}
		if p.Thumbnail != nil {
			line.Product.Thumbnail = *p.Thumbnail
		}
	}
	return line
}
