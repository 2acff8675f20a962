package product

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sagargautam500/storefront/pkg/db/models"
)

// ProductDTO is the public catalog payload. It carries everything a client
// needs to build a cart line snapshot.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Thumbnail     *string         `json:"thumbnail,omitempty"`
	Sizes         []string        `json:"sizes"`
	Colors        []string        `json:"colors"`
	Stock         int             `json:"stock"`
	Variants      []VariantDTO    `json:"variants"`
}

// VariantDTO is the live stock of one size/color combination.
type VariantDTO struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
	Stock int    `json:"stock"`
}

// FromModel maps a product with preloaded inventory to its DTO. Stock is
// the sum over all variants.
func FromModel(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Thumbnail:     p.Thumbnail,
		Sizes:         append([]string{}, p.Sizes...),
		Colors:        append([]string{}, p.Colors...),
		Variants:      make([]VariantDTO, 0, len(p.Inventory)),
	}
	for _, item := range p.Inventory {
		dto.Stock += item.AvailableQty
		dto.Variants = append(dto.Variants, VariantDTO{
			Size:  item.Size,
			Color: item.Color,
			Stock: item.AvailableQty,
		})
	}
	return dto
}
