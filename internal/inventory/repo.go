// Package inventory is the authoritative source of live per-variant stock.
package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sagargautam500/storefront/internal/repo"
	"github.com/sagargautam500/storefront/pkg/db/models"
)

// Key identifies one stocked variant. Empty Size/Color mean the product has
// no such dimension.
type Key struct {
	ProductID uuid.UUID
	Size      string
	Color     string
}

// NewKey normalizes the variant parts of a key.
func NewKey(productID uuid.UUID, size, color string) Key {
	return Key{ProductID: productID, Size: strings.TrimSpace(size), Color: strings.TrimSpace(color)}
}

// Repository reads and writes inventory rows.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Available returns live stock for one variant. A missing row means 0.
func (r *Repository) Available(ctx context.Context, key Key) (int, error) {
	var rows []models.InventoryItem
	err := r.DB(ctx).
		Where("product_id = ? AND size = ? AND color = ?", key.ProductID, key.Size, key.Color).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].AvailableQty, nil
}

// AvailableFor returns live stock for every key; keys without a row map to 0.
func (r *Repository) AvailableFor(ctx context.Context, keys []Key) (map[Key]int, error) {
	out := make(map[Key]int, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	productIDs := make([]uuid.UUID, 0, len(keys))
	seen := make(map[uuid.UUID]struct{}, len(keys))
	for _, key := range keys {
		out[key] = 0
		if _, ok := seen[key.ProductID]; ok {
			continue
		}
		seen[key.ProductID] = struct{}{}
		productIDs = append(productIDs, key.ProductID)
	}

	var rows []models.InventoryItem
	if err := r.DB(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		key := Key{ProductID: row.ProductID, Size: row.Size, Color: row.Color}
		if _, wanted := out[key]; wanted {
			out[key] = row.AvailableQty
		}
	}
	return out, nil
}

// ListByProduct returns every stocked variant of a product.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.InventoryItem, error) {
	var rows []models.InventoryItem
	err := r.DB(ctx).
		Where("product_id = ?", productID).
		Order("size ASC, color ASC").
		Find(&rows).Error
	return rows, err
}

// Upsert sets the available quantity of a variant.
func (r *Repository) Upsert(ctx context.Context, item *models.InventoryItem) error {
	item.Size = strings.TrimSpace(item.Size)
	item.Color = strings.TrimSpace(item.Color)
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "size"}, {Name: "color"}},
		DoUpdates: clause.AssignmentColumns([]string{"available_qty", "updated_at"}),
	}).Create(item).Error
}
