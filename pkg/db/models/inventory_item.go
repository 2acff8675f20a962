package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks live stock per product variant. Size and Color are
// empty strings for products without that dimension.
type InventoryItem struct {
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Size         string    `gorm:"column:size;primaryKey;not null;default:''"`
	Color        string    `gorm:"column:color;primaryKey;not null;default:''"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
