package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Sizes and Colors list the variants that can
// be put in a cart; both empty means the product has no variants.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	Category      string          `gorm:"column:category;not null"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice decimal.Decimal `gorm:"column:original_price;type:numeric(12,2);not null;default:0"`
	Thumbnail     *string         `gorm:"column:thumbnail"`
	Sizes         pq.StringArray  `gorm:"column:sizes;type:text[];not null;default:'{}'"`
	Colors        pq.StringArray  `gorm:"column:colors;type:text[];not null;default:'{}'"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true"`
	Inventory     []InventoryItem `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
