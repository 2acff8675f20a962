package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one server-owned cart line. (UserID, ProductID, Size, Color)
// is unique; empty Size/Color stand for "no variant".
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:1"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:2"`
	Size      string    `gorm:"column:size;not null;default:'';uniqueIndex:ux_cart_items_line,priority:3"`
	Color     string    `gorm:"column:color;not null;default:'';uniqueIndex:ux_cart_items_line,priority:4"`
	Quantity  int       `gorm:"column:quantity;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
