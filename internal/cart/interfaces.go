package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/sagargautam500/storefront/internal/inventory"
	"github.com/sagargautam500/storefront/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindLine(ctx context.Context, userID, productID uuid.UUID, size, color string) (*models.CartItem, error)
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	SetQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) error
	Increment(ctx context.Context, id, userID uuid.UUID, delta int) error
	Delete(ctx context.Context, id, userID uuid.UUID) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type stockOracle interface {
	Available(ctx context.Context, key inventory.Key) (int, error)
	AvailableFor(ctx context.Context, keys []inventory.Key) (map[inventory.Key]int, error)
}
