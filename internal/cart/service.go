package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagargautam500/storefront/internal/inventory"
	"github.com/sagargautam500/storefront/pkg/db"
	"github.com/sagargautam500/storefront/pkg/db/models"
	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
	"github.com/sagargautam500/storefront/pkg/metrics"
)

// DefaultMaxLineQuantity caps a single line when no limit is configured.
const DefaultMaxLineQuantity = 99

const msgLineNotFound = "cart item not found"

// Service exposes cart persistence operations. The user id always comes
// from the authenticated session.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) error
	UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// AddItemInput is a validated add request.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

// ServiceParams wires the cart service collaborators.
type ServiceParams struct {
	Repo            CartRepository
	Products        productLoader
	Stock           stockOracle
	Metrics         *metrics.CartServiceMetrics
	MaxLineQuantity int
}

type service struct {
	repo     CartRepository
	products productLoader
	stock    stockOracle
	metrics  *metrics.CartServiceMetrics
	maxQty   int
}

// NewService builds a cart service backed by the provided stack.
func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if p.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if p.Stock == nil {
		return nil, fmt.Errorf("stock oracle required")
	}
	maxQty := p.MaxLineQuantity
	if maxQty <= 0 {
		maxQty = DefaultMaxLineQuantity
	}
	return &service{
		repo:     p.Repo,
		products: p.Products,
		stock:    p.Stock,
		metrics:  p.Metrics,
		maxQty:   maxQty,
	}, nil
}

// Get returns the user's lines with a snapshot built from the current
// catalog and live stock.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (dto *CartDTO, err error) {
	defer s.observe("get", time.Now(), &err)
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}

	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	keys := make([]inventory.Key, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, inventory.NewKey(row.ProductID, row.Size, row.Color))
	}
	stock, err := s.stock.AvailableFor(ctx, keys)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}

	dto = &CartDTO{Items: make([]CartLineDTO, 0, len(rows))}
	for i, row := range rows {
		if row.Product == nil {
			continue
		}
		dto.Items = append(dto.Items, toLineDTO(row, stock[keys[i]]))
	}
	return dto, nil
}

// AddItem combines with an existing (product, size, color) line or creates
// a new one. The combined quantity must fit live stock and the line cap.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (err error) {
	defer s.observe("add", time.Now(), &err)
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	input.Size = strings.TrimSpace(input.Size)
	input.Color = strings.TrimSpace(input.Color)

	p, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return err
	}
	if err := validateVariant(p, input.Size, input.Color); err != nil {
		return err
	}

	err = s.addOnce(ctx, userID, input)
	if db.IsUniqueViolation(err, "") {
		// a concurrent add created the line first; the retry combines with it
		err = s.addOnce(ctx, userID, input)
		if db.IsUniqueViolation(err, "") {
			err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart changed concurrently, retry")
		}
	}
	return err
}

func (s *service) addOnce(ctx context.Context, userID uuid.UUID, input AddItemInput) error {
	existing, err := s.repo.FindLine(ctx, userID, input.ProductID, input.Size, input.Color)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	combined := input.Quantity
	if existing != nil {
		combined += existing.Quantity
	}
	if err := s.checkQuantity(ctx, inventory.NewKey(input.ProductID, input.Size, input.Color), combined); err != nil {
		return err
	}

	if existing != nil {
		if err := s.repo.Increment(ctx, existing.ID, userID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		return nil
	}
	item := &models.CartItem{
		UserID:    userID,
		ProductID: input.ProductID,
		Size:      input.Size,
		Color:     input.Color,
		Quantity:  input.Quantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart line")
	}
	return nil
}

// UpdateQuantity overwrites a line's quantity.
func (s *service) UpdateQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (err error) {
	defer s.observe("update", time.Now(), &err)
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	item, err := s.repo.FindByIDAndUser(ctx, lineID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgLineNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if err := s.checkQuantity(ctx, inventory.NewKey(item.ProductID, item.Size, item.Color), quantity); err != nil {
		return err
	}
	if err := s.repo.SetQuantity(ctx, lineID, userID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, msgLineNotFound)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return nil
}

// RemoveItem deletes one of the user's lines.
func (s *service) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (err error) {
	defer s.observe("remove", time.Now(), &err)
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	removed, err := s.repo.Delete(ctx, lineID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	if removed == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, msgLineNotFound)
	}
	return nil
}

// Clear empties the user's cart. Clearing an empty cart succeeds.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (err error) {
	defer s.observe("clear", time.Now(), &err)
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) observe(op string, started time.Time, errp *error) {
	s.metrics.Observe(op, started, *errp)
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !p.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, nil
}

func (s *service) checkQuantity(ctx context.Context, key inventory.Key, quantity int) error {
	if quantity > s.maxQty {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d per item", s.maxQty))
	}
	available, err := s.stock.Available(ctx, key)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock")
	}
	if quantity > available {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("only %d items available in stock", available)).
			WithDetails(map[string]any{"available": available})
	}
	return nil
}

// validateVariant requires the size/color to be one the product offers, and
// empty when the product has no such dimension.
func validateVariant(p *models.Product, size, color string) error {
	if err := validateDimension("size", size, p.Sizes); err != nil {
		return err
	}
	return validateDimension("color", color, p.Colors)
}

func validateDimension(name, value string, offered []string) error {
	if len(offered) == 0 {
		if value != "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product has no %s options", name))
		}
		return nil
	}
	if value == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is required", name))
	}
	for _, option := range offered {
		if option == value {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s %q is not offered", name, value))
}
