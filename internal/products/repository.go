package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sagargautam500/storefront/internal/repo"
	"github.com/sagargautam500/storefront/pkg/db/models"
	"github.com/sagargautam500/storefront/pkg/pagination"
)

// Repository handles product persistence.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Create inserts a product together with any inventory rows it carries.
func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return r.DB(ctx).Create(p).Error
}

// FindByID loads a product with its stocked variants.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.DB(ctx).
		Preload("Inventory", func(db *gorm.DB) *gorm.DB {
			return db.Order("size ASC, color ASC")
		}).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns up to limit active products newest first, starting
// after cursor. An empty category matches every category.
func (r *Repository) ListActive(ctx context.Context, category string, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	query := r.DB(ctx).
		Preload("Inventory", func(db *gorm.DB) *gorm.DB {
			return db.Order("size ASC, color ASC")
		}).
		Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// FindByIDs loads products keyed by id. Unknown ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// SetActive toggles whether a product can be put in a cart.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
