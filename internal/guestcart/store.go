// Package guestcart persists the anonymous cart to a local sqlite file so it
// survives restarts of the storefront client.
package guestcart

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/sagargautam500/storefront/internal/cartsync"
	"github.com/sagargautam500/storefront/internal/repo"
)

// lineRecord is one persisted guest line. Seq is the numeric part of the
// local line id.
type lineRecord struct {
	Seq           uint64 `gorm:"primaryKey;autoIncrement:false"`
	Position      int    `gorm:"not null"`
	ProductID     string `gorm:"not null"`
	Quantity      int    `gorm:"not null"`
	Size          string
	Color         string
	HasSnapshot   bool
	Name          string
	Price         decimal.Decimal `gorm:"type:numeric"`
	OriginalPrice decimal.Decimal `gorm:"type:numeric"`
	Thumbnail     string
	Stock         int
	Category      string
	UpdatedAt     time.Time
}

func (lineRecord) TableName() string { return "guest_cart_lines" }

// Store implements cartsync.GuestStore on top of gorm.
type Store struct {
	repo.Base
}

// Open opens (creating if needed) the sqlite file at path and migrates the
// guest cart table.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("guest cart path is required")
	}
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.New(log.New(io.Discard, "", log.LstdFlags), gormlogger.Config{LogLevel: gormlogger.Silent}),
	})
	if err != nil {
		return nil, fmt.Errorf("opening guest cart db: %w", err)
	}
	return New(conn)
}

// New wraps an existing connection and migrates the guest cart table.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if err := db.AutoMigrate(&lineRecord{}); err != nil {
		return nil, fmt.Errorf("migrating guest cart: %w", err)
	}
	return &Store{Base: repo.NewBase(db)}, nil
}

// Load returns the persisted lines in insertion order.
func (s *Store) Load(ctx context.Context) ([]cartsync.Line, error) {
	var records []lineRecord
	if err := s.DB(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	lines := make([]cartsync.Line, 0, len(records))
	for _, rec := range records {
		lines = append(lines, rec.toLine())
	}
	return lines, nil
}

// Save replaces the persisted guest cart with lines.
func (s *Store) Save(ctx context.Context, lines []cartsync.Line) error {
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&lineRecord{}).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		records := make([]lineRecord, 0, len(lines))
		for i, line := range lines {
			if !line.ID.IsLocal() {
				return fmt.Errorf("line %q is not a guest line", line.ID.String())
			}
			records = append(records, fromLine(i, line))
		}
		return tx.Create(&records).Error
	})
}

func fromLine(position int, line cartsync.Line) lineRecord {
	rec := lineRecord{
		Seq:       line.ID.Seq(),
		Position:  position,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
	}
	if line.Variant != nil {
		rec.Size = line.Variant.Size
		rec.Color = line.Variant.Color
	}
	if s := line.Snapshot; s != nil {
		rec.HasSnapshot = true
		rec.Name = s.Name
		rec.Price = s.Price
		rec.OriginalPrice = s.OriginalPrice
		rec.Thumbnail = s.Thumbnail
		rec.Stock = s.Stock
		rec.Category = s.Category
	}
	return rec
}

func (r lineRecord) toLine() cartsync.Line {
	line := cartsync.Line{
		ID:        cartsync.LocalLineID(r.Seq),
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Variant:   cartsync.NewVariant(r.Size, r.Color),
	}
	if r.HasSnapshot {
		line.Snapshot = &cartsync.Snapshot{
			Name:          r.Name,
			Price:         r.Price,
			OriginalPrice: r.OriginalPrice,
			Thumbnail:     r.Thumbnail,
			Stock:         r.Stock,
			Category:      r.Category,
		}
	}
	return line
}
