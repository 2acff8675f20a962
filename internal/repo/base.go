// Package repo holds the gorm plumbing shared by local repositories.
package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Base owns a gorm connection for an embedding repository.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx; a nil ctx returns it unbound.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// InTx runs fn in a transaction bound to ctx. fn's error rolls it back.
func (b Base) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return b.DB(ctx).Transaction(fn)
}

// Close releases the pool behind the connection.
func (b Base) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("resolving sql db: %w", err)
	}
	return sqlDB.Close()
}
