package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagargautam500/storefront/internal/testdb"
	"github.com/sagargautam500/storefront/pkg/db/models"
)

func TestAvailableMissingRowIsZero(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	qty, err := repo.Available(context.Background(), NewKey(uuid.New(), "M", ""))
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestUpsertAndAvailable(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	ctx := context.Background()
	productID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.InventoryItem{ProductID: productID, Size: " M ", AvailableQty: 4}))
	require.NoError(t, repo.Upsert(ctx, &models.InventoryItem{ProductID: productID, Size: "L", AvailableQty: 1}))
	require.NoError(t, repo.Upsert(ctx, &models.InventoryItem{ProductID: productID, Size: "M", AvailableQty: 6}))

	qty, err := repo.Available(ctx, NewKey(productID, "M", ""))
	require.NoError(t, err)
	assert.Equal(t, 6, qty)

	rows, err := repo.ListByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "L", rows[0].Size)
}

func TestAvailableFor(t *testing.T) {
	repo := NewRepository(testdb.Open(t))
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.InventoryItem{ProductID: a, AvailableQty: 3}))
	require.NoError(t, repo.Upsert(ctx, &models.InventoryItem{ProductID: b, Color: "red", AvailableQty: 2}))

	keys := []Key{NewKey(a, "", ""), NewKey(b, "", "red"), NewKey(b, "", "blue")}
	stock, err := repo.AvailableFor(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, map[Key]int{keys[0]: 3, keys[1]: 2, keys[2]: 0}, stock)

	empty, err := repo.AvailableFor(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
