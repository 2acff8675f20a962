package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_users": {
			"CREATE TABLE IF NOT EXISTS users",
			"CONSTRAINT ux_users_email UNIQUE (email)",
			"DROP TABLE IF EXISTS users",
		},
		"create_products": {
			"CREATE TABLE IF NOT EXISTS products",
			"sizes text[] NOT NULL DEFAULT '{}'",
			"colors text[] NOT NULL DEFAULT '{}'",
			"price numeric(12,2) NOT NULL",
			"DROP TABLE IF EXISTS products",
		},
		"create_inventory_items": {
			"CREATE TABLE IF NOT EXISTS inventory_items",
			"PRIMARY KEY (product_id, size, color)",
			"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
			"CHECK (available_qty >= 0)",
			"DROP TABLE IF EXISTS inventory_items",
		},
		"create_cart_items": {
			"CREATE TABLE IF NOT EXISTS cart_items",
			"CONSTRAINT ux_cart_items_line UNIQUE (user_id, product_id, size, color)",
			"CHECK (quantity > 0)",
			"DROP TABLE IF EXISTS cart_items",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			assert.Contains(t, content, sub, suffix)
		}
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))

	embeddedEntries, err := embedded.ReadDir(embeddedDir)
	require.NoError(t, err)
	diskEntries, err := os.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, embeddedEntries, len(diskEntries))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

	first, err := CreateSQLMigration(dir, "  Add Wish-list!! ", at)
	require.NoError(t, err)
	assert.Equal(t, "20261001093000_add_wish_list.sql", filepath.Base(first))

	second, err := CreateSQLMigration(dir, "add index", at)
	require.NoError(t, err)
	assert.Equal(t, "20261001093001_add_index.sql", filepath.Base(second), "same-second versions move forward")

	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!", at)
	assert.Error(t, err)
}

func TestValidateDirReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	ok := upMarker + "\nSELECT 1;\n" + downMarker + "\nSELECT 1;\n"
	write("20260101000000_ok.sql", ok)
	write("bad.sql", ok)
	write("20261399000000_bad_month.sql", ok)
	write("20260101000000_dup.sql", ok)
	write("20260102000000_no_down.sql", upMarker+"\nSELECT 1;\n")
	write("20260103000000_flipped.sql", downMarker+"\n"+upMarker+"\n")
	write("notes.txt", "ignored")

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 5)
	assert.True(t, strings.Contains(err.Error(), "duplicate migration version 20260101000000"), err.Error())
}
