package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 8, LimitWithBuffer(7))
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 3, 4, 5, 6, 7, 891, time.FixedZone("x", 3600)),
		ID:        uuid.New(),
	}
	token := EncodeCursor(want)
	assert.NotContains(t, token, "=")

	got, err := ParseCursor(token)
	require.NoError(t, err)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, want.ID, got.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	got, err := ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	raw := func(payload string) string { return base64.RawURLEncoding.EncodeToString([]byte(payload)) }
	for _, token := range []string{"%%%", raw("no-separator"), raw("yesterday|" + uuid.NewString()), raw("2026-01-01T00:00:00Z|nope")} {
		_, err := ParseCursor(token)
		assert.Error(t, err, token)
	}
}

func TestSlice(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Cursor{
		{CreatedAt: base.Add(3 * time.Second), ID: uuid.New()},
		{CreatedAt: base.Add(2 * time.Second), ID: uuid.New()},
		{CreatedAt: base.Add(time.Second), ID: uuid.New()},
	}
	identity := func(c Cursor) Cursor { return c }

	page := Slice(rows, 2, identity)
	require.Len(t, page.Items, 2)
	next, err := ParseCursor(page.Cursor)
	require.NoError(t, err)
	assert.Equal(t, rows[1].ID, next.ID)

	last := Slice(rows[2:], 2, identity)
	assert.Len(t, last.Items, 1)
	assert.Empty(t, last.Cursor)

	empty := Slice[Cursor](nil, 2, identity)
	assert.NotNil(t, empty.Items)
}
