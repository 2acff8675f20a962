package validators

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/sagargautam500/storefront/pkg/errors"
)

// Query reads typed values out of a request's query string.
type Query struct {
	values url.Values
}

func NewQuery(values url.Values) Query {
	return Query{values: values}
}

// String returns the sanitized value of key, capped at maxLen runes.
func (q Query) String(key string, maxLen int) string {
	return SanitizeString(q.values.Get(key), maxLen)
}

// Int returns the value of key within [lo, hi], or def when the key is
// absent or blank.
func (q Query) Int(key string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(q.values.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("%s must be a whole number", key)).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	if n < lo || n > hi {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be between %d and %d", key, lo, hi)).
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return n, nil
}
