package cartsync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// GuestIDPrefix marks the string form of locally generated line ids.
const GuestIDPrefix = "guest-"

// LineKind records which store owns a cart line.
type LineKind uint8

const (
	lineKindUnset LineKind = iota
	// LineKindLocal lines belong to the guest cart and never leave the device.
	LineKindLocal
	// LineKindRemote lines were assigned an id by the cart persistence service.
	LineKindRemote
)

// LineID identifies a cart line and carries the routing decision with it.
type LineID struct {
	kind   LineKind
	local  uint64
	remote string
}

// LocalLineID builds the id of a guest-owned line.
func LocalLineID(seq uint64) LineID {
	return LineID{kind: LineKindLocal, local: seq}
}

// RemoteLineID builds the id of a server-owned line.
func RemoteLineID(id string) LineID {
	return LineID{kind: LineKindRemote, remote: strings.TrimSpace(id)}
}

// ParseLineID recovers a LineID from its string form.
func ParseLineID(raw string) (LineID, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return LineID{}, fmt.Errorf("line id is required")
	}
	if rest, ok := strings.CutPrefix(value, GuestIDPrefix); ok {
		seq, err := strconv.ParseUint(rest, 10, 64)
		if err != nil || seq == 0 {
			return LineID{}, fmt.Errorf("invalid guest line id %q", raw)
		}
		return LocalLineID(seq), nil
	}
	return RemoteLineID(value), nil
}

func (id LineID) Kind() LineKind { return id.kind }
func (id LineID) IsLocal() bool  { return id.kind == LineKindLocal }
func (id LineID) IsRemote() bool { return id.kind == LineKindRemote && id.remote != "" }
func (id LineID) IsZero() bool   { return id.kind == lineKindUnset }

// Seq returns the local sequence number; zero for remote ids.
func (id LineID) Seq() uint64 {
	if id.kind != LineKindLocal {
		return 0
	}
	return id.local
}

// Remote returns the server-assigned id; empty for local ids.
func (id LineID) Remote() string {
	if id.kind != LineKindRemote {
		return ""
	}
	return id.remote
}

func (id LineID) String() string {
	switch id.kind {
	case LineKindLocal:
		return GuestIDPrefix + strconv.FormatUint(id.local, 10)
	case LineKindRemote:
		return id.remote
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (id LineID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *LineID) UnmarshalText(text []byte) error {
	parsed, err := ParseLineID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Variant is the optional size/color configuration of a line.
type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// NewVariant returns nil when both parts are blank.
func NewVariant(size, color string) *Variant {
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)
	if size == "" && color == "" {
		return nil
	}
	return &Variant{Size: size, Color: color}
}

func variantKey(v *Variant) Variant {
	if v == nil {
		return Variant{}
	}
	return Variant{Size: strings.TrimSpace(v.Size), Color: strings.TrimSpace(v.Color)}
}

// Snapshot is display data copied from the catalog when the line was added.
type Snapshot struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	Thumbnail     string          `json:"thumbnail,omitempty"`
	Stock         int             `json:"stock"`
	Category      string          `json:"category,omitempty"`
}

// Line is one purchasable unit-configuration in a cart.
type Line struct {
	ID        LineID    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Variant   *Variant  `json:"variant,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
}

// Subtotal is snapshot price times quantity; zero without a snapshot.
func (l Line) Subtotal() decimal.Decimal {
	if l.Snapshot == nil {
		return decimal.Zero
	}
	return l.Snapshot.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l Line) matches(productID string, v *Variant) bool {
	return l.ProductID == productID && variantKey(l.Variant) == variantKey(v)
}

func (l Line) clone() Line {
	out := l
	if l.Variant != nil {
		v := *l.Variant
		out.Variant = &v
	}
	if l.Snapshot != nil {
		s := *l.Snapshot
		out.Snapshot = &s
	}
	return out
}

func cloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	for i, line := range lines {
		out[i] = line.clone()
	}
	return out
}
