package cartsync

// Mode selects which collection of the cache is active.
type Mode uint8

const (
	ModeAnonymous Mode = iota
	ModeAuthenticated
)

func (m Mode) String() string {
	switch m {
	case ModeAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// undoToken holds a structural copy of the shadow taken before an
// optimistic write. Rolling back restores it verbatim.
type undoToken struct {
	shadow []Line
	valid  bool
}

// cache mirrors the guest cart (owned locally) and a shadow of the server
// cart. It is not safe for concurrent use; the Engine serializes access.
type cache struct {
	guest     []Line
	shadow    []Line
	nextLocal uint64
}

func (c *cache) active(mode Mode) []Line {
	if mode == ModeAuthenticated {
		return c.shadow
	}
	return c.guest
}

func (c *cache) restoreGuest(lines []Line) {
	c.guest = cloneLines(lines)
	c.nextLocal = 0
	for _, line := range c.guest {
		if seq := line.ID.Seq(); seq > c.nextLocal {
			c.nextLocal = seq
		}
	}
}

func (c *cache) newLocalID() LineID {
	c.nextLocal++
	return LocalLineID(c.nextLocal)
}

// addGuest increments the line matching (productID, variant) or appends a
// new one, returning the resulting line.
func (c *cache) addGuest(productID string, quantity int, variant *Variant, snapshot *Snapshot) Line {
	for i := range c.guest {
		if c.guest[i].matches(productID, variant) {
			c.guest[i].Quantity += quantity
			return c.guest[i].clone()
		}
	}
	line := Line{
		ID:        c.newLocalID(),
		ProductID: productID,
		Quantity:  quantity,
		Variant:   NewVariantFrom(variant),
		Snapshot:  snapshotCopy(snapshot),
	}
	c.guest = append(c.guest, line)
	return line.clone()
}

func (c *cache) setGuestQuantity(id LineID, quantity int) bool {
	idx := indexOf(c.guest, id)
	if idx < 0 {
		return false
	}
	c.guest[idx].Quantity = quantity
	return true
}

func (c *cache) removeGuest(id LineID) bool {
	idx := indexOf(c.guest, id)
	if idx < 0 {
		return false
	}
	c.guest = append(c.guest[:idx], c.guest[idx+1:]...)
	return true
}

func (c *cache) clearGuest() {
	c.guest = nil
}

// takeGuest hands the guest lines to the caller and leaves the guest cart
// empty, so a line can be claimed by only one merge.
func (c *cache) takeGuest() []Line {
	lines := c.guest
	c.guest = nil
	return lines
}

// returnGuest puts claimed lines back, folding each into any line added for
// the same (product, variant) while they were out.
func (c *cache) returnGuest(lines []Line) {
next:
	for _, line := range lines {
		for i := range c.guest {
			if c.guest[i].matches(line.ProductID, line.Variant) {
				c.guest[i].Quantity += line.Quantity
				continue next
			}
		}
		c.guest = append(c.guest, line.clone())
	}
}

func (c *cache) replaceShadow(lines []Line) {
	c.shadow = cloneLines(lines)
}

func (c *cache) clearShadow() {
	c.shadow = nil
}

func (c *cache) checkpoint() undoToken {
	return undoToken{shadow: cloneLines(c.shadow), valid: true}
}

func (c *cache) rollback(token undoToken) {
	if !token.valid {
		return
	}
	c.shadow = cloneLines(token.shadow)
}

func (c *cache) setShadowQuantity(id LineID, quantity int) bool {
	idx := indexOf(c.shadow, id)
	if idx < 0 {
		return false
	}
	c.shadow[idx].Quantity = quantity
	return true
}

func (c *cache) removeShadow(id LineID) bool {
	idx := indexOf(c.shadow, id)
	if idx < 0 {
		return false
	}
	c.shadow = append(c.shadow[:idx], c.shadow[idx+1:]...)
	return true
}

func indexOf(lines []Line, id LineID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// NewVariantFrom copies v, collapsing a blank variant to nil.
func NewVariantFrom(v *Variant) *Variant {
	if v == nil {
		return nil
	}
	return NewVariant(v.Size, v.Color)
}

func snapshotCopy(s *Snapshot) *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	return &out
}
