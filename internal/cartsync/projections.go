package cartsync

import "github.com/shopspring/decimal"

// Total sums snapshot price times quantity. Live prices are not consulted.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// ItemCount sums quantities across lines.
func ItemCount(lines []Line) int {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}

// ItemQuantity returns the quantity of the line matching productID and
// variant, or 0 when there is none.
func ItemQuantity(lines []Line, productID string, variant *Variant) int {
	for _, line := range lines {
		if line.matches(productID, variant) {
			return line.Quantity
		}
	}
	return 0
}

// Items returns a copy of the active cart.
func (e *Engine) Items() []Line {
	e.mu.RLock()
	defer e.mu.RUnlock()
	lines := cloneLines(e.cache.active(e.modeLocked()))
	if lines == nil {
		return []Line{}
	}
	return lines
}

// Total projects the active cart's total.
func (e *Engine) Total() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Total(e.cache.active(e.modeLocked()))
}

// ItemsCount projects the active cart's item count.
func (e *Engine) ItemsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ItemCount(e.cache.active(e.modeLocked()))
}

// ItemQuantity projects the quantity of one product/variant in the active cart.
func (e *Engine) ItemQuantity(productID string, variant *Variant) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return ItemQuantity(e.cache.active(e.modeLocked()), productID, variant)
}
