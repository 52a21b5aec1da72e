package domain

import "github.com/shopspring/decimal"

// LineKey identifies a line item. Two lines with equal keys are the same
// logical item and are merged, never duplicated.
type LineKey struct {
	ProductID string
	Size      string
	Color     string
}

// Line is implemented by both the stored cart item and the device-local line.
type Line[T any] interface {
	Key() LineKey
	Qty() int
	WithQty(q int) T
}

type Priced interface {
	UnitPrice() float64
	Qty() int
}

// QuantityPolicy decides what a quantity update below one means.
type QuantityPolicy int

const (
	// FloorAtOne clamps the quantity to 1 and keeps the line.
	FloorAtOne QuantityPolicy = iota
	// RemoveAtZero drops the line when the quantity is <= 0.
	RemoveAtZero
)

// MatchMode decides how an absent size or color is compared.
type MatchMode int

const (
	// MatchWildcard treats an absent size/color as "any".
	MatchWildcard MatchMode = iota
	// MatchExact treats an absent size/color as the empty value.
	MatchExact
)

// Selector picks the lines a quantity update or removal applies to.
type Selector struct {
	ProductID string
	Size      *string
	Color     *string
}

func (s Selector) Matches(k LineKey, mode MatchMode) bool {
	if k.ProductID != s.ProductID {
		return false
	}
	return matchField(k.Size, s.Size, mode) && matchField(k.Color, s.Color, mode)
}

func matchField(have string, want *string, mode MatchMode) bool {
	if mode == MatchWildcard {
		if want == nil || *want == "" {
			return true
		}
		return have == *want
	}
	if want == nil {
		return have == ""
	}
	return have == *want
}

// MergeAdd increments the quantity of the line sharing line's key, or appends
// line at the end. The input slice is not modified.
func MergeAdd[T Line[T]](lines []T, line T) []T {
	out := make([]T, 0, len(lines)+1)
	merged := false
	for _, l := range lines {
		if !merged && l.Key() == line.Key() {
			l = l.WithQty(l.Qty() + line.Qty())
			merged = true
		}
		out = append(out, l)
	}
	if !merged {
		out = append(out, line)
	}
	return out
}

// ApplyQuantity sets the quantity of every matching line under the given policy.
func ApplyQuantity[T Line[T]](lines []T, sel Selector, mode MatchMode, qty int, policy QuantityPolicy) []T {
	out := make([]T, 0, len(lines))
	for _, l := range lines {
		if !sel.Matches(l.Key(), mode) {
			out = append(out, l)
			continue
		}
		if qty <= 0 && policy == RemoveAtZero {
			continue
		}
		out = append(out, l.WithQty(max(1, qty)))
	}
	return out
}

// RemoveMatching drops every line matched by sel.
func RemoveMatching[T Line[T]](lines []T, sel Selector, mode MatchMode) []T {
	out := make([]T, 0, len(lines))
	for _, l := range lines {
		if !sel.Matches(l.Key(), mode) {
			out = append(out, l)
		}
	}
	return out
}

// Collapse merges lines with duplicate keys, keeping first-seen order.
func Collapse[T Line[T]](lines []T) []T {
	var out []T
	for _, l := range lines {
		out = MergeAdd(out, l)
	}
	return out
}

// Total is sum(price * quantity) over lines.
func Total[T Priced](lines []T) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.UnitPrice()).Mul(decimal.NewFromInt(int64(l.Qty()))))
	}
	return sum.InexactFloat64()
}
