package storefront

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Angmiin/buccynew/internal/domain"
)

// LineItem is a device-local cart line. Display fields are captured when the
// product is added and are not refreshed afterwards.
type LineItem struct {
	ProductID string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Quantity  int     `json:"quantity"`
}

func (l LineItem) Key() domain.LineKey {
	return domain.LineKey{ProductID: l.ProductID, Size: l.Size, Color: l.Color}
}

func (l LineItem) Qty() int { return l.Quantity }

func (l LineItem) WithQty(q int) LineItem {
	l.Quantity = q
	return l
}

func (l LineItem) UnitPrice() float64 { return l.Price }

// Variant selects lines by id; empty size or color match any value.
func Variant(productID, size, color string) domain.Selector {
	return domain.Selector{ProductID: productID, Size: &size, Color: &color}
}

// LocalCart is the optimistic, device-persisted cart. Mutations always apply
// in memory; a persistence failure is returned but never rolled back.
type LocalCart struct {
	m      sync.RWMutex
	items  []LineItem
	store  Storage
	logger *slog.Logger
}

// NewLocalCart hydrates from store. Unreadable data starts an empty cart.
func NewLocalCart(store Storage, logger *slog.Logger) *LocalCart {
	c := &LocalCart{store: store, items: []LineItem{}, logger: logger}

	data, err := store.Load()
	if err != nil {
		logger.Warn("load device cart failed", slog.Any("error", err))
		return c
	}
	if len(data) == 0 {
		return c
	}
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("device cart is corrupt, starting empty", slog.Any("error", err))
		return c
	}
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		c.items = domain.MergeAdd(c.items, item.WithQty(max(1, item.Quantity)))
	}
	return c
}

// Add merges into the line with the same (id, size, color) or appends a new one.
// No stock check happens here.
func (c *LocalCart) Add(p *domain.Product, size, color string, quantity int) error {
	line := LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Size:      size,
		Color:     color,
		Quantity:  max(1, quantity),
	}
	if len(p.Images) > 0 {
		line.Image = p.Images[0]
	}

	return c.mutate(func(items []LineItem) []LineItem {
		return domain.MergeAdd(items, line)
	})
}

// UpdateQuantity floors the quantity at 1; it never removes a line.
func (c *LocalCart) UpdateQuantity(sel domain.Selector, quantity int) error {
	return c.mutate(func(items []LineItem) []LineItem {
		return domain.ApplyQuantity(items, sel, domain.MatchWildcard, quantity, domain.FloorAtOne)
	})
}

// Remove drops every line matched by sel; an empty size or color matches all variants.
func (c *LocalCart) Remove(sel domain.Selector) error {
	return c.mutate(func(items []LineItem) []LineItem {
		return domain.RemoveMatching(items, sel, domain.MatchWildcard)
	})
}

func (c *LocalCart) Clear() error {
	return c.mutate(func([]LineItem) []LineItem {
		return []LineItem{}
	})
}

// Replace swaps in a whole set of lines, merging duplicates.
func (c *LocalCart) Replace(lines []LineItem) error {
	return c.mutate(func([]LineItem) []LineItem {
		out := []LineItem{}
		for _, l := range lines {
			out = domain.MergeAdd(out, l.WithQty(max(1, l.Quantity)))
		}
		return out
	})
}

func (c *LocalCart) Items() []LineItem {
	c.m.RLock()
	defer c.m.RUnlock()
	return append([]LineItem(nil), c.items...)
}

// Total is derived on every call.
func (c *LocalCart) Total() float64 {
	c.m.RLock()
	defer c.m.RUnlock()
	return domain.Total(c.items)
}

// Count is the number of units across all lines.
func (c *LocalCart) Count() int {
	c.m.RLock()
	defer c.m.RUnlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *LocalCart) mutate(fn func([]LineItem) []LineItem) error {
	c.m.Lock()
	defer c.m.Unlock()

	c.items = fn(c.items)
	data, err := json.Marshal(c.items)
	if err != nil {
		return fmt.Errorf("encode device cart: %w", err)
	}

	if err := c.store.Save(data); err != nil {
		c.logger.Warn("persist device cart failed", slog.Any("error", err))
		return fmt.Errorf("persist device cart: %w", err)
	}
	return nil
}
