package domain

import "time"

type Gender string

const (
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderUnisex Gender = "Unisex"
)

// Product is owned by the catalog; the cart and favorites only read it.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Images      []string          `json:"images"`
	Category    string            `json:"category"`
	Collection  string            `json:"collection"`
	Gender      Gender            `json:"gender"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`
	Stock       int               `json:"stock"`
	Featured    bool              `json:"featured"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (p *Product) Snapshot() *ProductSnapshot {
	return &ProductSnapshot{
		ID:     p.ID,
		Name:   p.Name,
		Price:  p.Price,
		Images: p.Images,
	}
}

func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
