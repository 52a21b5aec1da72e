package domain

type Favorites struct {
	UserID     string   `bson:"user_id" json:"userId"`
	ProductIDs []string `bson:"product_ids" json:"productIds"`
}

func (f *Favorites) Contains(productID string) bool {
	for _, id := range f.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// FavoriteEntry is a favorite joined with its product; Product is nil for a dangling id.
type FavoriteEntry struct {
	ProductID string
	Product   *Product
}

// ResolveFavorites joins ids with products in favorites order.
func ResolveFavorites(f *Favorites, products map[string]*Product) []FavoriteEntry {
	entries := make([]FavoriteEntry, len(f.ProductIDs))
	for i, id := range f.ProductIDs {
		entries[i] = FavoriteEntry{ProductID: id, Product: products[id]}
	}
	return entries
}

// Products returns the resolved products, skipping dangling entries.
func Products(entries []FavoriteEntry) []Product {
	out := make([]Product, 0, len(entries))
	for _, e := range entries {
		if e.Product != nil {
			out = append(out, *e.Product)
		}
	}
	return out
}
