package domain

import "time"

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// CartItem is the stored form of a line item. Display fields are never
// persisted; they are joined from the product record on every read.
type CartItem struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Size      string    `bson:"size" json:"size"`
	Color     string    `bson:"color" json:"color"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	AddedAt   time.Time `bson:"added_at" json:"addedAt"`
}

func (i CartItem) Key() LineKey {
	return LineKey{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

func (i CartItem) Qty() int { return i.Quantity }

func (i CartItem) WithQty(q int) CartItem {
	i.Quantity = q
	return i
}

// ProductSnapshot is the denormalized product data attached to a line item at read time.
type ProductSnapshot struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Price  float64  `json:"price"`
	Images []string `json:"images"`
}

// ResolvedItem is a cart line joined with the live product record.
// Product is nil when the referenced product no longer exists.
type ResolvedItem struct {
	CartItem
	Product *ProductSnapshot `json:"product"`
}

func (r ResolvedItem) UnitPrice() float64 {
	if r.Product == nil {
		return 0
	}
	return r.Product.Price
}

type ResolvedCart struct {
	UserID    string         `json:"userId"`
	Items     []ResolvedItem `json:"items"`
	Total     float64        `json:"total"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Resolve joins cart items with the given products, keyed by product id.
func Resolve(cart *Cart, products map[string]*Product) *ResolvedCart {
	items := make([]ResolvedItem, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = ResolvedItem{CartItem: item}
		if p, ok := products[item.ProductID]; ok && p != nil {
			items[i].Product = p.Snapshot()
		}
	}
	return &ResolvedCart{
		UserID:    cart.UserID,
		Items:     items,
		Total:     Total(items),
		UpdatedAt: cart.UpdatedAt,
	}
}
