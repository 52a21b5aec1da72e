package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type Address struct {
	Name    string `bson:"name" json:"name" validate:"required"`
	Address string `bson:"address" json:"address" validate:"required"`
	City    string `bson:"city" json:"city" validate:"required"`
	State   string `bson:"state" json:"state"`
	Zip     string `bson:"zip" json:"zip" validate:"required"`
	Country string `bson:"country" json:"country" validate:"required"`
}

type Order struct {
	ID              string      `bson:"_id,omitempty" json:"id"`
	UserID          string      `bson:"user_id" json:"userId"`
	Items           []OrderItem `bson:"items" json:"items"`
	TotalAmount     float64     `bson:"total_amount" json:"totalAmount"`
	Status          OrderStatus `bson:"status" json:"status"`
	ShippingAddress Address     `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string      `bson:"payment_method" json:"paymentMethod"`
	CreatedAt       time.Time   `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `bson:"updated_at" json:"updatedAt"`
}

type OrderItem struct {
	ProductID string  `bson:"product_id" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Size      string  `bson:"size" json:"size"`
	Color     string  `bson:"color" json:"color"`
}

func (i OrderItem) UnitPrice() float64 { return i.Price }

func (i OrderItem) Qty() int { return i.Quantity }
