package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Angmiin/buccynew/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrItemNotFound     = errors.New("item not found in cart")
	ErrConcurrentUpdate = errors.New("cart changed concurrently, retries exhausted")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")
)

const maxUpsertAttempts = 5

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	now := time.Now()
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"items":      bson.A{},
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var cart domain.Cart
	var err error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		err = m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&cart)
		// two first reads can race on the unique owner index; the loser re-reads
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// AddItem is an upsert-or-increment without a read-then-write window: the
// increment only matches when the line exists, and the push only matches when
// it does not. A lost race surfaces as zero matches or a duplicate key on the
// owner index and is retried.
func (m *mongoRepository) AddItem(ctx context.Context, userID string, item domain.CartItem) error {
	now := time.Now()
	item.AddedAt = now
	line := lineFilter(item.Key())

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		incFilter := bson.M{
			"user_id": userID,
			"items":   bson.M{"$elemMatch": line},
		}
		inc := bson.M{
			"$inc": bson.M{"items.$.quantity": item.Quantity},
			"$set": bson.M{"updated_at": now},
		}
		res, err := m.collection.UpdateOne(ctx, incFilter, inc)
		if err != nil {
			return fmt.Errorf("failed to increment existing item: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		pushFilter := bson.M{
			"user_id": userID,
			"items":   bson.M{"$not": bson.M{"$elemMatch": line}},
		}
		push := bson.M{
			"$push":        bson.M{"items": item},
			"$set":         bson.M{"updated_at": now},
			"$setOnInsert": bson.M{"created_at": now},
		}
		_, err = m.collection.UpdateOne(ctx, pushFilter, push, options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add new item: %w", err)
		}
	}

	return ErrConcurrentUpdate
}

func (m *mongoRepository) UpdateItemQuantity(ctx context.Context, userID string, key domain.LineKey, quantity int) error {
	if quantity <= 0 {
		return m.RemoveItem(ctx, userID, key)
	}

	filter := bson.M{
		"user_id": userID,
		"items":   bson.M{"$elemMatch": lineFilter(key)},
	}
	update := bson.M{
		"$set": bson.M{
			"items.$[elem].quantity": quantity,
			"updated_at":             time.Now(),
		},
	}
	arrayFilters := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{
			bson.M{
				"elem.product_id": key.ProductID,
				"elem.size":       key.Size,
				"elem.color":      key.Color,
			},
		},
	})

	result, err := m.collection.UpdateOne(ctx, filter, update, arrayFilters)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (m *mongoRepository) RemoveItem(ctx context.Context, userID string, key domain.LineKey) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$pull": bson.M{"items": lineFilter(key)},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	return nil
}

func (m *mongoRepository) ClearCart(ctx context.Context, userID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{
			"items":      bson.A{},
			"updated_at": time.Now(),
		},
	}

	if _, err := m.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (m *mongoRepository) SetCart(ctx context.Context, userID string, items []domain.CartItem) error {
	now := time.Now()
	if items == nil {
		items = []domain.CartItem{}
	}
	for i := range items {
		if items[i].AddedAt.IsZero() {
			items[i].AddedAt = now
		}
	}

	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$set": bson.M{
			"items":      items,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	var err error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		_, err = m.collection.UpdateOne(ctx, filter, update, opts)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set cart: %w", err)
	}
	return nil
}

func lineFilter(key domain.LineKey) bson.M {
	return bson.M{
		"product_id": key.ProductID,
		"size":       key.Size,
		"color":      key.Color,
	}
}
