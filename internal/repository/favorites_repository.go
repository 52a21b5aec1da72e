package repository

import (
	"context"
	"fmt"

	"github.com/Angmiin/buccynew/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type favoritesRepository struct {
	collection *mongo.Collection
}

func NewFavoritesRepository(db *mongo.Database) FavoritesRepository {
	return &favoritesRepository{
		collection: db.Collection("favorites"),
	}
}

func (r *favoritesRepository) GetFavorites(ctx context.Context, userID string) (*domain.Favorites, error) {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$setOnInsert": bson.M{"product_ids": bson.A{}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var favs domain.Favorites
	var err error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&favs)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get favorites: %w", err)
	}

	if favs.ProductIDs == nil {
		favs.ProductIDs = []string{}
	}
	return &favs, nil
}

// AddFavorite inserts productID once; $addToSet makes repeats a no-op.
func (r *favoritesRepository) AddFavorite(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$addToSet": bson.M{"product_ids": productID}}
	opts := options.Update().SetUpsert(true)

	var err error
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		_, err = r.collection.UpdateOne(ctx, filter, update, opts)
		if err == nil || !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *favoritesRepository) RemoveFavorite(ctx context.Context, userID, productID string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$pull": bson.M{"product_ids": productID}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}
