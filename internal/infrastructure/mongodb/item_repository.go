package mongodb

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	sharedMongo "github.com/akshayrajeevnambiar/Pantrypal/pkg/mongodb"
)

// ItemRepository persists catalog items. Item.CurrentQty is never written
// here; only count approval touches it.
type ItemRepository struct {
	collection *sharedMongo.InstrumentedCollection
}

// NewItemRepository creates an item repository and ensures its indexes.
func NewItemRepository(client *sharedMongo.InstrumentedClient) *ItemRepository {
	repo := &ItemRepository{
		collection: client.Collection("items"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *ItemRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		// nameLower backs the case-insensitive uniqueness rule
		{Keys: bson.D{{Key: "nameLower", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "name", Value: 1}}},
	}
	r.collection.CreateIndexes(ctx, indexes)
}

// Create persists a new item, translating a duplicate key on nameLower into
// ErrItemNameTaken.
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	if item.ID.IsZero() {
		item.ID = sharedMongo.GenerateID()
	}

	_, err := r.collection.InsertOne(ctx, item)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrItemNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// Update persists catalog field changes. CurrentQty is deliberately excluded
// from the update document.
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	update := bson.M{
		"name":      item.Name,
		"nameLower": item.NameLower,
		"baseUnit":  item.BaseUnit,
		"parLevel":  item.ParLevel,
		"isActive":  item.IsActive,
		"updatedAt": item.UpdatedAt,
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": update})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrItemNameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// FindByID returns the item or ErrItemNotFound.
func (r *ItemRepository) FindByID(ctx context.Context, id string) (*domain.Item, error) {
	objectID, err := sharedMongo.ParseID(id)
	if err != nil {
		return nil, domain.ErrItemNotFound
	}

	var item domain.Item
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find item: %w", err)
	}
	return &item, nil
}

func buildItemFilter(filter domain.ItemFilter) bson.M {
	query := bson.M{}
	if filter.Search != "" {
		query["name"] = bson.M{"$regex": primitive.Regex{
			Pattern: regexp.QuoteMeta(filter.Search),
			Options: "i",
		}}
	}
	if filter.ActiveOnly {
		query["isActive"] = true
	}
	return query
}

// List returns a page of items ordered by name plus the total matching the filter.
func (r *ItemRepository) List(ctx context.Context, filter domain.ItemFilter, limit, offset int) ([]*domain.Item, int64, error) {
	query := buildItemFilter(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	opts := options.Find().
		SetSort(sharedMongo.SortAscending("name")).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	items := make([]*domain.Item, 0)
	if err := r.collection.FindAll(ctx, query, &items, opts); err != nil {
		return nil, 0, fmt.Errorf("failed to find items: %w", err)
	}

	return items, total, nil
}

// FindBelowPar returns active items whose on-hand quantity is below par, by name.
func (r *ItemRepository) FindBelowPar(ctx context.Context) ([]*domain.Item, error) {
	query := bson.M{
		"isActive": true,
		"$expr":    bson.M{"$lt": []string{"$currentQty", "$parLevel"}},
	}

	opts := options.Find().SetSort(sharedMongo.SortAscending("name"))
	items := make([]*domain.Item, 0)
	if err := r.collection.FindAll(ctx, query, &items, opts); err != nil {
		return nil, fmt.Errorf("failed to find items below par: %w", err)
	}
	return items, nil
}

// Delete removes the item document. Callers guard against count history.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	objectID, err := sharedMongo.ParseID(id)
	if err != nil {
		return domain.ErrItemNotFound
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}
