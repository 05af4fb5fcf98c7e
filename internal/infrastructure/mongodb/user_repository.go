package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	sharedMongo "github.com/akshayrajeevnambiar/Pantrypal/pkg/mongodb"
)

// UserRepository persists login identities.
type UserRepository struct {
	collection *sharedMongo.InstrumentedCollection
}

// NewUserRepository creates a user repository and ensures its indexes.
func NewUserRepository(client *sharedMongo.InstrumentedClient) *UserRepository {
	repo := &UserRepository{
		collection: client.Collection("users"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *UserRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	r.collection.CreateIndexes(ctx, indexes)
}

// FindByEmail returns the user or ErrUserNotFound. Emails are matched
// case-insensitively by storing them lowercased.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.collection.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByID returns the user or ErrUserNotFound.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	objectID, err := sharedMongo.ParseID(id)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var user domain.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// Upsert creates the user or refreshes an existing one matched by email.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user.ID.IsZero() {
		user.ID = sharedMongo.GenerateID()
	}
	user.Email = strings.ToLower(user.Email)

	update := bson.M{
		"$set": bson.M{
			"name":         user.Name,
			"role":         user.Role,
			"passwordHash": user.PasswordHash,
			"isActive":     user.IsActive,
		},
		"$setOnInsert": bson.M{
			"_id":       user.ID,
			"email":     user.Email,
			"createdAt": user.CreatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"email": user.Email}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
