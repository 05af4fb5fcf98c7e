package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/akshayrajeevnambiar/Pantrypal/internal/domain"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/kafka"
	sharedMongo "github.com/akshayrajeevnambiar/Pantrypal/pkg/mongodb"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/outbox"
	outboxMongo "github.com/akshayrajeevnambiar/Pantrypal/pkg/outbox/mongodb"
)

// CountRepository persists counts and, inside the same transaction, the item
// quantity sync and the outbox events a decision produces.
type CountRepository struct {
	client     *sharedMongo.InstrumentedClient
	counts     *sharedMongo.InstrumentedCollection
	items      *sharedMongo.InstrumentedCollection
	outboxRepo *outboxMongo.OutboxRepository
}

// NewCountRepository creates a count repository and ensures its indexes.
func NewCountRepository(client *sharedMongo.InstrumentedClient) *CountRepository {
	repo := &CountRepository{
		client:     client,
		counts:     client.Collection("counts"),
		items:      client.Collection("items"),
		outboxRepo: outboxMongo.NewOutboxRepository(client),
	}
	repo.ensureIndexes(context.Background())
	_ = repo.outboxRepo.EnsureIndexes(context.Background())
	return repo
}

func (r *CountRepository) ensureIndexes(ctx context.Context) {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "submittedAt", Value: -1}}},
		{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "submittedAt", Value: -1}}},
		{Keys: bson.D{{Key: "submittedBy", Value: 1}, {Key: "submittedAt", Value: -1}}},
	}
	r.counts.CreateIndexes(ctx, indexes)
}

// topicFor routes a domain event to its Kafka topic.
func topicFor(event domain.DomainEvent) string {
	if _, ok := event.(*domain.LowStockDetectedEvent); ok {
		return kafka.Topics.StockAlerts
	}
	return kafka.Topics.CountEvents
}

func outboxEventsFor(count *domain.Count) ([]*outbox.OutboxEvent, error) {
	events := count.GetDomainEvents()
	if len(events) == 0 {
		return nil, nil
	}

	outboxEvents := make([]*outbox.OutboxEvent, 0, len(events))
	for _, event := range events {
		outboxEvent, err := outbox.NewOutboxEvent(count.ID.Hex(), "Count", topicFor(event), event)
		if err != nil {
			return nil, fmt.Errorf("failed to create outbox event: %w", err)
		}
		outboxEvents = append(outboxEvents, outboxEvent)
	}
	return outboxEvents, nil
}

// Create persists a single pending count together with its outbox events.
func (r *CountRepository) Create(ctx context.Context, count *domain.Count) error {
	if count.ID.IsZero() {
		count.ID = sharedMongo.GenerateID()
	}

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.counts.InsertOne(sessCtx, count); err != nil {
			return fmt.Errorf("failed to insert count: %w", err)
		}

		outboxEvents, err := outboxEventsFor(count)
		if err != nil {
			return err
		}
		return r.outboxRepo.SaveAll(sessCtx, outboxEvents)
	})
	if err != nil {
		return err
	}

	count.ClearDomainEvents()
	return nil
}

// CreateBatch persists all counts in one transaction so a single invalid
// entry leaves nothing behind.
func (r *CountRepository) CreateBatch(ctx context.Context, counts []*domain.Count) error {
	if len(counts) == 0 {
		return domain.ErrEmptyBatch
	}

	docs := make([]interface{}, 0, len(counts))
	var outboxEvents []*outbox.OutboxEvent
	for _, count := range counts {
		if count.ID.IsZero() {
			count.ID = sharedMongo.GenerateID()
		}
		docs = append(docs, count)

		events, err := outboxEventsFor(count)
		if err != nil {
			return err
		}
		outboxEvents = append(outboxEvents, events...)
	}

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.counts.InsertMany(sessCtx, docs); err != nil {
			return fmt.Errorf("failed to insert counts: %w", err)
		}
		return r.outboxRepo.SaveAll(sessCtx, outboxEvents)
	})
	if err != nil {
		return err
	}

	for _, count := range counts {
		count.ClearDomainEvents()
	}
	return nil
}

// FindByID returns the count or ErrCountNotFound.
func (r *CountRepository) FindByID(ctx context.Context, id string) (*domain.Count, error) {
	objectID, err := sharedMongo.ParseID(id)
	if err != nil {
		return nil, domain.ErrCountNotFound
	}

	var count domain.Count
	err = r.counts.FindOne(ctx, bson.M{"_id": objectID}).Decode(&count)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrCountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find count: %w", err)
	}
	return &count, nil
}

func buildCountFilter(filter domain.CountFilter) bson.M {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.ItemID != "" {
		query["itemId"] = filter.ItemID
	}
	if filter.SubmittedBy != "" {
		query["submittedBy"] = filter.SubmittedBy
	}
	return query
}

// List returns a page of counts ordered by submission time, newest first,
// plus the total matching the filter.
func (r *CountRepository) List(ctx context.Context, filter domain.CountFilter, limit, offset int) ([]*domain.Count, int64, error) {
	query := buildCountFilter(filter)

	total, err := r.counts.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count counts: %w", err)
	}

	opts := options.Find().
		SetSort(sharedMongo.SortDescending("submittedAt")).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	counts := make([]*domain.Count, 0)
	if err := r.counts.FindAll(ctx, query, &counts, opts); err != nil {
		return nil, 0, fmt.Errorf("failed to find counts: %w", err)
	}

	return counts, total, nil
}

// HasCountsForItem reports whether any count references the item.
func (r *CountRepository) HasCountsForItem(ctx context.Context, itemID string) (bool, error) {
	count, err := r.counts.CountDocuments(ctx, bson.M{"itemId": itemID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check count history: %w", err)
	}
	return count > 0, nil
}

// Decide commits a reviewer decision. The status transition is a
// check-and-set on the stored pending state, so concurrent reviewers race on
// the same filter and exactly one wins. An approval writes the item's
// current quantity inside the same transaction; if that write fails the
// transaction aborts and the count stays pending.
func (r *CountRepository) Decide(ctx context.Context, count *domain.Count) error {
	update := bson.M{
		"status":     count.Status,
		"approvedBy": count.ApprovedBy,
		"approvedAt": count.ApprovedAt,
	}
	if count.ApprovedCount != nil {
		update["approvedCount"] = *count.ApprovedCount
	}

	err := r.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res := r.counts.FindOneAndUpdate(sessCtx,
			bson.M{"_id": count.ID, "status": domain.StatusPending},
			bson.M{"$set": update},
		)
		if res.Err() == mongo.ErrNoDocuments {
			return r.classifyLostRace(sessCtx, count)
		}
		if res.Err() != nil {
			return fmt.Errorf("failed to update count: %w", res.Err())
		}

		if count.Status == domain.StatusApproved && count.ApprovedCount != nil {
			itemID, err := sharedMongo.ParseID(count.ItemID)
			if err != nil {
				return domain.ErrItemNotFound
			}

			result, err := r.items.UpdateOne(sessCtx,
				bson.M{"_id": itemID},
				sharedMongo.BuildUpdateWithTimestamp(bson.M{"currentQty": *count.ApprovedCount}),
			)
			if err != nil {
				return fmt.Errorf("failed to sync item quantity: %w", err)
			}
			if result.MatchedCount == 0 {
				return domain.ErrItemNotFound
			}
		}

		outboxEvents, err := outboxEventsFor(count)
		if err != nil {
			return err
		}
		return r.outboxRepo.SaveAll(sessCtx, outboxEvents)
	})
	if err != nil {
		return err
	}

	count.ClearDomainEvents()
	return nil
}

// classifyLostRace distinguishes a missing count from one that was already
// decided by another reviewer.
func (r *CountRepository) classifyLostRace(ctx context.Context, count *domain.Count) error {
	err := r.counts.FindOne(ctx, bson.M{"_id": count.ID}).Err()
	if err == mongo.ErrNoDocuments {
		return domain.ErrCountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to re-check count: %w", err)
	}
	return domain.ErrCountAlreadyDecided
}

// OutboxRepository exposes the outbox store sharing this repository's database.
func (r *CountRepository) OutboxRepository() outbox.Repository {
	return r.outboxRepo
}
