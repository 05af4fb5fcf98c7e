package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/metrics"
)

// InstrumentedClient wraps a Client with metrics and tracing. Every operation
// issued through it runs on a context bounded by the configured operation
// timeout, so no storage call can block a request indefinitely.
type InstrumentedClient struct {
	client  *Client
	metrics *metrics.Metrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewInstrumentedClient creates a new instrumented MongoDB client
func NewInstrumentedClient(client *Client, m *metrics.Metrics, logger *logging.Logger) *InstrumentedClient {
	return &InstrumentedClient{
		client:  client,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("mongodb"),
	}
}

// Collection returns an instrumented collection
func (c *InstrumentedClient) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.client.Collection(name),
		client:     c.client,
		name:       name,
		database:   c.client.config.Database,
		metrics:    c.metrics,
		logger:     c.logger,
		tracer:     c.tracer,
	}
}

// Database returns the underlying database handle
func (c *InstrumentedClient) Database() *mongo.Database {
	return c.client.Database()
}

// Close disconnects the client
func (c *InstrumentedClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// HealthCheck performs a health check with tracing
func (c *InstrumentedClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "mongodb.ping",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
	defer span.End()

	err := c.client.HealthCheck(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// WithTransaction executes a function within a transaction. The whole
// transaction is bounded by the operation timeout and wrapped in one span.
func (c *InstrumentedClient) WithTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "mongodb.transaction",
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.client.config.Database),
		),
	)
	defer span.End()

	start := time.Now()
	err := c.client.WithTransaction(ctx, fn)

	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation("", "transaction", err == nil, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

// RawClient returns the underlying Client
func (c *InstrumentedClient) RawClient() *Client {
	return c.client
}

// InstrumentedCollection wraps a MongoDB collection with metrics and tracing
type InstrumentedCollection struct {
	collection *mongo.Collection
	client     *Client
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.name
}

// Underlying returns the raw mongo.Collection
func (c *InstrumentedCollection) Underlying() *mongo.Collection {
	return c.collection
}

func (c *InstrumentedCollection) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemMongoDB,
			semconv.DBNameKey.String(c.database),
			semconv.DBOperationKey.String(operation),
			attribute.String("db.collection", c.name),
		),
	)
}

func (c *InstrumentedCollection) record(span trace.Span, operation string, err error, start time.Time) {
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.name, operation, err == nil, duration)
	}
	if c.logger != nil {
		c.logger.Debug("Mongo operation",
			"collection", c.name,
			"operation", operation,
			"duration", duration,
			"success", err == nil,
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// InsertOne inserts a single document
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "insertOne")
	defer span.End()

	start := time.Now()
	result, err := c.collection.InsertOne(ctx, document, opts...)
	c.record(span, "insertOne", err, start)
	return result, err
}

// InsertMany inserts multiple documents
func (c *InstrumentedCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "insertMany")
	defer span.End()
	span.SetAttributes(attribute.Int("db.batch_size", len(documents)))

	start := time.Now()
	result, err := c.collection.InsertMany(ctx, documents, opts...)
	c.record(span, "insertMany", err, start)
	return result, err
}

// FindOne finds a single document. The query executes eagerly, so the result
// can be decoded after the bounded context is released.
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "findOne")
	defer span.End()

	start := time.Now()
	result := c.collection.FindOne(ctx, filter, opts...)
	err := result.Err()
	if err == mongo.ErrNoDocuments {
		err = nil // a miss is a successful round trip
	}
	c.record(span, "findOne", err, start)
	return result
}

// FindAll runs a find and decodes the full result set into results while the
// bounded context is still alive.
func (c *InstrumentedCollection) FindAll(ctx context.Context, filter interface{}, results interface{}, opts ...*options.FindOptions) error {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "find")
	defer span.End()

	start := time.Now()
	cursor, err := c.collection.Find(ctx, filter, opts...)
	if err == nil {
		err = cursor.All(ctx, results)
	}
	c.record(span, "find", err, start)
	return err
}

// UpdateOne updates a single document
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "updateOne")
	defer span.End()

	start := time.Now()
	result, err := c.collection.UpdateOne(ctx, filter, update, opts...)
	c.record(span, "updateOne", err, start)
	if err == nil && result != nil {
		span.SetAttributes(
			attribute.Int64("db.matched_count", result.MatchedCount),
			attribute.Int64("db.modified_count", result.ModifiedCount),
		)
	}
	return result, err
}

// DeleteOne deletes a single document
func (c *InstrumentedCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "deleteOne")
	defer span.End()

	start := time.Now()
	result, err := c.collection.DeleteOne(ctx, filter, opts...)
	c.record(span, "deleteOne", err, start)
	return result, err
}

// DeleteMany deletes multiple documents
func (c *InstrumentedCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "deleteMany")
	defer span.End()

	start := time.Now()
	result, err := c.collection.DeleteMany(ctx, filter, opts...)
	c.record(span, "deleteMany", err, start)
	return result, err
}

// CountDocuments counts documents matching the filter
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "countDocuments")
	defer span.End()

	start := time.Now()
	count, err := c.collection.CountDocuments(ctx, filter, opts...)
	c.record(span, "countDocuments", err, start)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.count", count))
	}
	return count, err
}

// FindOneAndUpdate finds and updates a document atomically
func (c *InstrumentedCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "findOneAndUpdate")
	defer span.End()

	start := time.Now()
	result := c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
	err := result.Err()
	if err == mongo.ErrNoDocuments {
		err = nil
	}
	c.record(span, "findOneAndUpdate", err, start)
	return result
}

// CreateIndexes creates the given indexes on the collection
func (c *InstrumentedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) ([]string, error) {
	ctx, cancel := c.client.OperationContext(ctx)
	defer cancel()
	ctx, span := c.startSpan(ctx, "createIndexes")
	defer span.End()

	start := time.Now()
	names, err := c.collection.Indexes().CreateMany(ctx, models)
	c.record(span, "createIndexes", err, start)
	return names, err
}
