package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/akshayrajeevnambiar/Pantrypal/pkg/kafka"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/metrics"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/resilience"
)

// EventPublisher is the Kafka-facing side of the relay. Satisfied by both the
// raw producer and its instrumented wrapper.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *kafka.Event) error
}

// Publisher publishes events from the outbox to Kafka
type Publisher struct {
	repo      Repository
	producer  EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	breaker   *resilience.CircuitBreaker
	interval  time.Duration
	batchSize int

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	stoppedCh    chan struct{}
	publishedCnt int
	failedCnt    int
}

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int

	// Breaker guards the Kafka publish path. When nil a default breaker
	// is created.
	Breaker *resilience.CircuitBreaker
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
	}
}

// NewPublisher creates a new outbox publisher
func NewPublisher(
	repo Repository,
	producer EventPublisher,
	logger *logging.Logger,
	m *metrics.Metrics,
	config *PublisherConfig,
) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	breaker := config.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("kafka-publisher"), logger)
	}

	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger,
		metrics:   m,
		breaker:   breaker,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start starts the outbox publisher
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher already running")
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("Starting outbox publisher", "interval", p.interval, "batchSize", p.batchSize)

	go p.run(ctx)
	return nil
}

// Stop stops the outbox publisher
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher not running")
	}
	p.mu.Unlock()

	p.logger.Info("Stopping outbox publisher")
	close(p.stopCh)
	<-p.stoppedCh

	p.mu.Lock()
	p.running = false
	published, failed := p.publishedCnt, p.failedCnt
	p.mu.Unlock()

	p.logger.Info("Outbox publisher stopped", "published", published, "failed", failed)
	return nil
}

// run is the main publisher loop
func (p *Publisher) run(ctx context.Context) {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.processEvents(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			p.logger.Info("Publisher context cancelled")
			return
		}
	}
}

// processEvents publishes pending events and records the outcome per event
func (p *Publisher) processEvents(ctx context.Context) {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return
	}

	if len(events) == 0 {
		return
	}

	p.logger.Debug("Processing outbox events", "count", len(events))

	for _, event := range events {
		if !event.ShouldRetry() {
			continue
		}

		duration, err := p.publishEvent(ctx, event)
		if p.metrics != nil {
			p.metrics.RecordKafkaPublish(event.Topic, event.EventType, err == nil, duration)
		}

		if err != nil {
			// An open circuit means the broker is down; the rest of the
			// batch would only fail the same way, so give up until the
			// next tick without burning retry budget.
			if errors.Is(err, resilience.ErrCircuitOpen) {
				p.logger.Warn("Kafka circuit open, deferring outbox batch")
				return
			}

			p.logger.WithError(err).Error("Failed to publish event",
				"eventId", event.ID,
				"eventType", event.EventType,
				"aggregateId", event.AggregateID,
			)
			p.mu.Lock()
			p.failedCnt++
			p.mu.Unlock()

			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to increment retry count", "eventId", event.ID)
			}
			continue
		}

		p.mu.Lock()
		p.publishedCnt++
		p.mu.Unlock()
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark event as published", "eventId", event.ID)
		}
	}
}

// publishEvent publishes a single event to Kafka, retrying transient broker
// failures with exponential backoff before handing the event back to the
// outbox retry counter.
func (p *Publisher) publishEvent(ctx context.Context, event *OutboxEvent) (time.Duration, error) {
	start := time.Now()

	kafkaEvent := &kafka.Event{
		Key:           event.AggregateID,
		Type:          event.EventType,
		Payload:       event.Payload,
		CorrelationID: event.CorrelationID,
		Time:          event.CreatedAt,
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = resilience.DefaultRetryInitialDelay
	expBackoff.MaxInterval = resilience.DefaultRetryMaxDelay
	expBackoff.Multiplier = resilience.DefaultRetryBackoffFactor

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(resilience.DefaultRetryMaxAttempts)), ctx)
	_, err := p.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, backoff.Retry(func() error {
			return p.producer.PublishEvent(ctx, event.Topic, kafkaEvent)
		}, policy)
	})

	duration := time.Since(start)
	if err != nil {
		return duration, fmt.Errorf("failed to publish to Kafka: %w", err)
	}

	p.logger.Info("Published event from outbox",
		"eventId", event.ID,
		"eventType", event.EventType,
		"topic", event.Topic,
		"aggregateId", event.AggregateID,
		"duration", duration,
	)

	return duration, nil
}

// IsRunning returns whether the publisher is running
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns publisher statistics
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"published": p.publishedCnt,
		"failed":    p.failedCnt,
	}
}
