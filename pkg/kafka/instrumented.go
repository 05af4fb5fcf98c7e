package kafka

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
)

// InstrumentedProducer wraps a Producer so every publish is traced.
type InstrumentedProducer struct {
	producer *Producer
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewInstrumentedProducer creates a new instrumented producer
func NewInstrumentedProducer(producer *Producer, logger *logging.Logger) *InstrumentedProducer {
	return &InstrumentedProducer{
		producer: producer,
		logger:   logger,
		tracer:   otel.Tracer("kafka-producer"),
	}
}

func (p *InstrumentedProducer) startSpan(ctx context.Context, name, topic string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("kafka"),
			semconv.MessagingDestinationNameKey.String(topic),
			semconv.MessagingOperationKey.String("publish"),
		),
	)
}

// PublishEvent publishes a single event with tracing
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *Event) error {
	start := time.Now()
	ctx, span := p.startSpan(ctx, "kafka.publish", topic)
	defer span.End()

	span.SetAttributes(attribute.String("messaging.kafka.event_type", event.Type))
	if event.CorrelationID != "" {
		span.SetAttributes(attribute.String("messaging.correlation_id", event.CorrelationID))
	}

	err := p.producer.PublishEvent(ctx, topic, event)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int64("messaging.duration_ms", duration.Milliseconds()))
	if p.logger != nil {
		p.logger.Debug("Published Kafka event", "topic", topic, "eventType", event.Type, "duration", duration)
	}
	return nil
}

// PublishBatch publishes multiple events to a topic with tracing
func (p *InstrumentedProducer) PublishBatch(ctx context.Context, topic string, events []*Event) error {
	start := time.Now()
	ctx, span := p.startSpan(ctx, "kafka.publish.batch", topic)
	defer span.End()

	span.SetAttributes(attribute.Int("messaging.batch.message_count", len(events)))

	err := p.producer.PublishBatch(ctx, topic, events)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int64("messaging.duration_ms", duration.Milliseconds()))
	return nil
}

// Close closes the underlying producer
func (p *InstrumentedProducer) Close() error {
	return p.producer.Close()
}
