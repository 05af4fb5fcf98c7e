package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayrajeevnambiar/Pantrypal/pkg/kafka"
	"github.com/akshayrajeevnambiar/Pantrypal/pkg/logging"
)

type fakePublishRepo struct {
	mu        sync.Mutex
	events    []*OutboxEvent
	published map[string]bool
	retried   map[string]int
}

func newFakePublishRepo(events ...*OutboxEvent) *fakePublishRepo {
	return &fakePublishRepo{
		events:    events,
		published: make(map[string]bool),
		retried:   make(map[string]int),
	}
}

func (f *fakePublishRepo) Save(ctx context.Context, event *OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublishRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *fakePublishRepo) FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := make([]*OutboxEvent, 0)
	for _, event := range f.events {
		if f.published[event.ID] {
			continue
		}
		pending = append(pending, event)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (f *fakePublishRepo) MarkPublished(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[eventID] = true
	return nil
}

func (f *fakePublishRepo) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried[eventID]++
	return nil
}

func (f *fakePublishRepo) DeletePublished(ctx context.Context, olderThan time.Duration) error {
	return nil
}

type fakeEventPublisher struct {
	mu         sync.Mutex
	failTopics map[string]error
	publishes  int
}

func (f *fakeEventPublisher) PublishEvent(ctx context.Context, topic string, event *kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTopics[topic]; ok {
		return err
	}
	f.publishes++
	return nil
}

func mustOutboxEvent(t *testing.T, topic string) *OutboxEvent {
	t.Helper()
	event, err := NewOutboxEvent("count-1", "Count", topic, &stubEvent{At: time.Now().UTC()})
	require.NoError(t, err)
	return event
}

func newTestPublisher(repo Repository, producer EventPublisher) *Publisher {
	logger := logging.New(logging.DefaultConfig("test"))
	return NewPublisher(repo, producer, logger, nil, &PublisherConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})
}

func TestPublisherProcessesBatch(t *testing.T) {
	good := mustOutboxEvent(t, "pantrypal.counts.events")
	bad := mustOutboxEvent(t, "pantrypal.stock.alerts")
	repo := newFakePublishRepo(good, bad)
	producer := &fakeEventPublisher{
		failTopics: map[string]error{"pantrypal.stock.alerts": errors.New("broker unreachable")},
	}

	p := newTestPublisher(repo, producer)
	p.processEvents(context.Background())

	assert.True(t, repo.published[good.ID])
	assert.False(t, repo.published[bad.ID])
	assert.Positive(t, repo.retried[bad.ID])

	stats := p.Stats()
	assert.Equal(t, 1, stats["published"])
	assert.Equal(t, 1, stats["failed"])
}

func TestPublisherStatsSafeWhileProcessing(t *testing.T) {
	events := make([]*OutboxEvent, 0, 20)
	for i := 0; i < 20; i++ {
		events = append(events, mustOutboxEvent(t, "pantrypal.counts.events"))
	}
	repo := newFakePublishRepo(events...)
	p := newTestPublisher(repo, &fakeEventPublisher{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Stats reads race against the counter increments unless both
		// sides hold the mutex.
		for i := 0; i < 100; i++ {
			p.Stats()
		}
	}()

	p.processEvents(context.Background())
	p.processEvents(context.Background())
	<-done

	assert.Equal(t, 20, p.Stats()["published"])
	assert.Equal(t, 0, p.Stats()["failed"])
}

func TestPublisherLifecycle(t *testing.T) {
	repo := newFakePublishRepo(mustOutboxEvent(t, "pantrypal.counts.events"))
	producer := &fakeEventPublisher{}
	p := newTestPublisher(repo, producer)

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()), "double start must be rejected")

	assert.Eventually(t, func() bool {
		return p.Stats()["published"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop(), "double stop must be rejected")
}
