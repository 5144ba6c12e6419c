package notifier

import (
	"context"
	"log/slog"
	"sync"
)

// Sink receives drained events. The Kafka backend in infra/notifier is one;
// tests use a recording sink.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// Memory is a bounded, non-blocking queue in front of a Sink. When the queue
// is full the event is dropped and counted; the primary operation is never
// delayed.
type Memory struct {
	queue   chan Event
	sink    Sink
	logger  *slog.Logger
	wg      sync.WaitGroup
	once    sync.Once
	dropped int64
	mu      sync.Mutex
}

// slogSink logs events; the default when no external sink is configured.
type slogSink struct {
	logger *slog.Logger
}

func (s *slogSink) Deliver(_ context.Context, event Event) error {
	s.logger.Info("notification",
		"kind", event.Kind,
		"user_id", event.UserID,
		"amount", event.Amount.String(),
		"currency", event.Currency,
		"message", event.Message,
	)
	return nil
}

// NewMemory creates a Memory notifier draining into sink. A nil sink logs
// events through the given logger.
func NewMemory(sink Sink, capacity int, logger *slog.Logger) *Memory {
	if capacity <= 0 {
		capacity = 256
	}
	if sink == nil {
		sink = &slogSink{logger: logger}
	}
	m := &Memory{
		queue:  make(chan Event, capacity),
		sink:   sink,
		logger: logger.With("component", "notifier"),
	}
	m.wg.Add(1)
	go m.drain()
	return m
}

// Notify enqueues the event without blocking. A full queue drops the event
// with a warning; losing a notification is acceptable, stalling a payment
// is not.
func (m *Memory) Notify(_ context.Context, event Event) {
	select {
	case m.queue <- event:
	default:
		m.mu.Lock()
		m.dropped++
		dropped := m.dropped
		m.mu.Unlock()
		m.logger.Warn("notification queue full, event dropped",
			"kind", event.Kind,
			"dropped_total", dropped,
		)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (m *Memory) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close stops accepting events and flushes the queue.
func (m *Memory) Close() error {
	m.once.Do(func() {
		close(m.queue)
	})
	m.wg.Wait()
	return nil
}

func (m *Memory) drain() {
	defer m.wg.Done()
	for event := range m.queue {
		if err := m.sink.Deliver(context.Background(), event); err != nil {
			m.logger.Warn("notification delivery failed",
				"kind", event.Kind,
				"error", err,
			)
		}
	}
}
