package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockConsumer implements EventConsumer for testing.
type mockConsumer struct {
	name           string
	processedCount atomic.Int32
	errorOnProcess bool
	supportsBatch  bool
	processDelay   time.Duration
	mu             sync.Mutex
	events         []PipelineEvent
}

func (m *mockConsumer) Name() string { return m.name }

func (m *mockConsumer) ProcessEvent(event PipelineEvent) error {
	if m.processDelay > 0 {
		time.Sleep(m.processDelay)
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	m.processedCount.Add(1)

	if m.errorOnProcess {
		return fmt.Errorf("mock error")
	}
	return nil
}

func (m *mockConsumer) ProcessBatch(events []PipelineEvent) error {
	for _, event := range events {
		if err := m.ProcessEvent(event); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockConsumer) SupportsBatching() bool { return m.supportsBatch }

func (m *mockConsumer) GetProcessedCount() int32 {
	return m.processedCount.Load()
}

func (m *mockConsumer) GetEvents() []PipelineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]PipelineEvent, len(m.events))
	copy(events, m.events)
	return events
}

// waitForProcessed waits for the consumer to process n events or times out.
func waitForProcessed(t *testing.T, consumer *mockConsumer, expected int32, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("timeout waiting for %d events, got %d", expected, consumer.GetProcessedCount())
		case <-ticker.C:
			if consumer.GetProcessedCount() >= expected {
				return
			}
		}
	}
}

// createTestEventBus creates a properly initialized EventBus for testing,
// bypassing the global singleton so tests stay independent.
func createTestEventBus(t *testing.T, bufferSize, workers int) *EventBus {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	eb := &EventBus{
		eventChan:  make(chan PipelineEvent, bufferSize),
		bufferSize: bufferSize,
		workers:    workers,
		ctx:        ctx,
		cancel:     cancel,
		consumers:  make([]EventConsumer, 0),
	}
	eb.initialized.Store(true)
	return eb
}

func TestTryPublishRequiresConsumers(t *testing.T) {
	eb := createTestEventBus(t, 10, 1)

	published := eb.TryPublish(PipelineEvent{Kind: KindStats})
	if published {
		t.Fatalf("expected publish to be rejected with no registered consumers")
	}
}

func TestRegisterConsumerStartsWorkersAndDelivers(t *testing.T) {
	eb := createTestEventBus(t, 10, 2)
	defer func() { _ = eb.Shutdown(time.Second) }()

	consumer := &mockConsumer{name: "test-consumer"}
	if err := eb.RegisterConsumer(consumer); err != nil {
		t.Fatalf("RegisterConsumer returned error: %v", err)
	}

	if !eb.TryPublish(PipelineEvent{Kind: KindFrame, SessionID: "sess-1", Frame: &FramePayload{LockPct: 0.9}}) {
		t.Fatalf("expected publish to succeed once a consumer is registered")
	}

	waitForProcessed(t, consumer, 1, 2*time.Second)

	events := consumer.GetEvents()
	if len(events) != 1 || events[0].Kind != KindFrame {
		t.Fatalf("unexpected events delivered: %+v", events)
	}
}

func TestRegisterConsumerRejectsDuplicateName(t *testing.T) {
	eb := createTestEventBus(t, 10, 1)
	defer func() { _ = eb.Shutdown(time.Second) }()

	first := &mockConsumer{name: "dup"}
	second := &mockConsumer{name: "dup"}

	if err := eb.RegisterConsumer(first); err != nil {
		t.Fatalf("first RegisterConsumer returned error: %v", err)
	}
	if err := eb.RegisterConsumer(second); err == nil {
		t.Fatalf("expected error registering duplicate consumer name")
	}
}

func TestTryPublishDropsWhenBufferFull(t *testing.T) {
	eb := createTestEventBus(t, 1, 0) // no workers, nothing drains the channel

	consumer := &mockConsumer{name: "blocker"}
	eb.consumers = append(eb.consumers, consumer)
	eb.running.Store(true)

	if !eb.TryPublish(PipelineEvent{Kind: KindStats}) {
		t.Fatalf("expected first publish to succeed")
	}
	if eb.TryPublish(PipelineEvent{Kind: KindStats}) {
		t.Fatalf("expected second publish to be dropped once buffer is full")
	}

	stats := eb.GetStats()
	if stats.EventsDropped != 1 {
		t.Fatalf("EventsDropped = %d, want 1", stats.EventsDropped)
	}
}

func TestConsumerPanicIsRecovered(t *testing.T) {
	eb := createTestEventBus(t, 10, 1)
	defer func() { _ = eb.Shutdown(time.Second) }()

	panicConsumer := &panicOnceConsumer{}
	if err := eb.RegisterConsumer(panicConsumer); err != nil {
		t.Fatalf("RegisterConsumer returned error: %v", err)
	}

	eb.TryPublish(PipelineEvent{Kind: KindError})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for panic to be recorded")
		default:
		}
		if atomic.LoadUint64(&eb.stats.ConsumerErrors) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type panicOnceConsumer struct{}

func (p *panicOnceConsumer) Name() string { return "panics" }
func (p *panicOnceConsumer) ProcessEvent(event PipelineEvent) error {
	panic("boom")
}
func (p *panicOnceConsumer) ProcessBatch(events []PipelineEvent) error { return nil }
func (p *panicOnceConsumer) SupportsBatching() bool                   { return false }

func TestShutdownWaitsForWorkers(t *testing.T) {
	eb := createTestEventBus(t, 10, 2)

	consumer := &mockConsumer{name: "shutdown-test", processDelay: 10 * time.Millisecond}
	if err := eb.RegisterConsumer(consumer); err != nil {
		t.Fatalf("RegisterConsumer returned error: %v", err)
	}

	eb.TryPublish(PipelineEvent{Kind: KindStats})

	if err := eb.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
