package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/erp/bridge/internal/domain/shared"
)

// MockEventHandler records every event it receives and optionally
// fails with a configured error. Safe for concurrent use.
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

func (h *MockEventHandler) locked(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) (err error) {
	h.locked(func() {
		h.handled = append(h.handled, event)
		err = h.err
	})
	return err
}

// Handled returns a copy of the events received so far.
func (h *MockEventHandler) Handled() (result []shared.DomainEvent) {
	h.locked(func() {
		result = append(result, h.handled...)
	})
	return result
}

func (h *MockEventHandler) HandledCount() (n int) {
	h.locked(func() { n = len(h.handled) })
	return n
}

// SetError makes subsequent Handle calls return err.
func (h *MockEventHandler) SetError(err error) {
	h.locked(func() { h.err = err })
}

// Reset drops recorded events and clears the configured error.
func (h *MockEventHandler) Reset() {
	h.locked(func() {
		h.handled = nil
		h.err = nil
	})
}

// TestEvent is a minimal domain event for bus and handler tests.
type TestEvent struct {
	shared.BaseDomainEvent
	Data string
}

func NewTestEvent(eventType string) *TestEvent {
	return NewTestEventWithID(uuid.New(), eventType)
}

func NewTestEventWithID(eventID uuid.UUID, eventType string) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        eventID,
			Type:      eventType,
			Timestamp: time.Now(),
			AggID:     uuid.New(),
			AggType:   "TestAggregate",
		},
		Data: "test-data",
	}
}

// WaitForCondition polls until condition holds or timeout elapses and
// reports whether it held.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()
	return waitUntil(condition, timeout, interval)
}

// WaitForEventCount waits until the handler has seen at least count
// events.
func WaitForEventCount(t *testing.T, handler *MockEventHandler, count int, timeout time.Duration) bool {
	t.Helper()
	return WaitForCondition(t, func() bool {
		return handler.HandledCount() >= count
	}, timeout, 10*time.Millisecond)
}
