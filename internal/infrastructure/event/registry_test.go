package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erp/bridge/tests/testutil"
)

func TestHandlerRegistry_Register(t *testing.T) {
	t.Run("specific event types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := testutil.NewMockEventHandler("OrderCreated", "OrderUpdated")

		registry.Register(handler, "OrderCreated", "OrderUpdated")

		for _, eventType := range []string{"OrderCreated", "OrderUpdated"} {
			handlers := registry.GetHandlers(eventType)
			assert.Len(t, handlers, 1)
			assert.Equal(t, handler, handlers[0])
		}
		assert.Empty(t, registry.GetHandlers("OrderDeleted"))
	})

	t.Run("no event types means wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := testutil.NewMockEventHandler()

		registry.Register(handler)

		for _, eventType := range []string{"OrderCreated", "AnyEventType"} {
			handlers := registry.GetHandlers(eventType)
			assert.Len(t, handlers, 1)
			assert.Equal(t, handler, handlers[0])
		}
	})

	t.Run("wildcard and specific handlers combine", func(t *testing.T) {
		registry := NewHandlerRegistry()
		specific := testutil.NewMockEventHandler("OrderCreated")
		wildcard := testutil.NewMockEventHandler()

		registry.Register(specific, "OrderCreated")
		registry.Register(wildcard)

		assert.Len(t, registry.GetHandlers("OrderCreated"), 2)

		others := registry.GetHandlers("OtherEvent")
		assert.Len(t, others, 1)
		assert.Equal(t, wildcard, others[0])
	})
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	t.Run("specific handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler1 := testutil.NewMockEventHandler("OrderCreated")
		handler2 := testutil.NewMockEventHandler("OrderCreated")

		registry.Register(handler1, "OrderCreated")
		registry.Register(handler2, "OrderCreated")
		assert.Len(t, registry.GetHandlers("OrderCreated"), 2)

		registry.Unregister(handler1)

		remaining := registry.GetHandlers("OrderCreated")
		assert.Len(t, remaining, 1)
		assert.Equal(t, handler2, remaining[0])
	})

	t.Run("wildcard handler", func(t *testing.T) {
		registry := NewHandlerRegistry()
		wildcard := testutil.NewMockEventHandler()

		registry.Register(wildcard)
		assert.Len(t, registry.GetHandlers("AnyEvent"), 1)

		registry.Unregister(wildcard)
		assert.Empty(t, registry.GetHandlers("AnyEvent"))
	})
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	t.Run("counts each handler once per registration", func(t *testing.T) {
		registry := NewHandlerRegistry()
		registry.Register(testutil.NewMockEventHandler("OrderCreated"), "OrderCreated")
		registry.Register(testutil.NewMockEventHandler("CutoverRouteChanged"), "CutoverRouteChanged")
		registry.Register(testutil.NewMockEventHandler())

		assert.Len(t, registry.GetAllHandlers(), 3)
	})

	t.Run("deduplicates multi-type registrations", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := testutil.NewMockEventHandler("OrderCreated", "OrderUpdated")

		registry.Register(handler, "OrderCreated", "OrderUpdated")

		assert.Len(t, registry.GetAllHandlers(), 1)
	})
}
