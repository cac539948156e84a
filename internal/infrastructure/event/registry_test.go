package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{eventTypes: eventTypes}
}

func (h *mockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	return nil
}

func (h *mockHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("BillGenerated", "BillPaid")

	registry.Register(handler, "BillGenerated", "BillPaid")

	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("BillGenerated"))
	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("BillPaid"))
	assert.Empty(t, registry.GetHandlers("BillOverdue"))
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()

	registry.Register(handler)

	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("BillGenerated"))
	assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers("PaymentRecorded"))
}

func TestHandlerRegistry_Register_Idempotent(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler("BillPaid")

	registry.Register(handler, "BillPaid", "BillPaid")
	registry.Register(handler, "BillPaid")

	assert.Len(t, registry.GetHandlers("BillPaid"), 1)
}

func TestHandlerRegistry_GetHandlers_TypedBeforeWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	typed := newMockHandler("BillPaid")
	wildcard := newMockHandler()

	registry.Register(wildcard)
	registry.Register(typed, "BillPaid")

	assert.Equal(t, []shared.EventHandler{typed, wildcard}, registry.GetHandlers("BillPaid"))
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("BillPaid")
	handler2 := newMockHandler("BillPaid")
	wildcard := newMockHandler()

	registry.Register(handler1, "BillPaid", "BillOverdue")
	registry.Register(handler2, "BillPaid")
	registry.Register(wildcard)

	registry.Unregister(handler1)
	registry.Unregister(wildcard)

	assert.Equal(t, []shared.EventHandler{handler2}, registry.GetHandlers("BillPaid"))
	assert.Empty(t, registry.GetHandlers("BillOverdue"))
}

func TestHandlerRegistry_GetAllHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newMockHandler("BillGenerated", "BillPaid")
	handler2 := newMockHandler("BillOverdue")
	wildcard := newMockHandler()

	registry.Register(handler1, "BillGenerated", "BillPaid")
	registry.Register(handler2, "BillOverdue")
	registry.Register(wildcard)

	all := registry.GetAllHandlers()
	assert.Len(t, all, 3)
	assert.ElementsMatch(t, []shared.EventHandler{handler1, handler2, wildcard}, all)
}
