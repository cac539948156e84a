package event

import (
	"github.com/utilitybill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Subscription names a handler so its idempotency keys do not collide with
// other handlers reading the same store
type Subscription struct {
	Name    string
	Handler shared.EventHandler
}

// SubscribeAll registers every subscription on the bus for the event types
// the handler declares. With a store and idempotency enabled, each handler is
// wrapped in an IdempotentHandler sharing the given metrics.
func SubscribeAll(
	bus shared.EventSubscriber,
	store shared.IdempotencyStore,
	config shared.IdempotencyConfig,
	metrics *IdempotencyMetrics,
	logger *zap.Logger,
	subs ...Subscription,
) []shared.EventHandler {
	if metrics == nil {
		metrics = &IdempotencyMetrics{}
	}

	registered := make([]shared.EventHandler, 0, len(subs))
	for _, sub := range subs {
		handler := sub.Handler
		idempotent := store != nil && config.Enabled
		if idempotent {
			handler = NewIdempotentHandler(sub.Handler, store, logger.Named(sub.Name),
				WithIdempotencyConfig(config),
				WithIdempotencyMetrics(metrics),
				WithHandlerName(sub.Name),
			)
		}
		bus.Subscribe(handler, sub.Handler.EventTypes()...)
		registered = append(registered, handler)

		logger.Info("event handler registered",
			zap.String("handler", sub.Name),
			zap.Strings("event_types", sub.Handler.EventTypes()),
			zap.Bool("idempotent", idempotent),
		)
	}
	return registered
}
