package billing

import (
	"github.com/ispcrm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// drainEvents consumes the domain events the given aggregates raised during
// a committed operation: each event goes to the structured log and the
// aggregate's buffer is cleared. The service tier calls this once per
// successful transaction; there is no message broker behind it.
func drainEvents(logger *zap.Logger, aggregates ...shared.AggregateRoot) {
	for _, agg := range aggregates {
		for _, event := range agg.GetDomainEvents() {
			logger.Info("domain event",
				zap.String("event", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_type", event.AggregateType()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Time("occurred_at", event.OccurredAt()))
		}
		agg.ClearDomainEvents()
	}
}
