package events

import (
	"context"
	"log/slog"

	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

// AuditLogger writes one structured line per transaction lifecycle
// event. It subscribes to both paid and canceled events so the log
// carries the full history even for states no other handler consumes.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) Handle(ctx context.Context, event Event) error {
	tx, ok := event.Payload().(*transaction.Transaction)
	if !ok {
		a.logger.Warn("audit received unexpected payload",
			"event_type", event.EventType(),
			"event_id", event.EventID())
		return nil
	}

	a.logger.Info("transaction audit",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"transaction_id", tx.ID,
		"external_id", tx.ExternalID,
		"method", tx.PaymentMethod,
		"status", tx.Status,
		"amount", tx.Amount.String(),
		"occurred_at", event.OccurredAt())

	return nil
}
