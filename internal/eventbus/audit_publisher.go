package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/grachmannico95/invoice-import-be/internal/audit"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// AuditPublisher puts audit events on the bus. Fire-and-forget: a full
// channel drops the event with a warning and the caller never learns.
type AuditPublisher struct {
	bus    EventBus
	logger *logger.Logger
}

func NewAuditPublisher(bus EventBus, log *logger.Logger) *AuditPublisher {
	return &AuditPublisher{
		bus:    bus,
		logger: log,
	}
}

func (p *AuditPublisher) Emit(ctx context.Context, event audit.Event) {
	err := p.bus.Publish(ctx, Event{
		ID:        uuid.New().String(),
		Type:      EventTypeAudit,
		Payload:   AuditEvent{Event: event},
		Timestamp: time.Now(),
	})
	if err != nil {
		p.logger.Warn(ctx, "Audit event not published",
			"error_detail", event.Detail.ErrorDetail,
			"error", err,
		)
	}
}

var _ audit.Publisher = (*AuditPublisher)(nil)
