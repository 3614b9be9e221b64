package eventbus

import (
	"context"
	"fmt"

	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// AuditLogConsumer writes audit bus messages to the structured log. It
// stands in for the external alerting collaborators that consume the
// audit bus in production.
type AuditLogConsumer struct {
	logger      *logger.Logger
	workerCount int
}

func NewAuditLogConsumer(log *logger.Logger, workerCount int) *AuditLogConsumer {
	return &AuditLogConsumer{
		logger:      log,
		workerCount: workerCount,
	}
}

func (ac *AuditLogConsumer) Consume(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(AuditEvent)
	if !ok {
		return fmt.Errorf("invalid payload type")
	}

	ac.logger.Warn(ctx, "Audit event",
		"source", payload.Event.Source,
		"detail_type", payload.Event.DetailType,
		"error_detail", payload.Event.Detail.ErrorDetail,
		"context", payload.Event.Detail.Context,
	)

	return nil
}

func (ac *AuditLogConsumer) GetWorkerCount() int {
	return ac.workerCount
}
