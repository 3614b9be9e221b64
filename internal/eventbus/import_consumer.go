package eventbus

import (
	"context"
	"fmt"

	"github.com/grachmannico95/invoice-import-be/internal/service"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// ImportConsumer feeds object-uploaded events into the import pipeline,
// one object per event.
type ImportConsumer struct {
	imports     *service.ImportService
	logger      *logger.Logger
	workerCount int
}

func NewImportConsumer(imports *service.ImportService, log *logger.Logger, workerCount int) *ImportConsumer {
	return &ImportConsumer{
		imports:     imports,
		logger:      log,
		workerCount: workerCount,
	}
}

func (ic *ImportConsumer) Consume(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(ObjectUploadedEvent)
	if !ok {
		ic.logger.Error(ctx, "Invalid payload type for object-uploaded event",
			"event_id", event.ID,
		)
		return fmt.Errorf("invalid payload type")
	}

	ic.logger.Debug(ctx, "Processing uploaded object",
		"event_id", event.ID,
		"key", payload.Key,
	)

	return ic.imports.ProcessObject(ctx, payload.Key)
}

func (ic *ImportConsumer) GetWorkerCount() int {
	return ic.workerCount
}
