package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grachmannico95/invoice-import-be/internal/audit"
	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// StreamConsumer handles store change-stream notifications. Transaction
// removals drive the expiry path; invoice insertions drive the
// audit-trail path. Everything else on the stream is ignored.
type StreamConsumer struct {
	eventLog    domain.InvoiceEventLog
	notifier    domain.Notifier
	publisher   audit.Publisher
	logger      *logger.Logger
	workerCount int
}

func NewStreamConsumer(
	eventLog domain.InvoiceEventLog,
	notifier domain.Notifier,
	publisher audit.Publisher,
	log *logger.Logger,
	workerCount int,
) *StreamConsumer {
	return &StreamConsumer{
		eventLog:    eventLog,
		notifier:    notifier,
		publisher:   publisher,
		logger:      log,
		workerCount: workerCount,
	}
}

func (sc *StreamConsumer) Consume(ctx context.Context, event Event) error {
	payload, ok := event.Payload.(ChangeStreamEvent)
	if !ok {
		sc.logger.Error(ctx, "Invalid payload type for change-stream event",
			"event_id", event.ID,
		)
		return fmt.Errorf("invalid payload type")
	}

	change := payload.Change

	switch {
	case change.Type == domain.ChangeTypeRemove && change.Kind == domain.RecordKindTransaction:
		return sc.expireTransaction(ctx, change.Transaction)
	case change.Type == domain.ChangeTypeInsert && change.Kind == domain.RecordKindInvoice:
		return sc.recordInvoice(ctx, change.Invoice)
	default:
		return nil
	}
}

// expireTransaction reacts to a transaction record disappearing from the
// store, using the last-known image the stream delivered. Any last status
// other than PROCESSED raises a timeout; the connection is closed
// unconditionally.
func (sc *StreamConsumer) expireTransaction(ctx context.Context, image *domain.Transaction) error {
	if image == nil {
		return fmt.Errorf("remove event without transaction image")
	}

	ctx = logger.WithTransactionID(ctx, image.ID)

	if image.Status != domain.TransactionStatusProcessed {
		sc.logger.Info(ctx, "Transaction expired unresolved",
			"status", image.Status,
			"connection_id", image.ConnectionID,
		)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sc.publisher.Emit(ctx, audit.NewEvent(audit.ErrorDetailTimeout, map[string]string{
				"transactionId": image.ID,
				"connectionId":  image.ConnectionID,
			}))
		}()
		go func() {
			defer wg.Done()
			sc.notifier.PushStatus(ctx, image.ID, image.ConnectionID, domain.TransactionStatusTimeout)
		}()
		wg.Wait()
	}

	sc.notifier.Terminate(ctx, image.ConnectionID)

	return nil
}

func (sc *StreamConsumer) recordInvoice(ctx context.Context, invoice *domain.Invoice) error {
	if invoice == nil {
		return fmt.Errorf("insert event without invoice image")
	}

	entry := domain.InvoiceEvent{
		CustomerEmail: invoice.CustomerEmail,
		EventType:     domain.EventTypeInvoiceCreated,
		InvoiceNumber: invoice.InvoiceNumber,
		TransactionID: invoice.TransactionID,
		ProductID:     invoice.ProductID,
		Quantity:      invoice.Quantity,
		CreatedAt:     time.Now(),
	}

	if err := sc.eventLog.Append(ctx, entry); err != nil {
		return err
	}

	sc.logger.Debug(ctx, "Invoice event recorded",
		"customer_email", invoice.CustomerEmail,
		"invoice_number", invoice.InvoiceNumber,
	)

	return nil
}

func (sc *StreamConsumer) GetWorkerCount() int {
	return sc.workerCount
}
