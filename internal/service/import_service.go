package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/grachmannico95/invoice-import-be/internal/audit"
	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// ImportService processes one uploaded object: validate, persist, move
// the transaction forward and report back over the push channel. Each
// object is handled independently; domain-level failures end in a
// terminal status and a nil return, only infrastructure failures
// propagate.
type ImportService struct {
	transactions domain.TransactionStore
	invoices     domain.InvoiceStore
	objects      domain.ObjectStore
	notifier     domain.Notifier
	publisher    audit.Publisher
	logger       *logger.Logger
}

func NewImportService(
	transactions domain.TransactionStore,
	invoices domain.InvoiceStore,
	objects domain.ObjectStore,
	notifier domain.Notifier,
	publisher audit.Publisher,
	log *logger.Logger,
) *ImportService {
	return &ImportService{
		transactions: transactions,
		invoices:     invoices,
		objects:      objects,
		notifier:     notifier,
		publisher:    publisher,
		logger:       log,
	}
}

// ProcessObject runs the import pipeline for the object stored under key.
// The key doubles as the transaction id.
func (s *ImportService) ProcessObject(ctx context.Context, key string) error {
	ctx = logger.WithTransactionID(ctx, key)

	transaction, err := s.transactions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			// Orphaned object: no transaction means no client to notify.
			s.logger.Warn(ctx, "No transaction for uploaded object")
			return nil
		}
		return err
	}

	connectionID := transaction.ConnectionID

	if transaction.Status != domain.TransactionStatusGenerated {
		// Already cancelled, timed out or processed; report the stored
		// status and disconnect.
		s.logger.Info(ctx, "Transaction already resolved",
			"status", transaction.Status,
		)
		s.notifier.PushStatus(ctx, key, connectionID, transaction.Status)
		s.notifier.Terminate(ctx, connectionID)
		return nil
	}

	err = s.transitionAndNotify(ctx, key, connectionID,
		domain.TransactionStatusGenerated, domain.TransactionStatusReceived)
	if err != nil {
		if errors.Is(err, domain.ErrStatusConflict) || errors.Is(err, domain.ErrTransactionNotFound) {
			s.reportLostRace(ctx, key, connectionID)
			return nil
		}
		return err
	}

	content, err := s.objects.Get(ctx, key)
	if err != nil {
		return err
	}

	var file domain.InvoiceFile
	if err := json.Unmarshal(content, &file); err != nil {
		// Unparseable content fails the same validation gate as a short
		// invoice number.
		s.logger.Warn(ctx, "Uploaded object is not valid invoice JSON",
			"error", err,
		)
	}

	if !file.Valid() {
		return s.rejectInvoice(ctx, key, connectionID, file)
	}

	return s.acceptInvoice(ctx, key, connectionID, file)
}

func (s *ImportService) acceptInvoice(ctx context.Context, key, connectionID string, file domain.InvoiceFile) error {
	invoice := domain.Invoice{
		CustomerEmail: file.CustomerEmail,
		InvoiceNumber: file.InvoiceNumber,
		TotalValue:    file.TotalValue,
		ProductID:     file.ProductID,
		Quantity:      file.Quantity,
		TransactionID: key,
		CreatedAt:     time.Now(),
	}

	if err := s.invoices.Create(ctx, invoice); err != nil {
		return err
	}

	var wg sync.WaitGroup
	var deleteErr, updateErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		deleteErr = s.objects.Delete(ctx, key)
	}()
	go func() {
		defer wg.Done()
		updateErr = s.transitionAndNotify(ctx, key, connectionID,
			domain.TransactionStatusReceived, domain.TransactionStatusProcessed)
	}()
	wg.Wait()

	s.notifier.Terminate(ctx, connectionID)

	if deleteErr != nil {
		return deleteErr
	}
	if updateErr != nil && !errors.Is(updateErr, domain.ErrStatusConflict) && !errors.Is(updateErr, domain.ErrTransactionNotFound) {
		return updateErr
	}

	s.logger.Info(ctx, "Invoice imported",
		"customer_email", invoice.CustomerEmail,
		"invoice_number", invoice.InvoiceNumber,
	)

	return nil
}

func (s *ImportService) rejectInvoice(ctx context.Context, key, connectionID string, file domain.InvoiceFile) error {
	s.logger.Warn(ctx, "Invoice rejected: missing or short invoice number",
		"invoice_number", file.InvoiceNumber,
	)

	var wg sync.WaitGroup
	var updateErr, deleteErr error

	wg.Add(4)
	go func() {
		defer wg.Done()
		updateErr = s.transactions.UpdateStatus(ctx, key,
			domain.TransactionStatusReceived, domain.TransactionStatusNonValidInvoiceNumber)
	}()
	go func() {
		defer wg.Done()
		s.notifier.PushStatus(ctx, key, connectionID, domain.TransactionStatusNonValidInvoiceNumber)
		s.notifier.Push(ctx, connectionID, map[string]string{
			"transactionId": key,
			"message":       "invoice number must be at least 5 characters",
		})
	}()
	go func() {
		defer wg.Done()
		s.publisher.Emit(ctx, audit.NewEvent(audit.ErrorDetailNoInvoiceNumber, map[string]string{
			"key":           key,
			"customerEmail": file.CustomerEmail,
		}))
	}()
	go func() {
		defer wg.Done()
		deleteErr = s.objects.Delete(ctx, key)
	}()
	wg.Wait()

	s.notifier.Terminate(ctx, connectionID)

	if deleteErr != nil {
		return deleteErr
	}
	if updateErr != nil && !errors.Is(updateErr, domain.ErrStatusConflict) && !errors.Is(updateErr, domain.ErrTransactionNotFound) {
		return updateErr
	}

	return nil
}

// transitionAndNotify runs the status write and the matching status push
// concurrently and joins them, returning the store error.
func (s *ImportService) transitionAndNotify(ctx context.Context, key, connectionID string, expected, next domain.TransactionStatus) error {
	var wg sync.WaitGroup
	var updateErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		updateErr = s.transactions.UpdateStatus(ctx, key, expected, next)
	}()
	go func() {
		defer wg.Done()
		s.notifier.PushStatus(ctx, key, connectionID, next)
	}()
	wg.Wait()

	return updateErr
}

// reportLostRace handles a compare-and-swap loss: another handler moved
// the transaction between our read and write. Report whatever is stored
// now and disconnect.
func (s *ImportService) reportLostRace(ctx context.Context, key, connectionID string) {
	current, err := s.transactions.Get(ctx, key)
	if err == nil {
		s.logger.Info(ctx, "Lost status race, reporting stored status",
			"status", current.Status,
		)
		s.notifier.PushStatus(ctx, key, connectionID, current.Status)
	} else {
		s.notifier.PushStatus(ctx, key, connectionID, domain.TransactionStatusNotFound)
	}
	s.notifier.Terminate(ctx, connectionID)
}
