package service

import (
	"context"
	"errors"
	"sync"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// CancelService aborts a transaction that is still waiting for its
// upload. Anything past GENERATED is already resolved and reported as
// NOT_FOUND, the mirror of the import guard.
type CancelService struct {
	transactions domain.TransactionStore
	notifier     domain.Notifier
	logger       *logger.Logger
}

func NewCancelService(transactions domain.TransactionStore, notifier domain.Notifier, log *logger.Logger) *CancelService {
	return &CancelService{
		transactions: transactions,
		notifier:     notifier,
		logger:       log,
	}
}

// Cancel resolves the transaction to CANCELED if it is still GENERATED.
// The connection is closed either way. Only infrastructure failures
// return an error.
func (s *CancelService) Cancel(ctx context.Context, transactionID, connectionID string) error {
	ctx = logger.WithTransactionID(ctx, transactionID)

	transaction, err := s.transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			s.logger.Info(ctx, "Cancellation for unknown transaction")
			s.notifier.PushStatus(ctx, transactionID, connectionID, domain.TransactionStatusNotFound)
			s.notifier.Terminate(ctx, connectionID)
			return nil
		}
		return err
	}

	if transaction.Status != domain.TransactionStatusGenerated {
		s.logger.Info(ctx, "Cannot cancel resolved transaction",
			"status", transaction.Status,
		)
		s.notifier.PushStatus(ctx, transactionID, connectionID, domain.TransactionStatusNotFound)
		s.notifier.Terminate(ctx, connectionID)
		return nil
	}

	var wg sync.WaitGroup
	var updateErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		updateErr = s.transactions.UpdateStatus(ctx, transactionID,
			domain.TransactionStatusGenerated, domain.TransactionStatusCanceled)
	}()
	go func() {
		defer wg.Done()
		s.notifier.PushStatus(ctx, transactionID, connectionID, domain.TransactionStatusCanceled)
	}()
	wg.Wait()

	s.notifier.Terminate(ctx, connectionID)

	if errors.Is(updateErr, domain.ErrStatusConflict) || errors.Is(updateErr, domain.ErrTransactionNotFound) {
		// Another handler resolved the transaction first; the race is
		// tolerated and the client already got a terminal push.
		s.logger.Info(ctx, "Lost cancellation race",
			"error", updateErr,
		)
		return nil
	}
	if updateErr != nil {
		return updateErr
	}

	s.logger.Info(ctx, "Transaction cancelled")

	return nil
}
