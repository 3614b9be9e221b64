package storage

import (
	"context"
	"sync"
	"time"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// ChangeListener receives one callback per mutating write. Listeners run
// synchronously on the mutating goroutine and must not call back into the
// store.
type ChangeListener func(domain.ChangeEvent)

// TransactionStore is an in-memory conditional-write store for
// transactions. Records past their ExpiresAt instant are removed by the
// sweeper regardless of status, and the remove notification carries the
// last-known image.
type TransactionStore struct {
	transactions map[string]*domain.Transaction
	mu           sync.RWMutex
	listener     ChangeListener
	logger       *logger.Logger

	sweepOnce sync.Once
	sweepDone chan struct{}
}

func NewTransactionStore(log *logger.Logger) *TransactionStore {
	return &TransactionStore{
		transactions: make(map[string]*domain.Transaction),
		logger:       log,
		sweepDone:    make(chan struct{}),
	}
}

// SetChangeListener wires the change stream. Must be called before the
// store receives traffic.
func (s *TransactionStore) SetChangeListener(listener ChangeListener) {
	s.listener = listener
}

func (s *TransactionStore) Create(ctx context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	if _, exists := s.transactions[tx.ID]; exists {
		s.mu.Unlock()
		return domain.ErrTransactionExists
	}
	stored := tx
	s.transactions[tx.ID] = &stored
	image := stored
	s.mu.Unlock()

	s.notify(domain.ChangeEvent{
		Type:        domain.ChangeTypeInsert,
		Kind:        domain.RecordKindTransaction,
		Transaction: &image,
	})

	return nil
}

func (s *TransactionStore) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactions[id]
	if !exists {
		return nil, domain.ErrTransactionNotFound
	}

	copied := *tx
	return &copied, nil
}

// UpdateStatus performs an optimistic compare-and-swap on the stored
// status. ErrStatusConflict means another handler already moved the
// transaction; the caller should re-read and report the stored value.
func (s *TransactionStore) UpdateStatus(ctx context.Context, id string, expected, next domain.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, exists := s.transactions[id]
	if !exists {
		return domain.ErrTransactionNotFound
	}

	if tx.Status != expected {
		return domain.ErrStatusConflict
	}

	tx.Status = next
	return nil
}

func (s *TransactionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	tx, exists := s.transactions[id]
	if !exists {
		s.mu.Unlock()
		return domain.ErrTransactionNotFound
	}
	image := *tx
	delete(s.transactions, id)
	s.mu.Unlock()

	s.notify(domain.ChangeEvent{
		Type:        domain.ChangeTypeRemove,
		Kind:        domain.RecordKindTransaction,
		Transaction: &image,
	})

	return nil
}

// StartSweeper runs the TTL sweep until ctx is cancelled. Expired records
// are removed and their last image delivered on the change stream.
func (s *TransactionStore) StartSweeper(ctx context.Context, interval time.Duration) {
	s.sweepOnce.Do(func() {
		go func() {
			defer close(s.sweepDone)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.sweep(ctx)
				}
			}
		}()
	})
}

// WaitSweeper blocks until the sweeper goroutine has exited.
func (s *TransactionStore) WaitSweeper() {
	<-s.sweepDone
}

func (s *TransactionStore) sweep(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	var expired []*domain.Transaction
	for id, tx := range s.transactions {
		if !now.Before(tx.ExpiresAt) {
			image := *tx
			expired = append(expired, &image)
			delete(s.transactions, id)
		}
	}
	s.mu.Unlock()

	for _, image := range expired {
		s.logger.Debug(ctx, "Swept expired transaction",
			"transaction_id", image.ID,
			"status", image.Status,
		)
		s.notify(domain.ChangeEvent{
			Type:        domain.ChangeTypeRemove,
			Kind:        domain.RecordKindTransaction,
			Transaction: image,
		})
	}
}

func (s *TransactionStore) notify(event domain.ChangeEvent) {
	if s.listener != nil {
		s.listener(event)
	}
}
