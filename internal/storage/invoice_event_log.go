package storage

import (
	"context"
	"sync"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
)

// InvoiceEventLog is the append-only audit trail, keyed by owner email.
// Entries are never mutated or removed.
type InvoiceEventLog struct {
	events map[string][]domain.InvoiceEvent
	mu     sync.RWMutex
}

func NewInvoiceEventLog() *InvoiceEventLog {
	return &InvoiceEventLog{
		events: make(map[string][]domain.InvoiceEvent),
	}
}

func (l *InvoiceEventLog) Append(ctx context.Context, event domain.InvoiceEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[event.CustomerEmail] = append(l.events[event.CustomerEmail], event)

	return nil
}

func (l *InvoiceEventLog) ListByOwner(ctx context.Context, customerEmail string) ([]domain.InvoiceEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.events[customerEmail]
	listed := make([]domain.InvoiceEvent, len(stored))
	copy(listed, stored)

	return listed, nil
}
