package domain

import (
	"context"
	"time"
)

// TransactionStore owns the Transaction lifecycle. UpdateStatus is an
// optimistic compare-and-swap: the caller supplies the status it believes
// is stored and the store rejects the write with ErrStatusConflict when it
// differs, so concurrent handlers can never silently overwrite each
// other's transition.
type TransactionStore interface {
	Create(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	UpdateStatus(ctx context.Context, id string, expected, next TransactionStatus) error
	Delete(ctx context.Context, id string) error
}

// InvoiceStore persists import results. Create fails with
// ErrInvoiceExists when the transaction already produced an invoice.
type InvoiceStore interface {
	Create(ctx context.Context, invoice Invoice) error
	Get(ctx context.Context, customerEmail, invoiceNumber string) (*Invoice, error)
}

// InvoiceEventLog is the append-only audit trail keyed by owner.
type InvoiceEventLog interface {
	Append(ctx context.Context, event InvoiceEvent) error
	ListByOwner(ctx context.Context, customerEmail string) ([]InvoiceEvent, error)
}

// Notifier is the best-effort push channel. Every method swallows
// transport errors and reports plain success; callers must not assume
// delivery.
type Notifier interface {
	Push(ctx context.Context, connectionID string, payload interface{}) bool
	PushStatus(ctx context.Context, transactionID, connectionID string, status TransactionStatus) bool
	Terminate(ctx context.Context, connectionID string) bool
}

// ObjectStore is the bucket holding uploaded invoice files. PresignPut
// returns a one-time upload URL valid for the given window.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
