package domain

import "time"

// TransactionStatus is the single status vocabulary shared by every
// handler. GENERATED is the only initial value; RECEIVED may only move
// forward to PROCESSED or NonValidInvoiceNumber; everything else is
// terminal. TIMEOUT and NOT_FOUND are wire-only values pushed to clients
// and never stored.
type TransactionStatus string

const (
	TransactionStatusGenerated             TransactionStatus = "GENERATED"
	TransactionStatusReceived              TransactionStatus = "RECEIVED"
	TransactionStatusProcessed             TransactionStatus = "PROCESSED"
	TransactionStatusCanceled              TransactionStatus = "CANCELED"
	TransactionStatusNonValidInvoiceNumber TransactionStatus = "NON_VALID_INVOICE_NUMBER"
	TransactionStatusTimeout               TransactionStatus = "TIMEOUT"
	TransactionStatusNotFound              TransactionStatus = "NOT_FOUND"
)

// Transaction tracks one upload-grant-to-import lifecycle. The ID doubles
// as the object-store key of the granted upload.
type Transaction struct {
	ID           string            `json:"transaction_id"`
	Status       TransactionStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	ExpiresIn    int               `json:"expires_in"`
	ConnectionID string            `json:"connection_id"`
	RequestID    string            `json:"request_id"`
}

// Invoice is the persisted import result. Created at most once per
// transaction; there is no update path.
type Invoice struct {
	CustomerEmail string    `json:"customer_email"`
	InvoiceNumber string    `json:"invoice_number"`
	TotalValue    float64   `json:"total_value"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// InvoiceFile is the payload clients upload to the granted URL.
type InvoiceFile struct {
	CustomerEmail string  `json:"customerEmail"`
	InvoiceNumber string  `json:"invoiceNumber"`
	TotalValue    float64 `json:"totalValue"`
	ProductID     string  `json:"productId"`
	Quantity      int     `json:"quantity"`
}

const minInvoiceNumberLength = 5

// Valid reports whether the file carries a usable invoice number.
func (f InvoiceFile) Valid() bool {
	return len(f.InvoiceNumber) >= minInvoiceNumberLength
}

// InvoiceEvent is one entry of the append-only per-owner audit trail
// written when an invoice record appears in the change stream.
type InvoiceEvent struct {
	CustomerEmail string    `json:"customer_email"`
	EventType     string    `json:"event_type"`
	InvoiceNumber string    `json:"invoice_number"`
	TransactionID string    `json:"transaction_id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

const EventTypeInvoiceCreated = "INVOICE_CREATED"

// ChangeType tags a change-stream notification.
type ChangeType string

const (
	ChangeTypeInsert ChangeType = "INSERT"
	ChangeTypeRemove ChangeType = "REMOVE"
)

// RecordKind tells a change-stream consumer which record shape an event
// carries.
type RecordKind string

const (
	RecordKindTransaction RecordKind = "transaction"
	RecordKindInvoice     RecordKind = "invoice"
)

// ChangeEvent is emitted by the stores for every mutating write. Remove
// events carry the last-known image of the record, which is all the
// expiry path has left to work with.
type ChangeEvent struct {
	Type        ChangeType   `json:"type"`
	Kind        RecordKind   `json:"kind"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Invoice     *Invoice     `json:"invoice,omitempty"`
}
