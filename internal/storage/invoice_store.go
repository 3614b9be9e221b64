package storage

import (
	"context"
	"sync"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
)

// InvoiceStore persists import results in memory. An invoice is created
// at most once per transaction; there is no update path.
type InvoiceStore struct {
	invoices      map[string]*domain.Invoice
	byTransaction map[string]string
	mu            sync.RWMutex
	listener      ChangeListener
}

func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{
		invoices:      make(map[string]*domain.Invoice),
		byTransaction: make(map[string]string),
	}
}

func (s *InvoiceStore) SetChangeListener(listener ChangeListener) {
	s.listener = listener
}

func invoiceKey(customerEmail, invoiceNumber string) string {
	return customerEmail + "#" + invoiceNumber
}

func (s *InvoiceStore) Create(ctx context.Context, invoice domain.Invoice) error {
	key := invoiceKey(invoice.CustomerEmail, invoice.InvoiceNumber)

	s.mu.Lock()
	if _, exists := s.invoices[key]; exists {
		s.mu.Unlock()
		return domain.ErrInvoiceExists
	}
	if _, exists := s.byTransaction[invoice.TransactionID]; exists {
		s.mu.Unlock()
		return domain.ErrInvoiceExists
	}
	stored := invoice
	s.invoices[key] = &stored
	s.byTransaction[invoice.TransactionID] = key
	image := stored
	s.mu.Unlock()

	if s.listener != nil {
		s.listener(domain.ChangeEvent{
			Type:    domain.ChangeTypeInsert,
			Kind:    domain.RecordKindInvoice,
			Invoice: &image,
		})
	}

	return nil
}

func (s *InvoiceStore) Get(ctx context.Context, customerEmail, invoiceNumber string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoice, exists := s.invoices[invoiceKey(customerEmail, invoiceNumber)]
	if !exists {
		return nil, domain.ErrInvoiceNotFound
	}

	copied := *invoice
	return &copied, nil
}
