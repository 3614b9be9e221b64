package domain

import "errors"

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionExists   = errors.New("transaction already exists")
	ErrStatusConflict      = errors.New("transaction status conflict")
	ErrInvoiceExists       = errors.New("invoice already exists")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrObjectNotFound      = errors.New("object not found")
)
