package audit

import (
	"context"
	"time"
)

const (
	SourceInvoice     = "app.invoice"
	DetailTypeInvoice = "invoice"
)

// ErrorDetail tags the failure condition an audit event reports.
type ErrorDetail string

const (
	ErrorDetailNoInvoiceNumber ErrorDetail = "FAIL_NO_INVOICE_NUMBER"
	ErrorDetailTimeout         ErrorDetail = "TIMEOUT"
)

// Detail is the structured payload of an audit event. Context carries
// whatever identifies the failing transaction to the alerting side.
type Detail struct {
	ErrorDetail ErrorDetail       `json:"errorDetail"`
	Context     map[string]string `json:"context,omitempty"`
}

// Event is one fire-and-forget message for the external audit bus.
type Event struct {
	Source     string    `json:"source"`
	DetailType string    `json:"detailType"`
	Detail     Detail    `json:"detail"`
	Time       time.Time `json:"time"`
}

func NewEvent(errorDetail ErrorDetail, context map[string]string) Event {
	return Event{
		Source:     SourceInvoice,
		DetailType: DetailTypeInvoice,
		Detail: Detail{
			ErrorDetail: errorDetail,
			Context:     context,
		},
		Time: time.Now(),
	}
}

// Publisher hands audit events to the external bus. Emission is
// fire-and-forget; implementations must not block the caller on delivery.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}
