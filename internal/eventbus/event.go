package eventbus

import (
	"time"

	"github.com/grachmannico95/invoice-import-be/internal/audit"
	"github.com/grachmannico95/invoice-import-be/internal/domain"
)

type EventType string

const (
	// EventTypeObjectUploaded fires once per object written to the upload
	// bucket; the payload key doubles as the transaction id.
	EventTypeObjectUploaded EventType = "object_uploaded"
	// EventTypeRecordInserted and EventTypeRecordRemoved carry store
	// change-stream notifications. Remove events hold the last-known
	// record image.
	EventTypeRecordInserted EventType = "record_inserted"
	EventTypeRecordRemoved  EventType = "record_removed"
	// EventTypeAudit carries fire-and-forget audit bus messages.
	EventTypeAudit EventType = "audit"
)

type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type ObjectUploadedEvent struct {
	Key string `json:"key"`
}

type ChangeStreamEvent struct {
	Change domain.ChangeEvent `json:"change"`
}

type AuditEvent struct {
	Event audit.Event `json:"event"`
}
