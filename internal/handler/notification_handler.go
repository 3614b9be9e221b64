package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/invoice-import-be/internal/eventbus"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

type s3EventRecord struct {
	S3 struct {
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

type s3Event struct {
	Records []s3EventRecord `json:"Records"`
}

// NotificationHandler accepts S3-style bucket event webhooks and fans
// each record out as one bus event. Records are processed independently
// downstream; a bad record never blocks its siblings.
type NotificationHandler struct {
	bus    eventbus.EventBus
	logger *logger.Logger
}

func NewNotificationHandler(bus eventbus.EventBus, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		bus:    bus,
		logger: log,
	}
}

func (h *NotificationHandler) HandleS3Event(c echo.Context) error {
	ctx := c.Request().Context()

	var event s3Event
	if err := c.Bind(&event); err != nil {
		h.logger.Warn(ctx, "Unreadable bucket event",
			"error", err,
		)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid event payload",
		})
	}

	published := 0
	for _, record := range event.Records {
		key := record.S3.Object.Key
		if key == "" {
			h.logger.Warn(ctx, "Bucket event record without object key")
			continue
		}

		err := h.bus.Publish(ctx, eventbus.Event{
			ID:        uuid.New().String(),
			Type:      eventbus.EventTypeObjectUploaded,
			Payload:   eventbus.ObjectUploadedEvent{Key: key},
			Timestamp: time.Now(),
		})
		if err != nil {
			h.logger.Error(ctx, "Failed to publish upload event",
				"key", key,
				"error", err,
			)
			continue
		}
		published++
	}

	h.logger.Info(ctx, "Bucket event accepted",
		"records", len(event.Records),
		"published", published,
	)

	return c.JSON(http.StatusAccepted, map[string]int{
		"records": published,
	})
}
