package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/internal/eventbus"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// UploadHandler is the write target behind grants issued by the memory
// object-store backend. It stores the body and emits the same
// object-uploaded event an S3 bucket notification would.
type UploadHandler struct {
	objects domain.ObjectStore
	bus     eventbus.EventBus
	logger  *logger.Logger
}

func NewUploadHandler(objects domain.ObjectStore, bus eventbus.EventBus, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		objects: objects,
		bus:     bus,
		logger:  log,
	}
}

func (h *UploadHandler) Put(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read body",
		})
	}

	if err := h.objects.Put(ctx, key, body); err != nil {
		h.logger.Error(ctx, "Failed to store uploaded object",
			"key", key,
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to store object",
		})
	}

	err = h.bus.Publish(ctx, eventbus.Event{
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
	}

	return c.NoContent(http.StatusOK)
}
