package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// InvoiceEventsHandler serves the per-owner audit trail written by the
// change-stream recorder.
type InvoiceEventsHandler struct {
	eventLog domain.InvoiceEventLog
	logger   *logger.Logger
}

func NewInvoiceEventsHandler(eventLog domain.InvoiceEventLog, log *logger.Logger) *InvoiceEventsHandler {
	return &InvoiceEventsHandler{
		eventLog: eventLog,
		logger:   log,
	}
}

func (h *InvoiceEventsHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	email := c.QueryParam("email")
	if email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "email is required",
		})
	}

	events, err := h.eventLog.ListByOwner(ctx, email)
	if err != nil {
		h.logger.Error(ctx, "Failed to list invoice events",
			"email", email,
			"error", err,
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list invoice events",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"email":  email,
		"events": events,
		"total":  len(events),
	})
}
