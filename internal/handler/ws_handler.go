package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/invoice-import-be/internal/service"
	"github.com/grachmannico95/invoice-import-be/internal/ws"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

const (
	actionGetUploadURL = "getUploadUrl"
	actionCancelImport = "cancelImport"
)

type controlFrame struct {
	Action        string `json:"action"`
	TransactionID string `json:"transactionId"`
}

// WSHandler owns the push channel endpoint: it upgrades the connection,
// registers it with the hub and dispatches inbound control frames to the
// grant and cancellation services. All responses travel back through the
// hub as pushes.
type WSHandler struct {
	hub      *ws.Hub
	grants   *service.GrantService
	cancels  *service.CancelService
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, grants *service.GrantService, cancels *service.CancelService, log *logger.Logger) *WSHandler {
	return &WSHandler{
		hub:     hub,
		grants:  grants,
		cancels: cancels,
		logger:  log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Serve(c echo.Context) error {
	ctx := c.Request().Context()

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error(ctx, "Websocket upgrade failed",
			"error", err,
		)
		return err
	}

	connectionID := h.hub.Register(conn)
	defer h.hub.Unregister(connectionID)

	h.logger.Info(ctx, "Client connected",
		"connection_id", connectionID,
	)

	h.hub.Push(ctx, connectionID, map[string]string{
		"connectionId": connectionID,
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug(ctx, "Client disconnected",
				"connection_id", connectionID,
				"error", err,
			)
			return nil
		}

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Warn(ctx, "Unreadable control frame",
				"connection_id", connectionID,
				"error", err,
			)
			continue
		}

		switch frame.Action {
		case actionGetUploadURL:
			if _, err := h.grants.IssueGrant(ctx, connectionID, logger.GetTraceID(ctx)); err != nil {
				h.logger.Error(ctx, "Failed to issue upload grant",
					"connection_id", connectionID,
					"error", err,
				)
			}
		case actionCancelImport:
			if err := h.cancels.Cancel(ctx, frame.TransactionID, connectionID); err != nil {
				h.logger.Error(ctx, "Failed to cancel transaction",
					"connection_id", connectionID,
					"error", err,
				)
			}
		default:
			h.logger.Warn(ctx, "Unknown control action",
				"connection_id", connectionID,
				"action", frame.Action,
			)
		}
	}
}
