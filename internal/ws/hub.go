package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

const writeTimeout = 10 * time.Second

// Hub tracks live websocket connections by connection id and implements
// the best-effort push channel: every delivery failure is swallowed and
// reported as a plain false, never as an error.
type Hub struct {
	connections map[string]*connection
	mu          sync.RWMutex
	logger      *logger.Logger
}

type connection struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]*connection),
		logger:      log,
	}
}

// Register adds a connection to the hub and returns its assigned id.
func (h *Hub) Register(conn *websocket.Conn) string {
	id := uuid.New().String()

	h.mu.Lock()
	h.connections[id] = &connection{ws: conn}
	h.mu.Unlock()

	return id
}

// Unregister drops the connection from the registry without closing it;
// the read loop owns the socket's lifetime.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	delete(h.connections, connectionID)
	h.mu.Unlock()
}

func (h *Hub) Push(ctx context.Context, connectionID string, payload interface{}) bool {
	h.mu.RLock()
	conn, exists := h.connections[connectionID]
	h.mu.RUnlock()

	if !exists {
		h.logger.Debug(ctx, "Push to unknown connection",
			"connection_id", connectionID,
		)
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn(ctx, "Failed to marshal push payload",
			"connection_id", connectionID,
			"error", err,
		)
		return false
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug(ctx, "Push failed",
			"connection_id", connectionID,
			"error", err,
		)
		return false
	}

	return true
}

func (h *Hub) PushStatus(ctx context.Context, transactionID, connectionID string, status domain.TransactionStatus) bool {
	return h.Push(ctx, connectionID, map[string]interface{}{
		"transactionId": transactionID,
		"status":        status,
	})
}

// Terminate force-closes a connection. Best effort: a missing or already
// dead connection reports false and nothing else.
func (h *Hub) Terminate(ctx context.Context, connectionID string) bool {
	h.mu.Lock()
	conn, exists := h.connections[connectionID]
	delete(h.connections, connectionID)
	h.mu.Unlock()

	if !exists {
		return false
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	conn.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	conn.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	if err := conn.ws.Close(); err != nil {
		h.logger.Debug(ctx, "Terminate failed",
			"connection_id", connectionID,
			"error", err,
		)
		return false
	}

	return true
}

var _ domain.Notifier = (*Hub)(nil)
