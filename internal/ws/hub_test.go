package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

// startHubServer runs a plain websocket endpoint that registers every
// connection with the hub and keeps reading until the peer goes away.
func startHubServer(t *testing.T, hub *Hub) (*httptest.Server, chan string) {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	ids := make(chan string, 10)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := hub.Register(conn)
		ids <- id
		defer hub.Unregister(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))

	return server, ids
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_PushStatus(t *testing.T) {
	hub := NewHub(logger.NewNop())
	server, ids := startHubServer(t, hub)
	defer server.Close()

	client := dial(t, server)
	defer client.Close()

	id := <-ids

	ok := hub.PushStatus(context.Background(), "tx-1", id, domain.TransactionStatusReceived)
	assert.True(t, ok)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "tx-1", payload["transactionId"])
	assert.Equal(t, "RECEIVED", payload["status"])
}

func TestHub_PushUnknownConnection(t *testing.T) {
	hub := NewHub(logger.NewNop())

	ok := hub.Push(context.Background(), "no-such-connection", map[string]string{"hello": "world"})
	assert.False(t, ok)
}

func TestHub_Terminate(t *testing.T) {
	hub := NewHub(logger.NewNop())
	server, ids := startHubServer(t, hub)
	defer server.Close()

	client := dial(t, server)
	defer client.Close()

	id := <-ids

	ok := hub.Terminate(context.Background(), id)
	assert.True(t, ok)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)

	// The connection is gone from the registry; further pushes fail.
	assert.False(t, hub.PushStatus(context.Background(), "tx-1", id, domain.TransactionStatusTimeout))
}

func TestHub_TerminateUnknownConnection(t *testing.T) {
	hub := NewHub(logger.NewNop())

	assert.False(t, hub.Terminate(context.Background(), "no-such-connection"))
}

func TestHub_PushAfterClientGone(t *testing.T) {
	hub := NewHub(logger.NewNop())
	server, ids := startHubServer(t, hub)
	defer server.Close()

	client := dial(t, server)
	id := <-ids
	client.Close()

	// Give the server side a moment to notice the close.
	time.Sleep(50 * time.Millisecond)

	// Delivery failure is swallowed and reported as false, never an
	// error.
	assert.NotPanics(t, func() {
		hub.Push(context.Background(), id, map[string]string{"hello": "world"})
	})
}
