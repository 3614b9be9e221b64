package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grachmannico95/invoice-import-be/internal/config"
	"github.com/grachmannico95/invoice-import-be/internal/domain"
	"github.com/grachmannico95/invoice-import-be/internal/eventbus"
	"github.com/grachmannico95/invoice-import-be/internal/handler"
	"github.com/grachmannico95/invoice-import-be/internal/objectstore"
	"github.com/grachmannico95/invoice-import-be/internal/server"
	"github.com/grachmannico95/invoice-import-be/internal/service"
	"github.com/grachmannico95/invoice-import-be/internal/storage"
	"github.com/grachmannico95/invoice-import-be/internal/ws"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

type stack struct {
	server *httptest.Server
	bus    eventbus.EventBus
	cancel context.CancelFunc
}

func (s *stack) close() {
	s.server.Close()
	s.cancel()
	s.bus.Shutdown(context.Background())
}

func setupStack(t *testing.T, grantCfg config.GrantConfig) *stack {
	t.Helper()

	log := logger.NewNop()
	runCtx, cancel := context.WithCancel(context.Background())

	transactions := storage.NewTransactionStore(log)
	invoices := storage.NewInvoiceStore()
	eventLog := storage.NewInvoiceEventLog()

	bus := eventbus.New(log, &eventbus.Config{ChannelBuffer: 100, MaxRetries: 3})

	publishChange := func(change domain.ChangeEvent) {
		eventType := eventbus.EventTypeRecordInserted
		if change.Type == domain.ChangeTypeRemove {
			eventType = eventbus.EventTypeRecordRemoved
		}
		bus.Publish(runCtx, eventbus.Event{
			ID:        uuid.New().String(),
			Type:      eventType,
			Payload:   eventbus.ChangeStreamEvent{Change: change},
			Timestamp: time.Now(),
		})
	}
	transactions.SetChangeListener(publishChange)
	invoices.SetChangeListener(publishChange)

	hub := ws.NewHub(log)
	objects := objectstore.NewMemoryStore("")
	publisher := eventbus.NewAuditPublisher(bus, log)

	grantService := service.NewGrantService(transactions, objects, hub,
		grantCfg.URLExpiry, grantCfg.TransactionTTL, log)
	importService := service.NewImportService(transactions, invoices, objects, hub, publisher, log)
	cancelService := service.NewCancelService(transactions, hub, log)

	require.NoError(t, bus.Subscribe(eventbus.EventTypeObjectUploaded,
		eventbus.NewImportConsumer(importService, log, 5)))
	streamConsumer := eventbus.NewStreamConsumer(eventLog, hub, publisher, log, 5)
	require.NoError(t, bus.Subscribe(eventbus.EventTypeRecordInserted, streamConsumer))
	require.NoError(t, bus.Subscribe(eventbus.EventTypeRecordRemoved, streamConsumer))
	require.NoError(t, bus.Subscribe(eventbus.EventTypeAudit,
		eventbus.NewAuditLogConsumer(log, 1)))
	require.NoError(t, bus.Start(runCtx))

	transactions.StartSweeper(runCtx, grantCfg.SweepInterval)

	srv := server.New(
		&config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: "0"}},
		log,
		handler.NewWSHandler(hub, grantService, cancelService, log),
		handler.NewNotificationHandler(bus, log),
		handler.NewUploadHandler(objects, bus, log),
		handler.NewInvoiceEventsHandler(eventLog, log),
		handler.NewHealthHandler(),
	)

	return &stack{
		server: httptest.NewServer(srv.Handler()),
		bus:    bus,
		cancel: cancel,
	}
}

func defaultGrantConfig() config.GrantConfig {
	return config.GrantConfig{
		URLExpiry:      5 * time.Minute,
		TransactionTTL: 2 * time.Minute,
		SweepInterval:  50 * time.Millisecond,
	}
}

func dialWS(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	return payload
}

func requestGrant(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	welcome := readJSON(t, conn)
	require.NotEmpty(t, welcome["connectionId"])

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "getUploadUrl"}))

	grant := readJSON(t, conn)
	require.NotEmpty(t, grant["url"])
	require.NotEmpty(t, grant["transactionId"])
	return grant
}

func uploadInvoice(t *testing.T, serverURL string, grant map[string]interface{}, file domain.InvoiceFile) {
	t.Helper()

	body, err := json.Marshal(file)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, serverURL+grant["url"].(string), bytes.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestImportFlow_ValidInvoice(t *testing.T) {
	s := setupStack(t, defaultGrantConfig())
	defer s.close()

	conn := dialWS(t, s.server.URL)
	defer conn.Close()

	grant := requestGrant(t, conn)
	assert.Equal(t, float64(300), grant["expires"])

	uploadInvoice(t, s.server.URL, grant, domain.InvoiceFile{
		CustomerEmail: "a@example.com",
		InvoiceNumber: "INV001",
		TotalValue:    99.90,
		ProductID:     "product-1",
		Quantity:      2,
	})

	received := readJSON(t, conn)
	assert.Equal(t, "RECEIVED", received["status"])

	processed := readJSON(t, conn)
	assert.Equal(t, "PROCESSED", processed["status"])
	assert.Equal(t, grant["transactionId"], processed["transactionId"])

	// The server disconnects the client after the terminal push.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// The audit trail for the owner is queryable once the change-stream
	// recorder has caught up.
	assert.Eventually(t, func() bool {
		resp, err := http.Get(s.server.URL + "/invoice-events?email=a@example.com")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var result map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return false
		}
		return result["total"] == float64(1)
	}, 3*time.Second, 50*time.Millisecond)
}

func TestImportFlow_InvalidInvoiceNumber(t *testing.T) {
	s := setupStack(t, defaultGrantConfig())
	defer s.close()

	conn := dialWS(t, s.server.URL)
	defer conn.Close()

	grant := requestGrant(t, conn)

	uploadInvoice(t, s.server.URL, grant, domain.InvoiceFile{
		CustomerEmail: "a@example.com",
		InvoiceNumber: "AB12",
		TotalValue:    10,
	})

	received := readJSON(t, conn)
	assert.Equal(t, "RECEIVED", received["status"])

	rejected := readJSON(t, conn)
	assert.Equal(t, "NON_VALID_INVOICE_NUMBER", rejected["status"])

	detail := readJSON(t, conn)
	assert.Contains(t, detail["message"], "invoice number")
}

func TestImportFlow_CancelThenUpload(t *testing.T) {
	s := setupStack(t, defaultGrantConfig())
	defer s.close()

	conn := dialWS(t, s.server.URL)
	defer conn.Close()

	grant := requestGrant(t, conn)
	transactionID := grant["transactionId"].(string)

	require.NoError(t, conn.WriteJSON(map[string]string{
		"action":        "cancelImport",
		"transactionId": transactionID,
	}))

	cancelled := readJSON(t, conn)
	assert.Equal(t, "CANCELED", cancelled["status"])

	// The cancellation disconnects the client.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// A late upload to the same key is reported against the stored
	// status; on a second connection we only observe that no invoice was
	// created.
	uploadInvoice(t, s.server.URL, grant, domain.InvoiceFile{
		CustomerEmail: "a@example.com",
		InvoiceNumber: "INV001",
	})

	resp, err := http.Get(s.server.URL + "/invoice-events?email=a@example.com")
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, float64(0), result["total"])
}

func TestImportFlow_Timeout(t *testing.T) {
	cfg := defaultGrantConfig()
	cfg.TransactionTTL = 200 * time.Millisecond
	cfg.SweepInterval = 20 * time.Millisecond

	s := setupStack(t, cfg)
	defer s.close()

	conn := dialWS(t, s.server.URL)
	defer conn.Close()

	grant := requestGrant(t, conn)

	// No upload happens; the sweeper removes the transaction and the
	// expiry path reports the timeout before closing the connection.
	timeout := readJSON(t, conn)
	assert.Equal(t, "TIMEOUT", timeout["status"])
	assert.Equal(t, grant["transactionId"], timeout["transactionId"])

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	s := setupStack(t, defaultGrantConfig())
	defer s.close()

	resp, err := http.Get(s.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "ok", result["status"])
}

func TestBucketNotificationWebhook(t *testing.T) {
	s := setupStack(t, defaultGrantConfig())
	defer s.close()

	// Records without a transaction are orphans; the endpoint still
	// accepts and fans them out.
	payload := `{"Records":[{"s3":{"object":{"key":"orphan-key"}}},{"s3":{"object":{"key":""}}}]}`
	resp, err := http.Post(s.server.URL+"/notifications/s3", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var result map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 1, result["records"])
}
