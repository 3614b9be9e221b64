package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

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

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging.Level)
	defer log.Sync()

	ctx := context.Background()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info(ctx, "Starting application")

	transactions := storage.NewTransactionStore(log)
	invoices := storage.NewInvoiceStore()
	eventLog := storage.NewInvoiceEventLog()
	log.Info(ctx, "Stores initialized")

	eventBusCfg := &eventbus.Config{
		ChannelBuffer: cfg.EventBus.ChannelBufferSize,
		MaxRetries:    cfg.Worker.MaxRetries,
	}
	bus := eventbus.New(log, eventBusCfg)
	log.Info(ctx, "Event bus initialized")

	// Store mutations flow onto the bus as change-stream events; this is
	// the only path by which the expiry and recorder consumers learn
	// about record lifecycle.
	publishChange := func(change domain.ChangeEvent) {
		eventType := eventbus.EventTypeRecordInserted
		if change.Type == domain.ChangeTypeRemove {
			eventType = eventbus.EventTypeRecordRemoved
		}
		_ = bus.Publish(runCtx, eventbus.Event{
			ID:        uuid.New().String(),
			Type:      eventType,
			Payload:   eventbus.ChangeStreamEvent{Change: change},
			Timestamp: time.Now(),
		})
	}
	transactions.SetChangeListener(publishChange)
	invoices.SetChangeListener(publishChange)

	hub := ws.NewHub(log)

	var objects domain.ObjectStore
	var minioStore *objectstore.MinioStore
	switch cfg.ObjectStore.Backend {
	case "s3":
		store, err := objectstore.NewMinioStore(cfg.ObjectStore, log)
		if err != nil {
			log.Fatal(ctx, "Failed to initialize object store",
				"error", err,
			)
		}
		minioStore = store
		objects = store
	default:
		baseURL := fmt.Sprintf("http://%s:%s", cfg.Server.Host, cfg.Server.Port)
		objects = objectstore.NewMemoryStore(baseURL)
	}
	log.Info(ctx, "Object store initialized",
		"backend", cfg.ObjectStore.Backend,
	)

	publisher := eventbus.NewAuditPublisher(bus, log)

	grantService := service.NewGrantService(transactions, objects, hub,
		cfg.Grant.URLExpiry, cfg.Grant.TransactionTTL, log)
	importService := service.NewImportService(transactions, invoices, objects, hub, publisher, log)
	cancelService := service.NewCancelService(transactions, hub, log)
	log.Info(ctx, "Services initialized")

	importConsumer := eventbus.NewImportConsumer(importService, log, cfg.Worker.PoolSize)
	streamConsumer := eventbus.NewStreamConsumer(eventLog, hub, publisher, log, cfg.Worker.PoolSize)
	auditConsumer := eventbus.NewAuditLogConsumer(log, 1)

	subscriptions := map[eventbus.EventType]eventbus.Consumer{
		eventbus.EventTypeObjectUploaded: importConsumer,
		eventbus.EventTypeRecordInserted: streamConsumer,
		eventbus.EventTypeRecordRemoved:  streamConsumer,
		eventbus.EventTypeAudit:          auditConsumer,
	}
	for eventType, consumer := range subscriptions {
		if err := bus.Subscribe(eventType, consumer); err != nil {
			log.Fatal(ctx, "Failed to subscribe consumer",
				"event_type", eventType,
				"error", err,
			)
		}
	}

	if err := bus.Start(runCtx); err != nil {
		log.Fatal(ctx, "Failed to start event bus",
			"error", err,
		)
	}

	transactions.StartSweeper(runCtx, cfg.Grant.SweepInterval)
	log.Info(ctx, "Transaction sweeper started",
		"interval", cfg.Grant.SweepInterval,
	)

	if minioStore != nil && cfg.ObjectStore.ListenNotifications {
		go minioStore.Listen(runCtx, func(key string) {
			_ = bus.Publish(runCtx, eventbus.Event{
				ID:        uuid.New().String(),
				Type:      eventbus.EventTypeObjectUploaded,
				Payload:   eventbus.ObjectUploadedEvent{Key: key},
				Timestamp: time.Now(),
			})
		})
		log.Info(ctx, "Bucket notification listener started")
	}

	wsHandler := handler.NewWSHandler(hub, grantService, cancelService, log)
	notificationHandler := handler.NewNotificationHandler(bus, log)
	invoiceEventsHandler := handler.NewInvoiceEventsHandler(eventLog, log)
	healthHandler := handler.NewHealthHandler()

	var uploadHandler *handler.UploadHandler
	if cfg.ObjectStore.Backend != "s3" {
		uploadHandler = handler.NewUploadHandler(objects, bus, log)
	}

	srv := server.New(cfg, log, wsHandler, notificationHandler, uploadHandler, invoiceEventsHandler, healthHandler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal(ctx, "Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	log.Info(ctx, "Application started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown in order:
	// 1. Stop accepting new HTTP requests
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP server shutdown error",
			"error", err,
		)
	}

	// 2. Stop the sweeper and notification listener
	cancel()
	transactions.WaitSweeper()

	// 3. Stop event bus and wait for workers to finish
	if err := bus.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "Event bus shutdown error",
			"error", err,
		)
	}

	log.Info(ctx, "Application stopped gracefully")
}
