package server

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/grachmannico95/invoice-import-be/internal/config"
	"github.com/grachmannico95/invoice-import-be/internal/handler"
	"github.com/grachmannico95/invoice-import-be/internal/middleware"
	"github.com/grachmannico95/invoice-import-be/pkg/logger"
)

type Server struct {
	echo                 *echo.Echo
	cfg                  *config.Config
	logger               *logger.Logger
	wsHandler            *handler.WSHandler
	notificationHandler  *handler.NotificationHandler
	uploadHandler        *handler.UploadHandler
	invoiceEventsHandler *handler.InvoiceEventsHandler
	healthHandler        *handler.HealthHandler
}

func New(
	cfg *config.Config,
	log *logger.Logger,
	wsHandler *handler.WSHandler,
	notificationHandler *handler.NotificationHandler,
	uploadHandler *handler.UploadHandler,
	invoiceEventsHandler *handler.InvoiceEventsHandler,
	healthHandler *handler.HealthHandler,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &Server{
		echo:                 e,
		cfg:                  cfg,
		logger:               log,
		wsHandler:            wsHandler,
		notificationHandler:  notificationHandler,
		uploadHandler:        uploadHandler,
		invoiceEventsHandler: invoiceEventsHandler,
		healthHandler:        healthHandler,
	}
}

func (s *Server) Start() error {
	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%s", s.cfg.Server.Host, s.cfg.Server.Port)
	s.logger.Info(context.Background(), "Starting HTTP server",
		"address", addr,
	)

	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(echoMiddleware.CORS())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.Logging(s.logger))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler.Check)

	s.echo.GET("/ws", s.wsHandler.Serve)
	s.echo.POST("/notifications/s3", s.notificationHandler.HandleS3Event)
	s.echo.GET("/invoice-events", s.invoiceEventsHandler.List)

	if s.uploadHandler != nil {
		s.echo.PUT("/uploads/:key", s.uploadHandler.Put)
	}
}

func (s *Server) Handler() *echo.Echo {
	s.setupMiddleware()
	s.setupRoutes()
	return s.echo
}
