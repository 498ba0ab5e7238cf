package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/presence-chat-demo/modules/broadcast"
	"github.com/example/presence-chat-demo/modules/presence"
	"github.com/example/presence-chat-demo/modules/rooms"
	"github.com/example/presence-chat-demo/modules/typing"
)

// Module is the connection gateway: a Fiber HTTP server that upgrades /ws
// requests, resolves identities, and dispatches client event frames to the
// presence, rooms and typing modules.
type Module struct {
	app      *fiber.App
	presence *presence.Module
	rooms    *rooms.Module
	typing   *typing.Module
	hub      *broadcast.Hub
	port     string
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new gateway module.
func NewModule(
	presenceModule *presence.Module,
	roomsModule *rooms.Module,
	typingModule *typing.Module,
	hub *broadcast.Hub,
	logger types.Logger,
) *Module {
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	return &Module{
		presence: presenceModule,
		rooms:    roomsModule,
		typing:   typingModule,
		hub:      hub,
		port:     port,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "gateway"
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins(),
	}))
	m.app.Use(loggerMiddleware())

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			log.Printf("[gateway] HTTP server error: %v", err)
		}
	}()

	m.logger.Info("Gateway started", "port", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down gateway")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.port,
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// ErrorResponse is the JSON error body for HTTP endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the JSON body for GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

func allowedOrigins() string {
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		return origins
	}
	return "*"
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[gateway] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}
