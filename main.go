package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/presence-chat-demo/modules/broadcast"
	"github.com/example/presence-chat-demo/modules/gateway"
	"github.com/example/presence-chat-demo/modules/presence"
	"github.com/example/presence-chat-demo/modules/rooms"
	"github.com/example/presence-chat-demo/modules/typing"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Presence Chat Demo - Fiber + EventBus Pubsub ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()
	catalog := roomCatalog()
	maxChars := getEnvInt("MAX_MESSAGE_CHARS", rooms.DefaultMaxMessageChars)

	// Create modules
	presenceModule := presence.NewModule(logger.WithModule("presence"))
	roomsModule := rooms.NewModule(catalog, maxChars, presenceModule, logger.WithModule("rooms"))
	typingModule := typing.NewModule(presenceModule, roomsModule, logger.WithModule("typing"))
	broadcastModule := broadcast.NewModule()
	gatewayModule := gateway.NewModule(
		presenceModule, roomsModule, typingModule,
		broadcastModule.GetHub(), logger.WithModule("gateway"),
	)

	// Register modules with the framework.
	// Order: core state owners first, then consumers, then the driving adapter.
	app.Register(presenceModule)  // Identity registry + roster emitter
	app.Register(roomsModule)     // Room catalog, membership, history
	app.Register(typingModule)    // Typing relay
	app.Register(broadcastModule) // WebSocket hub + event consumer
	app.Register(gatewayModule)   // HTTP/WebSocket gateway

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(catalog)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// roomCatalog reads the fixed room list from CHAT_ROOMS (comma-separated).
func roomCatalog() []string {
	raw := getEnv("CHAT_ROOMS", "room 1,room 2,room 3,room 4")
	parts := strings.Split(raw, ",")
	catalog := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			catalog = append(catalog, name)
		}
	}
	return catalog
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func printStartupInfo(catalog []string) {
	port := getEnv("PORT", "4000")
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Event-Driven Chat:")
	log.Println("  - RosterChanged events -> broadcast module -> all clients")
	log.Println("  - MessageSent events -> broadcast module -> room members")
	log.Println("  - TypingStarted/Stopped events -> broadcast module -> room members")
	log.Println("")
	log.Printf("Rooms: %s", strings.Join(catalog, ", "))
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Printf("  Connect with: ws://localhost:%s/ws?userId=<token or empty>", port)
	log.Println("  Client events: joinRoom, getMessages, setNickname, chatMessage, startTyping, stopTyping")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
