package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"pairchat/api"
	"pairchat/auth"
	"pairchat/gateway"
	"pairchat/internal"
	"pairchat/moderation"
	"pairchat/observability"
	"pairchat/projection"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/runtime/workers"
	"pairchat/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories & Event Pipeline
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)

	dispatcher := runtime.NewDispatcher(log, config.EventBufferSize)
	registry := runtime.NewRegistry()
	presence := runtime.NewPresenceRegistry(log, dispatcher, userRepository, config.PresenceGracePeriod)

	collector := observability.NewStatsCollector(log)
	timeline := projection.NewTimeline(config.TimelineCapacity)
	fanout := workers.NewEventFanout(log, registry, dispatcher.Events(), config.SinkTimeout).
		Add(collector, timeline)

	// 4. Moderation
	censored, err := runtime.LoadCensoredWords()
	if err != nil {
		return fmt.Errorf("loading censored words failed: %w", err)
	}
	moderator, err := moderation.NewModerator(censored.Words, config.CensoredChar(), log)
	if err != nil {
		return fmt.Errorf("building moderation automaton failed: %w", err)
	}
	log.Info("Moderation dictionaries loaded",
		"languages", censored.Languages,
		"words", len(censored.Words))

	// 5. Services & Gateway
	authenticator := auth.NewAuthenticator(config.JWTSecret, config.AuthTokenDuration)
	messageService := services.NewMessageService(messageRepository, userRepository,
		moderator, dispatcher, config.MaxContentLength, log)
	authService := services.NewAuthService(userRepository, authenticator)
	userService := services.NewUserService(userRepository, presence)

	gw := gateway.NewGateway(log, registry, presence, dispatcher,
		messageService, authenticator, config.ConnectionBufferSize)

	router := api.NewRouter(authenticator,
		api.NewAuthHandler(authService),
		api.NewMessageHandler(messageService),
		api.NewUserHandler(userService),
		api.NewStatsHandler(collector, userRepository, messageRepository, presence),
		gw)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Start the supervised workers
	sup := workers.NewSupervisor(log)
	sup.Add(fanout)
	go sup.Run(ctx)

	// 8. Optional badger inspector for development
	if config.EnableInspector {
		internal.StartDebugServer(db, config.DebugPort, "/inspect", internal.DefaultMapper, func() map[string]any {
			stats := collector.Collect()
			return map[string]any{
				"MessagesSent":  stats.MessagesSent,
				"OnlineUsers":   len(registry.AllSinks()),
				"TypingSignals": stats.TypingSignals,
				"Uptime":        time.Duration(stats.UptimeSeconds) * time.Second,
			}
		})
		log.Info("Inspector started", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))
	}

	// 9. HTTP Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: router}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 10. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 11. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
