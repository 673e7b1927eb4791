package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"github.com/mrarman0786/chat-app/auth"
	"github.com/mrarman0786/chat-app/internal"
	"github.com/mrarman0786/chat-app/moderation"
	"github.com/mrarman0786/chat-app/observability"
	"github.com/mrarman0786/chat-app/repositories"
	"github.com/mrarman0786/chat-app/runtime"
	"github.com/mrarman0786/chat-app/runtime/workers"
	"github.com/mrarman0786/chat-app/server"
	"github.com/mrarman0786/chat-app/services"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility
	// is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = messageRepository.Close() }()

	userRepository, err := repositories.NewUserRepository(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = userRepository.Close() }()

	// 3. Moderation (embedded word lists, Aho-Corasick automaton)
	dictionary, err := runtime.LoadCensored()
	if err != nil {
		return exitRuntime, fmt.Errorf("censored words: %w", err)
	}
	logger.Info(fmt.Sprintf("%d censored word lists loaded [%s]",
		len(dictionary.Languages), strings.Join(dictionary.Languages, ",")))
	moderator, err := moderation.NewModerator(dictionary.Words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderation automaton: %w", err)
	}

	// 4. Core engine: registry, pipeline, presence, services
	registry := runtime.NewRegistry(logger)
	pipeline := runtime.NewPipeline(logger, registry, messageRepository, moderator, config.MaxMessageLength)
	presence := runtime.NewNotifier(registry)
	chatService := services.NewChatService(registry, pipeline, presence, messageRepository)

	issuer := auth.NewIssuer(config.TokenSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, issuer)
	resolver := auth.NewResolver(issuer)
	health := observability.NewHealth(logger, registry)

	// 5. Supervised background workers
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(
		workers.NewBadgerGC(db, config.GCInterval, logger),
		workers.NewTelemetry(health, config.MetricInterval, logger),
	)

	// 6. Context & signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		supervisor.Run(ctx)
	}()

	// 7. HTTP server
	gateway := server.NewServer(logger, resolver, chatService, authService, health, server.Options{
		ConnectionBufferSize: config.ConnectionBufferSize,
		HistoryDefaultLimit:  config.HistoryDefaultLimit,
		HistoryMaxLimit:      config.HistoryMaxLimit,
		AllowedOrigins:       splitOrigins(config.AllowedOrigins),
		ReadLimitBytes:       config.ReadLimitBytes,
		PongTimeout:          config.PongTimeout,
		WriteTimeout:         config.WriteTimeout,
		TokenTTL:             config.AuthTokenDuration,
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: gateway.Routes()}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 8. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 9. Graceful shutdown: stop accepting, let live connections unwind,
	// drain the workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	supervisor.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
