package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bookswap/auth"
	"bookswap/broker"
	"bookswap/domain/event"
	"bookswap/exchange"
	"bookswap/infrastructure/httpapi"
	"bookswap/infrastructure/storage"
	"bookswap/infrastructure/ws"
	"bookswap/internal"
	"bookswap/presence"
	"bookswap/runtime/workers"
	"bookswap/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper: it calls run() and
	// handles the OS exit code, so defers inside run() always execute.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core wiring: repositories, state machine, presence, broker
	events := make(chan event.DomainEvent, config.BufferSize)

	exchangeRepo := storage.NewExchangeRepository(db)
	itemRepo := storage.NewItemRepository(db)
	userRepo := storage.NewUserRepository(db)

	machine := exchange.NewMachine(exchangeRepo, events, logger)
	tracker := presence.NewTracker(events, logger)
	roster := broker.NewRoster()
	fanout := broker.NewFanout(logger, roster, events, config.SinkTimeout)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepo, tokens)

	pushServer := ws.NewServer(logger, tokens, roster, tracker, machine,
		config.AuthTimeout, config.WriteTimeout, config.ConnectionBufferSize)

	handler := httpapi.NewHandler(logger, machine, itemRepo, authService, tokens)
	router := handler.Router(pushServer.Handle)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the fanout under supervision
	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(fanout)
	go supervisor.Run(ctx)
	defer supervisor.Stop()

	// 6. HTTP server (commands + push channel on one listener)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: router}

	errChan := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Listening on %s", address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, fmt.Errorf("http server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("shutdown error: %w", err)
	}
	return exitOK, nil
}
