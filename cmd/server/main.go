// EventFi - Event Discovery and Ticketing Backend
// Copyright 2026 DevEmmy
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/DevEmmy/eventfi-backend-v2

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DevEmmy/eventfi-backend-v2/internal/api"
	"github.com/DevEmmy/eventfi-backend-v2/internal/audit"
	"github.com/DevEmmy/eventfi-backend-v2/internal/auth"
	"github.com/DevEmmy/eventfi-backend-v2/internal/authz"
	"github.com/DevEmmy/eventfi-backend-v2/internal/chat"
	"github.com/DevEmmy/eventfi-backend-v2/internal/config"
	"github.com/DevEmmy/eventfi-backend-v2/internal/database"
	"github.com/DevEmmy/eventfi-backend-v2/internal/directory"
	"github.com/DevEmmy/eventfi-backend-v2/internal/logging"
	"github.com/DevEmmy/eventfi-backend-v2/internal/supervisor"
	"github.com/DevEmmy/eventfi-backend-v2/internal/supervisor/services"
	ws "github.com/DevEmmy/eventfi-backend-v2/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Chat server stopped with error")
	}
}

//nolint:gocyclo // sequential setup steps
func run() error {
	cfg, err := config.Load()
	if err != nil {
		// The default logger is still in place at this point.
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Starting EventFi chat server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(ctx); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfigFromSecurity(&cfg.Security))
	if err != nil {
		return fmt.Errorf("initialize authorization: %w", err)
	}
	defer enforcer.Close()

	slogLogger := logging.NewSlogLogger()

	events, err := InitEvents(&cfg.Events, auditStore, slogLogger)
	if err != nil {
		return err
	}
	// Runs after the tree has stopped, so the router is gone before the
	// transport it reads from.
	defer events.Close()

	chatService, err := chat.NewService(chat.Config{
		Store:      db,
		Directory:  directory.NewCached(db, cfg.Directory),
		Authorizer: enforcer,
		Notifier:   events.Notifier(),
	})
	if err != nil {
		return fmt.Errorf("initialize chat service: %w", err)
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("initialize JWT verification: %w", err)
	}

	hub := ws.NewHub()
	gateway := ws.NewGateway(hub, chatService, cfg.Chat)

	handler, err := api.NewHandler(cfg, api.HandlerDeps{
		Chat:    chatService,
		Audit:   auditStore,
		Store:   db,
		Gateway: gateway,
	})
	if err != nil {
		return fmt.Errorf("initialize API handlers: %w", err)
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" && cfg.IsProduction() {
			logging.Warn().Msg("CORS allows any origin in production; websocket origin checks are effectively off")
		}
	}

	router := api.NewRouter(
		handler,
		auth.NewMiddleware(jwtManager),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	AddEventsToSupervisor(tree, events)
	tree.AddRealtimeService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}

	tree.LogUnstopped()

	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", treeErr)
	}
	logging.Info().Msg("EventFi chat server stopped")
	return nil
}
