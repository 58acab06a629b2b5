package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DevaOnL/Chat-app-sub000/internal/api"
	"github.com/DevaOnL/Chat-app-sub000/internal/config"
	"github.com/DevaOnL/Chat-app-sub000/internal/hub"
	"github.com/DevaOnL/Chat-app-sub000/internal/presence"
	"github.com/DevaOnL/Chat-app-sub000/internal/reaction"
	"github.com/DevaOnL/Chat-app-sub000/internal/router"
	"github.com/DevaOnL/Chat-app-sub000/internal/store"
	"github.com/DevaOnL/Chat-app-sub000/internal/websocket"
)

// Application wires the engine: store -> registry -> router -> ledger ->
// hub -> handlers, torn down in reverse order.
type Application struct {
	config     *config.Config
	store      *store.Store
	registry   *presence.Registry
	dispatcher *hub.Hub
	httpServer *http.Server
}

// NewApplication builds all components in dependency order.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	registry := presence.NewRegistry()
	messageRouter := router.NewRouter(registry, st, st)
	ledger := reaction.NewLedger(st)

	dispatcher := hub.NewHub(registry, messageRouter, ledger, st, st, st, hub.Options{
		RateLimit:    cfg.Chat.RateLimit,
		RateWindow:   cfg.Chat.RateWindow,
		TypingQuiet:  cfg.Chat.TypingQuiet,
		SweepPeriod:  cfg.Chat.SweepPeriod,
		IdleAfter:    cfg.Chat.IdleAfter,
		HistoryLimit: cfg.Chat.HistoryLimit,
	})

	wsHandler := websocket.NewHandler(dispatcher)
	apiServer := api.NewServer(registry, st)

	routes := http.NewServeMux()
	routes.HandleFunc("/ws", wsHandler.HandleWebSocket)
	routes.Handle("/", apiServer)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      routes,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      st,
		registry:   registry,
		dispatcher: dispatcher,
		httpServer: httpServer,
	}, nil
}

// Start launches the dispatcher and the HTTP listener.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("starting chat server on %s", app.httpServer.Addr)

	if err := app.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.dispatcher.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("chat server started")
		return nil
	case <-ctx.Done():
		_ = app.dispatcher.Stop()
		return ctx.Err()
	}
}

// Stop shuts everything down in reverse dependency order.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("shutting down chat server")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.dispatcher.Stop(); err != nil {
		log.Printf("dispatcher shutdown error: %v", err)
	}
	if err := app.store.Close(); err != nil {
		log.Printf("store shutdown error: %v", err)
	}

	log.Printf("chat server shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CHATSERVER_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	appErrCh := make(chan error, 1)
	go func() {
		if err := app.Start(ctx); err != nil {
			appErrCh <- err
		}
	}()

	select {
	case err := <-appErrCh:
		return fmt.Errorf("application error: %w", err)
	case sig := <-signalCh:
		log.Printf("received signal %v, shutting down", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return app.Stop(shutdownCtx)
	}
}
