// Package server wires the storage backend, the session resolver and the
// gRPC and HTTP transports, and runs them until shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/storeauth/internal/logging"
	"github.com/dmitrijs2005/storeauth/internal/server/auth"
	"github.com/dmitrijs2005/storeauth/internal/server/config"
	"github.com/dmitrijs2005/storeauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/storeauth/internal/server/rest"
	"google.golang.org/grpc"

	gs "github.com/dmitrijs2005/storeauth/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    *repomanager.Store
	resolver *auth.SessionResolver
	services []func(grpc.ServiceRegistrar)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(os.Stdout, c.LogLevel))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	store, err := repomanager.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	resolver, err := auth.NewSessionResolver(c.AuthSettings(), store.Persons, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("session resolver init error: %w", err)
	}

	if c.SecretKey == config.DefaultSecretKey && c.StorageBackend != config.BackendMemory {
		logger.Warn(ctx, "default secret key in use, tokens can be forged; set -s or secret_key",
			"backend", c.StorageBackend)
	}

	return &App{config: c, logger: logger, store: store, resolver: resolver}, nil
}

// Sessions returns the resolver. Account management calls Start on it once a
// person has proven their identity, and Revoke on logout.
func (app *App) Sessions() *auth.SessionResolver {
	return app.resolver
}

// RegisterGRPC adds business services to the gRPC server. Their methods run
// behind the session interceptors. Must be called before Run.
func (app *App) RegisterGRPC(register ...func(grpc.ServiceRegistrar)) {
	app.services = append(app.services, register...)
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.resolver, gs.DefaultPublicMethods, app.services...)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.resolver)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives or a server fails.
// The storage backend is closed before it returns.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "backend", app.config.StorageBackend)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "storage close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
