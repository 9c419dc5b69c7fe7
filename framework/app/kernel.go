package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-fenix/framework/config"
	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/inspect"
	"github.com/km-arc/go-fenix/framework/logging"
	"github.com/km-arc/go-fenix/framework/metrics"
	"github.com/km-arc/go-fenix/framework/providers"
)

const shutdownGrace = 5 * time.Second

// Application is the top-level application container.
// It embeds the Container and ProviderRegistry so user code can call
// app.Register(), app.Resolve() and friends directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New loads configuration from envFiles and the environment and creates
// the application.
func New(envFiles ...string) (*Application, error) {
	return NewWithConfig(config.Load(envFiles...))
}

// NewWithConfig creates the application from an already loaded config.
// The container logs through the configured zap logger and reports to a
// fresh metrics collector.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := logging.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}
	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	c := container.New(
		container.WithLogger(logger.Named("container")),
		container.WithRecorder(collector),
		container.WithDisposeTimeout(cfg.Registry.DisposeTimeout),
	)
	registry := container.NewProviderRegistry(c)

	a := &Application{
		Container: c,
		Providers: registry,
		config:    cfg,
		logger:    logger,
		metrics:   collector,
	}

	// Register framework core providers
	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.MetricsServiceProvider{Collector: collector},
		&providers.InspectorServiceProvider{},
	} {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot() phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() *zap.Logger { return a.logger }

// Metrics returns the collector the container reports to.
func (a *Application) Metrics() *metrics.Collector { return a.metrics }

// Inspector resolves the inspector, loading its deferred provider on first
// use.
func (a *Application) Inspector() (*inspect.Inspector, error) {
	return container.Get[*inspect.Inspector](a.Container, "")
}

// Run boots the application (if needed) and serves the inspector on
// INSPECTOR_ADDR until ctx is cancelled, then shuts down. With the
// inspector disabled it only waits for ctx.
func (a *Application) Run(ctx context.Context) error {
	if !a.config.Inspector.Enabled {
		if err := a.boot(); err != nil {
			return err
		}
		a.logger.Info("inspector disabled, waiting for shutdown")
		<-ctx.Done()
		return a.Shutdown(context.Background())
	}

	ln, err := net.Listen("tcp", a.config.Inspector.Addr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.config.Inspector.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve boots the application (if needed) and serves the inspector on ln
// until ctx is cancelled. The container is closed before Serve returns.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.boot(); err != nil {
		_ = ln.Close()
		return err
	}
	ins, err := a.Inspector()
	if err != nil {
		_ = ln.Close()
		return err
	}

	srv := &http.Server{
		Handler:           ins.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	a.logger.Info("inspector listening",
		zap.String("app", a.config.App.Name),
		zap.String("addr", ln.Addr().String()),
		zap.String("env", a.config.App.Env),
	)

	select {
	case err := <-errCh:
		_ = a.Shutdown(context.Background())
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	srvErr := srv.Shutdown(shutdownCtx)
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		srvErr = errors.Join(srvErr, err)
	}
	return errors.Join(srvErr, a.Shutdown(shutdownCtx))
}

// Shutdown closes the container, disposing every instance, and flushes the
// logger.
func (a *Application) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down", zap.Int("keys", len(a.Keys())))
	err := a.Close(ctx)
	_ = a.logger.Sync()
	return err
}

func (a *Application) boot() error {
	if a.Providers.Booted() {
		return nil
	}
	return a.Boot()
}
