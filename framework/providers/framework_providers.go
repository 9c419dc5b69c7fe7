package providers

import (
	"go.uber.org/zap"

	"github.com/km-arc/go-fenix/framework/config"
	"github.com/km-arc/go-fenix/framework/container"
	"github.com/km-arc/go-fenix/framework/inspect"
	"github.com/km-arc/go-fenix/framework/metrics"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider binds the loaded configuration.
//
// Bound keys:
//   - *config.Config
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(app *container.Container) error {
	_, err := container.Provide(app, "", p.Config)
	return err
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger.
//
// Bound keys:
//   - *zap.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(app *container.Container) error {
	_, err := container.Provide(app, "", p.Logger)
	return err
}

// Boot announces the environment once every eager provider is in.
func (p *LoggingServiceProvider) Boot(app *container.Container) error {
	cfg, err := container.Get[*config.Config](app, "")
	if err != nil {
		return err
	}
	p.Logger.Info("application booted",
		zap.String("env", cfg.App.Env),
		zap.Bool("debug", cfg.App.Debug),
		zap.Int("keys", len(app.Keys())),
	)
	return nil
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the Prometheus collector the container
// reports to.
//
// Bound keys:
//   - *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(app *container.Container) error {
	_, err := container.Provide(app, "", p.Collector)
	return err
}

// ── InspectorServiceProvider ──────────────────────────────────────────────────

// InspectorServiceProvider lazily builds the HTTP inspector. It is deferred:
// nothing is constructed until *inspect.Inspector is first resolved.
//
// Bound keys:
//   - *inspect.Inspector, depending on *zap.Logger and *metrics.Collector
type InspectorServiceProvider struct {
	container.BaseProvider
}

func (p *InspectorServiceProvider) Register(app *container.Container) error {
	err := container.ProvideLazy(app, "", func(c *container.Container) (*inspect.Inspector, error) {
		logger, err := container.Get[*zap.Logger](c, "")
		if err != nil {
			return nil, err
		}
		opts := []inspect.Option{inspect.WithLogger(logger.Named("inspector"))}

		collector, ok, err := container.TryGet[*metrics.Collector](c, "")
		if err != nil {
			return nil, err
		}
		if ok {
			opts = append(opts, inspect.WithMetrics(collector.Handler()))
		}
		return inspect.New(c, opts...), nil
	})
	if err != nil {
		return err
	}
	if err := container.DependsOn[*inspect.Inspector, *zap.Logger](app, "", ""); err != nil {
		return err
	}
	return container.DependsOn[*inspect.Inspector, *metrics.Collector](app, "", "")
}

func (p *InspectorServiceProvider) IsDeferred() bool { return true }

func (p *InspectorServiceProvider) Provides() []container.Key {
	return []container.Key{container.KeyOf[*inspect.Inspector]("")}
}
