package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/autopilot"
	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/pkg/adapters/file"
	"github.com/aretw0/autopilot/pkg/adapters/memory"
	"github.com/aretw0/autopilot/pkg/adapters/process"
	"github.com/aretw0/autopilot/pkg/adapters/redis"
	"github.com/aretw0/autopilot/pkg/adapters/simulated"
	"github.com/aretw0/autopilot/pkg/config"
	"github.com/aretw0/autopilot/pkg/observability"
	"github.com/aretw0/autopilot/pkg/ports"
)

// App bundles the facade with the collaborators the commands need.
type App struct {
	Autopilot *autopilot.Autopilot
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	Config    config.Config

	closers []io.Closer
}

// AppOptions adjusts how an App is assembled.
type AppOptions struct {
	// DryRun forces the simulated actuator regardless of configuration.
	DryRun bool
	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer
	// Extra facade options, applied last. Tests use it to inject fakes.
	Extra []autopilot.Option
}

// NewApp builds an App from configuration.
func NewApp(cfg config.Config, opts AppOptions) (*App, error) {
	logger, err := createLogger(cfg.LogLevel, opts.LogWriter)
	if err != nil {
		return nil, err
	}

	app := &App{
		Metrics: observability.NewMetrics(),
		Logger:  logger,
		Config:  cfg,
	}

	store, err := app.createStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	actuator, matcher := createDevice(cfg, opts.DryRun, logger)

	apOpts := []autopilot.Option{
		autopilot.WithLogger(logger),
		autopilot.WithStore(store),
		autopilot.WithActuator(actuator),
		autopilot.WithTemplateDir(cfg.TemplateDir),
		autopilot.WithLifecycleHooks(app.Metrics.Hooks()),
		autopilot.WithLifecycleHooks(observability.LogHooks(logger)),
	}
	if matcher != nil {
		apOpts = append(apOpts, autopilot.WithMatcher(matcher))
	}
	apOpts = append(apOpts, opts.Extra...)

	ap, err := autopilot.New(cfg.UnitsDir, apOpts...)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("error initializing autopilot: %w", err)
	}
	app.Autopilot = ap
	return app, nil
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) createStore(cfg config.StoreConfig) (ports.StatusStore, error) {
	switch cfg.Backend {
	case config.StoreFile:
		a.Logger.Debug("Using file status store", "path", cfg.Path)
		return file.NewStore(cfg.Path), nil
	case config.StoreRedis:
		ttl, err := cfg.Redis.TTLDuration()
		if err != nil {
			return nil, err
		}
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if ttl > 0 {
			opts = append(opts, redis.WithTTL(ttl))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Ping(context.Background()); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, store)
		a.Logger.Debug("Using redis status store", "addr", cfg.Redis.Addr)
		return store, nil
	default:
		return memory.NewStore(), nil
	}
}

// createDevice picks the actuator and, when a matcher command is configured,
// the template matcher. A nil matcher makes image searches come up empty.
func createDevice(cfg config.Config, dryRun bool, logger *slog.Logger) (ports.Actuator, ports.ImageMatcher) {
	if dryRun || cfg.Actuator.Backend == config.ActuatorSimulated {
		opts := []simulated.ActuatorOption{
			simulated.WithScreen(cfg.Actuator.ScreenWidth, cfg.Actuator.ScreenHeight),
		}
		if cfg.Actuator.FailsafeEnabled() {
			opts = append(opts, simulated.WithFailsafe())
		}
		logger.Debug("Using simulated actuator", "width", cfg.Actuator.ScreenWidth, "height", cfg.Actuator.ScreenHeight)
		return simulated.NewActuator(opts...), simulated.NewMatcher()
	}

	runner := process.NewRunner(process.WithRegistry(cfg.Commands))
	if !runner.Registered(process.Xdotool) {
		runner.Register(process.Xdotool, process.Xdotool)
	}
	actuator := process.NewActuator(runner, process.WithFailsafe(cfg.Actuator.FailsafeEnabled()))

	if !runner.Registered(process.MatcherCommand) {
		logger.Warn("No image matcher command configured; image nodes will not find anything", "command", process.MatcherCommand)
		return actuator, nil
	}
	return actuator, process.NewMatcher(runner)
}

// createLogger configures the application logger from a level name.
func createLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return logging.New(lvl), nil
	}
	return logging.NewWithWriter(w, lvl), nil
}
