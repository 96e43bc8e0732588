package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/suitemux"
	"github.com/aretw0/suitemux/internal/config"
	suitehttp "github.com/aretw0/suitemux/pkg/adapters/http"
	"github.com/aretw0/suitemux/pkg/adapters/process"
	suiteredis "github.com/aretw0/suitemux/pkg/adapters/redis"
	"github.com/aretw0/suitemux/pkg/observability"
	"github.com/aretw0/suitemux/pkg/ports"
	"github.com/aretw0/suitemux/pkg/reporter"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// Env is what the CLI takes from its process.
type Env struct {
	Dir    string // resolves relative files and locations; defaults to the working directory
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Color forces colour on or off; nil means detect from Stdout.
	Color *bool
}

func (e Env) withDefaults() Env {
	if e.Dir == "" {
		e.Dir, _ = os.Getwd()
	}
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	return e
}

// App holds everything built from one configuration.
type App struct {
	Config    config.Config
	Processes *process.Loader
	Redis     *backend.Client
	Metrics   *observability.Metrics
	Registry  *prometheus.Registry

	env    Env
	logger *slog.Logger
}

// NewApp builds the loaders and metrics described by cfg.
func NewApp(cfg config.Config, env Env) (*App, error) {
	env = env.withDefaults()
	logger := env.Logger
	if logger == nil {
		logger = NewLogger(cfg)
	}

	procPath := cfg.Processes
	if procPath != "" && !filepath.IsAbs(procPath) {
		procPath = filepath.Join(env.Dir, procPath)
	}
	procs := map[string]process.ProcessConfig{}
	if procPath != "" {
		var err error
		if procs, err = process.LoadProcesses(procPath); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	app := &App{
		Config: cfg,
		Processes: process.NewLoader(
			process.WithRegistry(procs),
			process.WithBaseDir(env.Dir),
			process.WithStderr(env.Stderr),
			process.WithLogger(logger),
		),
		Metrics:  metrics,
		Registry: reg,
		env:      env,
		logger:   logger,
	}
	if cfg.Redis.Addr != "" {
		app.Redis = backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
	}
	return app, nil
}

// Close releases the Redis client.
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}

func (a *App) redisOptions() []suiteredis.Option {
	opts := []suiteredis.Option{suiteredis.WithLogger(a.logger)}
	if a.Config.Redis.Prefix != "" {
		opts = append(opts, suiteredis.WithPrefix(a.Config.Redis.Prefix))
	}
	return opts
}

// Loader routes every child to the adapter serving its scheme.
func (a *App) Loader() ports.Loader {
	httpLoader := suitehttp.NewLoader(suitehttp.WithLoaderLogger(a.logger))
	loaders := map[string]ports.Loader{
		process.Scheme: a.Processes,
		"http":         httpLoader,
		"https":        httpLoader,
	}
	if a.Redis != nil {
		loaders[RedisScheme] = suiteredis.NewLoader(a.Redis, a.redisOptions()...)
	}
	return NewSchemeLoader(loaders)
}

func (a *App) base() (*url.URL, error) {
	if a.Config.Base != "" {
		u, err := url.Parse(a.Config.Base)
		if err != nil {
			return nil, fmt.Errorf("base location: %w", err)
		}
		return u, nil
	}
	dir := filepath.ToSlash(a.env.Dir)
	if !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return &url.URL{Scheme: "file", Path: dir}, nil
}

func (a *App) color() bool {
	if a.env.Color != nil {
		return *a.env.Color
	}
	switch strings.ToLower(a.Config.Color) {
	case "always":
		return true
	case "never":
		return false
	}
	return isTerminal(a.env.Stdout)
}

// Controller builds a controller with every configured child declared.
func (a *App) Controller(extra ...config.Child) (*suitemux.Controller, error) {
	factory, err := reporter.ByName(a.Config.Reporter)
	if err != nil {
		return nil, err
	}
	base, err := a.base()
	if err != nil {
		return nil, err
	}

	ctl := suitemux.New(
		suitemux.WithLogger(a.logger),
		suitemux.WithLoadTimeout(a.Config.LoadTimeout),
		suitemux.WithLoader(a.Loader()),
		suitemux.WithBaseLocation(base),
		suitemux.WithReporter(factory, ports.ReporterOptions{Output: a.env.Stdout, Color: a.color()}),
		suitemux.WithMetrics(a.Metrics),
	)

	children := append(append([]config.Child{}, a.Config.Children...), extra...)
	var errs []error
	for _, c := range children {
		args := []string{c.Label}
		if c.Location != "" {
			args = []string{c.Location}
			if c.Label != "" {
				args = []string{c.Label, c.Location}
			}
		}
		if err := ctl.Declare(args[0], args[1:]...); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		_ = ctl.Close()
		return nil, err
	}
	return ctl, nil
}

// Local returns the local suite: the registered process named by the
// configuration, or an empty suite.
func (a *App) Local() (ports.Runnable, error) {
	if a.Config.Local == "" {
		return emptySuite(), nil
	}
	name, args, err := process.ParseLocation(process.Scheme + ":" + a.Config.Local)
	if err != nil {
		return nil, err
	}
	return a.Processes.Suite(name, args)
}

// Ping checks the Redis connection when one is configured.
func (a *App) Ping(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", a.Config.Redis.Addr, err)
	}
	return nil
}
