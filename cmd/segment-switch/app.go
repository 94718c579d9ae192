package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/litescript/ls-segment-switch/internal/config"
	"github.com/litescript/ls-segment-switch/internal/connection"
	"github.com/litescript/ls-segment-switch/internal/logging"
	"github.com/litescript/ls-segment-switch/internal/store"
	"github.com/litescript/ls-segment-switch/internal/switcher"
	"github.com/litescript/ls-segment-switch/internal/telemetry"
	"github.com/litescript/ls-segment-switch/internal/theme"
	"github.com/litescript/ls-segment-switch/internal/tui"
	"github.com/litescript/ls-segment-switch/internal/version"
)

const tracerName = "github.com/litescript/ls-segment-switch"

// app wires the store, router and coordinator for one process.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	settings *store.Settings
	router   *connection.Router
	coord    *switcher.Coordinator
	surface  *theme.Document
	registry *prometheus.Registry

	closers []func(context.Context) error
}

type appOptions struct {
	// stderr receives logs when no log file is configured.
	stderr io.Writer
	notify switcher.Notifier
}

func newApp(ctx context.Context, cfg config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, surface: theme.NewDocument()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	logger, logCloser, err := logging.New(cfg.Log, opts.stderr)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	a.onClose(func(context.Context) error { return logCloser.Close() })

	tp, err := telemetry.New(cfg.Telemetry, telemetry.WithVersion(version.Version))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.onClose(tp.Shutdown)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.Metrics.Listen != "" {
		if err := a.serveMetrics(cfg.Metrics.Listen); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	a.onClose(func(context.Context) error { return st.Close() })
	a.settings = store.NewSettings(st)
	a.provisionFromEnv(ctx)

	a.router = connection.NewRouter(a.settings, connection.Options{
		ProbeResource: cfg.Connection.ProbeResource,
		ProbeTimeout:  cfg.ProbeTimeout(),
		Logger:        logger.With("component", "router"),
		Registerer:    a.registry,
	})

	a.coord, err = switcher.New(ctx, a.settings, a.router, switcher.Options{
		Surface:        a.surface,
		Notifier:       opts.notify,
		Logger:         logger.With("component", "switcher"),
		Registerer:     a.registry,
		Tracer:         tp.Tracer(tracerName),
		DefaultSegment: cfg.Segment(),
		OverridesDir:   cfg.Theme.OverridesDir,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func(context.Context) error { return a.coord.Close() })
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close runs the registered closers in reverse order.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && a.logger != nil {
			a.logger.Warn("shutdown", "err", err)
		}
	}
	a.closers = nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics listener stopped", "err", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	a.onClose(srv.Shutdown)
	return nil
}

// provisionFromEnv stores connection configs supplied through the
// environment. Bad entries are logged and skipped.
func (a *app) provisionFromEnv(ctx context.Context) {
	cfgs, err := config.ConnectionsFromEnv(os.Environ())
	if err != nil {
		a.logger.Warn("ignoring connection environment", "err", err)
	}
	for _, c := range cfgs {
		if err := a.settings.PutConnectionConfig(ctx, c); err != nil {
			a.logger.Warn("provision from environment failed", "segment", string(c.Segment), "err", err)
			continue
		}
		a.logger.Info("provisioned from environment", "connection", c.Redacted())
	}
}

func stderrNotifier(w io.Writer) switcher.Notifier {
	return switcher.NotifierFunc(func(kind switcher.Kind, message string) {
		if kind == switcher.KindInfo {
			return
		}
		fmt.Fprintf(w, "%s: %s\n", kind, message)
	})
}

func runTUI(ctx context.Context, cfg config.Config) error {
	notifier := tui.NewChannelNotifier(32)
	// The terminal belongs to the TUI; logs go to the configured file only.
	a, err := newApp(ctx, cfg, appOptions{stderr: io.Discard, notify: notifier})
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Theme.Watch {
		w, err := theme.NewWatcher(cfg.Theme.OverridesDir, func() {
			rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			if err := a.coord.Reload(rctx); err != nil {
				a.logger.Warn("theme reload failed", "err", err)
			}
		})
		if err != nil {
			a.logger.Warn("theme watcher disabled", "dir", cfg.Theme.OverridesDir, "err", err)
		} else {
			defer w.Stop()
		}
	}

	model := tui.NewModel(a.coord, tui.Options{
		Notes:          notifier.Notes(),
		RequestTimeout: cfg.ProbeTimeout() + 10*time.Second,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
