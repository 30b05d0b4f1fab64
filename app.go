package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/logtime/logtime/breaktime"
	"github.com/logtime/logtime/config"
	"github.com/logtime/logtime/hooks"
	"github.com/logtime/logtime/idle"
	"github.com/logtime/logtime/inactivity"
	"github.com/logtime/logtime/internal/logging"
	"github.com/logtime/logtime/notify"
	"github.com/logtime/logtime/postgres"
	"github.com/logtime/logtime/screensaver"
	"github.com/logtime/logtime/tickets"
	"github.com/logtime/logtime/webhook"
)

// app wires configuration, logging and hooks for one run.
type app struct {
	opts   options
	cfg    *config.Config
	log    *logging.Logger
	hooks  *hooks.Bus
	caps   capabilities
	stdout io.Writer

	closers []io.Closer
}

func newApp(opts options, stdout, stderr io.Writer) (*app, error) {
	log := logging.NewWithWriter(stderr, opts.debug, opts.verbose)
	log.Debugf("Debug mode enabled")

	path := opts.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}

	// secrets for the hook sinks may live next to the config
	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := loadEnvFile(envPath); err != nil && !os.IsNotExist(errors.Cause(err)) {
		log.Warningf("%v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	log.Output("config", "Loaded configuration from %s", cfg.Path())

	a := &app{
		opts:   opts,
		cfg:    cfg,
		log:    log,
		hooks:  hooks.NewBus(log),
		caps:   detectCapabilities(os.Getenv),
		stdout: stdout,
	}
	a.caps.debug(log)

	a.registerSinks()
	return a, nil
}

// registerSinks subscribes the configured exporters to every hook event. A
// sink that cannot be set up is reported and skipped.
func (a *app) registerSinks() {
	a.hooks.Add(hooks.All, "log", func(ctx context.Context, ev hooks.Event) error {
		a.log.Output("hooks", "%s %v", ev.Name, ev.Payload)
		return nil
	})

	if url := a.cfg.GetString(config.KeyWebhookURL, ""); url != "" || os.Getenv(webhook.EnvURL) != "" {
		client, err := webhook.NewClient(url, a.log)
		if err != nil {
			a.log.Warningf("webhook hook disabled: %v", err)
		} else {
			a.hooks.Add(hooks.All, "webhook", client.Handler())
			a.closers = append(a.closers, client)
			a.log.Verbosef("Forwarding hook events to webhook")
		}
	}

	if conn := a.cfg.GetString(config.KeyPostgres, ""); conn != "" || os.Getenv(postgres.EnvConnectionString) != "" {
		client, err := postgres.NewClient(conn, a.log)
		if err != nil {
			a.log.Warningf("PostgreSQL hook disabled: %v", err)
		} else {
			a.hooks.Add(hooks.All, "postgres", client.Handler())
			a.closers = append(a.closers, client)
			a.log.Verbosef("Recording hook events in PostgreSQL")
		}
	}
}

// Close releases the hook sinks.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *app) run(ctx context.Context) error {
	if a.opts.getJiraTickets {
		return tickets.NewReporter(a.cfg, nil, a.log).Report(ctx, a.stdout, a.opts.date)
	}

	if !a.opts.monitorInactivity && !a.opts.displayBreakTime {
		fmt.Fprintln(a.stdout, "No action selected")
		return nil
	}

	if err := validateConfiguration(a.cfg, a.opts, a.caps, a.log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.monitor(ctx)
}

// monitor starts the inactivity and break-time loops and blocks until both
// end. The first fatal error stops the other loop.
func (a *app) monitor(ctx context.Context) error {
	var source idle.Source
	if a.opts.monitorInactivity && a.cfg.GetString(config.KeyIdleSource, config.DefaultIdleSource) != idle.SourceMutter {
		// the X source needs no bus, so a missing display is reported first
		src, err := idle.Open(idle.SourceX11, "", nil)
		if err != nil {
			return err
		}
		defer src.Close()
		source = src
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return errors.Wrapf(screensaver.ErrUnavailable, "connect to session bus: %v", err)
	}
	defer conn.Close()

	ss := screensaver.New(conn, a.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var loops []func(context.Context) error

	if a.opts.monitorInactivity {
		if source == nil {
			src, err := idle.Open(idle.SourceMutter, "", conn)
			if err != nil {
				return err
			}
			source = src
		}

		action := inactivity.NewAction(a.hooks, ss, a.log)
		threshold := a.cfg.GetInt(config.KeyIdleTime, config.DefaultIdleTime, true)
		mon, err := idle.NewMonitor(source, threshold, action.Handle, a.log)
		if err != nil {
			return err
		}
		loops = append(loops, mon.Run)
	}

	if a.opts.displayBreakTime {
		states, err := ss.Subscribe(ctx)
		if err != nil {
			return err
		}
		tracker := breaktime.NewTracker(a.hooks, notify.New(conn, a.log), a.log)
		loops = append(loops, func(ctx context.Context) error {
			return tracker.Run(ctx, states)
		})
	}

	a.log.Infof("logtime running. Press Ctrl+C to stop.")
	return runLoops(ctx, cancel, loops...)
}

// runLoops runs every loop in its own goroutine. The first loop error
// cancels the rest and is returned; cancellation itself is not an error.
func runLoops(ctx context.Context, cancel context.CancelFunc, loops ...func(context.Context) error) error {
	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)

	for _, loop := range loops {
		wg.Add(1)
		go func(loop func(context.Context) error) {
			defer wg.Done()
			err := loop(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return
			}
			once.Do(func() {
				first = err
				cancel()
			})
		}(loop)
	}

	wg.Wait()
	return first
}

// validateConfiguration checks the settings the monitoring loops depend on
// before anything is started.
func validateConfiguration(cfg *config.Config, opts options, caps capabilities, log *logging.Logger) error {
	if opts.monitorInactivity {
		threshold := cfg.GetInt(config.KeyIdleTime, -1, true)
		if threshold <= 0 {
			return errors.Errorf("%s must be a positive number of seconds, got %v", config.KeyIdleTime, cfg.GetKey(config.KeyIdleTime, nil))
		}

		switch source := cfg.GetString(config.KeyIdleSource, config.DefaultIdleSource); source {
		case idle.SourceX11:
			if !caps.X11 && caps.Wayland {
				log.Warningf("no X11 display in this Wayland session, set %s: %s to use GNOME's idle monitor", config.KeyIdleSource, idle.SourceMutter)
			}
		case idle.SourceMutter:
		default:
			return errors.Errorf("unknown %s %q (want %s or %s)", config.KeyIdleSource, source, idle.SourceX11, idle.SourceMutter)
		}
	}

	if !caps.SessionBus {
		log.Warningf("DBUS_SESSION_BUS_ADDRESS is not set, the screensaver may be unreachable")
	}
	return nil
}
