package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/cli"
	"github.com/grovetools/cctv/config"
	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/internal/booster"
	"github.com/grovetools/cctv/internal/encoder"
	"github.com/grovetools/cctv/internal/metrics"
	"github.com/grovetools/cctv/internal/pidfile"
	"github.com/grovetools/cctv/internal/scheduler"
	"github.com/grovetools/cctv/internal/supervisor"
	"github.com/grovetools/cctv/internal/surface"
	"github.com/grovetools/cctv/pkg/paths"
	"github.com/grovetools/cctv/pkg/process"
	"github.com/grovetools/cctv/state"
)

const (
	selfNice  = -5
	closeWait = time.Second
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture the configured page until its window closes",
		Long: `Starts the browser on the persisted URL, maximizes it and writes a JPEG
frame every capture period into a new session directory. When the window
closes the session directory is compressed into a zip archive next to it.

Only one agent runs at a time; a second one exits immediately with status 0.

Examples:
  # Run with the persisted URL
  cctv run

  # Capture another page once without changing the setting
  cctv run --url https://10.0.0.5/`,
		RunE: runAgent,
	}
	cmd.Flags().String("url", "", "Capture this URL for one session without persisting it")
	return cmd
}

func runAgent(cmd *cobra.Command, args []string) error {
	opts := cli.GetOptions(cmd)
	log := cli.GetLogger(cmd, "cctv")
	handler := cli.NewErrorHandler(opts.Verbose, paths.LastErrorPath())

	lock, err := pidfile.Acquire(paths.PidFilePath())
	if err != nil {
		if errors.Is(err, errors.ErrCodeAlreadyRunning) {
			log.WithError(err).Info("Another agent is running, exiting")
			return nil
		}
		return fatal(handler, err)
	}
	defer lock.Release()

	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return fatal(handler, err)
	}

	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url, err = state.ResolveURL(state.Open(paths.SettingsPath()))
		if err != nil {
			log.WithError(err).Warn("Could not persist the default URL")
		}
	} else if !state.ValidURL(url) {
		return fatal(handler, errors.New(errors.ErrCodeInvalidInput, "not an absolute url: "+url))
	}

	family, err := process.NewMatcher(cfg.Browser.ProcessPatterns)
	if err != nil {
		return fatal(handler, errors.ConfigInvalid(err.Error()))
	}
	table, err := process.NewProcTable()
	if err != nil {
		return fatal(handler, errors.Wrap(err, errors.ErrCodeInternal, "process table unavailable"))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()
	if cfg.Metrics.Addr != "" {
		go rec.Serve(ctx, cfg.Metrics.Addr, log.WithField("component", "metrics"))
	}

	launcher := surface.NewLauncher(surface.LaunchConfig{
		Binary:         cfg.Browser.Binary,
		Args:           cfg.Browser.Args,
		DebugPort:      cfg.Browser.DebugPort,
		StartupTimeout: cfg.Browser.StartupTimeout.Duration,
	})

	sup := supervisor.New(supervisorConfig(cfg), supervisor.Deps{
		Acquire: func(ctx context.Context, url string) (supervisor.Surface, error) {
			s, err := launcher.Acquire(ctx, url)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Processes: table,
		Family:    family,
		NewDisplay: func() (encoder.Display, error) {
			return encoder.NewScreenDisplay()
		},
		WaitExit: process.WaitExit,
		Metrics:  rec,
		Logger:   log,
	})

	if err := sup.Run(ctx, url); err != nil {
		if ctx.Err() != nil {
			log.WithError(err).Info("Interrupted during acquisition")
			return nil
		}
		return fatal(handler, err)
	}
	return nil
}

func supervisorConfig(cfg *config.Config) supervisor.Config {
	return supervisor.Config{
		Root:     sessionsRoot(cfg),
		Attempts: cfg.Acquire.Attempts,
		Backoff:  cfg.Acquire.Backoff.Duration,
		Capture: scheduler.Config{
			Period: cfg.Capture.Period.Duration,
			Grace:  cfg.Capture.Grace.Duration,
		},
		Booster: booster.Config{
			Interval: cfg.Booster.Interval.Duration,
			Nice:     cfg.Booster.Niceness(),
		},
		DPI:       cfg.Capture.DPI,
		SelfNice:  selfNice,
		CloseWait: closeWait,
	}
}

func sessionsRoot(cfg *config.Config) string {
	if cfg.Capture.Root != "" {
		return cfg.Capture.Root
	}
	return paths.SessionsDir()
}

func fatal(handler *cli.ErrorHandler, err error) error {
	return &cli.ExitError{Code: 1, Err: handler.Handle(err)}
}
