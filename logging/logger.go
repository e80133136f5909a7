package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/cctv/config"
	"github.com/grovetools/cctv/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// Loggers are cached per component.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	if cfg, err := config.LoadFrom(paths.ConfigDir()); err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := Build(component, logCfg, defaultSinks(component, logCfg))
	loggers[component] = entry
	return entry
}

// Build assembles a logger from an explicit config and set of sinks.
// An empty sink list discards output.
func Build(component string, logCfg Config, writers []io.Writer) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("CCTV_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("CCTV_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger.WithField("component", component)
}

func defaultSinks(component string, logCfg Config) []io.Writer {
	var writers []io.Writer

	if !logCfg.File.Disabled {
		logFilePath := paths.LogFilePath(component, time.Now())
		if logCfg.File.Path != "" {
			logFilePath = expandPath(logCfg.File.Path)
		}
		if logFilePath != "" {
			if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err == nil {
				file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err == nil {
					writers = append(writers, file)
				} else if logCfg.File.Path != "" {
					logrus.Warnf("Failed to open log file %s: %v", logFilePath, err)
				}
			}
		}
	}

	stderrMode := "auto"
	if logCfg.Format.StructuredToStderr != "" {
		stderrMode = logCfg.Format.StructuredToStderr
	}

	switch stderrMode {
	case "always":
		writers = append(writers, os.Stderr)
	case "never":
	default:
		// The agent is normally started unattended; an interactive terminal
		// only sees log lines in debug mode.
		isDebug := os.Getenv("CCTV_DEBUG") == "1" || os.Getenv("CCTV_LOG_LEVEL") == "debug"
		isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		if isDebug || !isInteractive {
			writers = append(writers, os.Stderr)
		}
	}

	return writers
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
