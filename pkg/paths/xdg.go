// Package paths provides XDG-compliant path resolution for cctv.
//
// Resolution order:
// 1. CCTV_HOME (portable root) → $CCTV_HOME/{config,data,state}
// 2. XDG env vars → $XDG_*_HOME/cctv
// 3. Platform defaults → ~/.config/cctv, ~/.local/share/cctv, etc.
package paths

import (
	"os"
	"path/filepath"
	"time"
)

const appName = "cctv"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("CCTV_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getDataHome returns the base data home directory.
func getDataHome() string {
	if home := os.Getenv("CCTV_HOME"); home != "" {
		return filepath.Join(home, "data")
	}
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return xdgDataHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "share")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("CCTV_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

func join(base string, elem ...string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(append([]string{base, appName}, elem...)...)
}

// ConfigDir returns the configuration directory (cctv.yml, settings.yml).
func ConfigDir() string {
	return join(getConfigHome())
}

// DataDir returns the data directory. Session frames live below it.
func DataDir() string {
	return join(getDataHome())
}

// StateDir returns the runtime state directory (pid file, logs).
func StateDir() string {
	return join(getStateHome())
}

// SessionsDir returns the default capture root holding one directory per session.
func SessionsDir() string {
	return join(getDataHome(), "sessions")
}

// LogDir returns the directory for agent log files.
func LogDir() string {
	return join(getStateHome(), "logs")
}

// LogFilePath returns the log file for the given component and day.
func LogFilePath(component string, day time.Time) string {
	dir := LogDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, component+"-"+day.Format("2006-01-02")+".log")
}

// SettingsPath returns the persisted key-value settings file.
func SettingsPath() string {
	return join(getConfigHome(), "settings.yml")
}

// PidFilePath returns the path of the single-instance lock file.
func PidFilePath() string {
	return join(getStateHome(), "cctv.pid")
}

// LastErrorPath returns the file that receives the most recent fatal report.
func LastErrorPath() string {
	return join(getStateHome(), "last-error.txt")
}

// EnsureDirs creates all cctv directories if they don't exist.
func EnsureDirs() error {
	dirs := []string{
		ConfigDir(),
		DataDir(),
		StateDir(),
		SessionsDir(),
		LogDir(),
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
