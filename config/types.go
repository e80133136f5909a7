package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Duration wraps time.Duration so it can be written as "2s" in both YAML and TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// BrowserConfig describes the controlled surface and how to reach its automation endpoint.
type BrowserConfig struct {
	// Binary is the browser executable, resolved through PATH when relative.
	Binary string `yaml:"binary" toml:"binary"`
	// Args are appended after the flags the agent always passes.
	Args []string `yaml:"args,omitempty" toml:"args,omitempty"`
	// DebugPort is the DevTools port the browser is told to listen on.
	DebugPort int `yaml:"debug_port" toml:"debug_port"`
	// StartupTimeout bounds how long the DevTools endpoint may take to appear.
	StartupTimeout Duration `yaml:"startup_timeout" toml:"startup_timeout"`
	// ProcessPatterns are case-insensitive globs naming the surface's process family.
	ProcessPatterns []string `yaml:"process_patterns" toml:"process_patterns"`
}

// CaptureConfig controls frame production.
type CaptureConfig struct {
	Period Duration `yaml:"period" toml:"period"`
	Grace  Duration `yaml:"grace" toml:"grace"`
	// DPI overrides the display density; 0 asks the surface.
	DPI float64 `yaml:"dpi" toml:"dpi"`
	// Root is the directory holding session directories and archives.
	Root string `yaml:"root" toml:"root"`
}

// BoosterConfig controls the background priority booster.
type BoosterConfig struct {
	Interval Duration `yaml:"interval" toml:"interval"`
	// Nice is applied to the surface's processes. Unset means DefaultBoostNice;
	// 0 is a valid setting.
	Nice *int `yaml:"nice" toml:"nice"`
}

// DefaultBoostNice is the booster niceness when none is configured.
const DefaultBoostNice = -10

// MinCapturePeriod is the shortest capture period. Frame names have second
// resolution, so a shorter period would overwrite frames.
const MinCapturePeriod = time.Second

// Niceness returns the configured niceness or DefaultBoostNice.
func (b BoosterConfig) Niceness() int {
	if b.Nice == nil {
		return DefaultBoostNice
	}
	return *b.Nice
}

// AcquireConfig bounds surface acquisition.
type AcquireConfig struct {
	Attempts int      `yaml:"attempts" toml:"attempts"`
	Backoff  Duration `yaml:"backoff" toml:"backoff"`
}

// MetricsConfig enables the optional Prometheus listener.
type MetricsConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Config is the agent configuration loaded from cctv.yml or cctv.toml.
type Config struct {
	Browser BrowserConfig `yaml:"browser" toml:"browser"`
	Capture CaptureConfig `yaml:"capture" toml:"capture"`
	Booster BoosterConfig `yaml:"booster" toml:"booster"`
	Acquire AcquireConfig `yaml:"acquire" toml:"acquire"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`

	// Extensions holds any top-level sections not listed above (e.g. "logging").
	Extensions map[string]interface{} `yaml:",inline" toml:"-"`
}

var knownSections = map[string]bool{
	"browser": true,
	"capture": true,
	"booster": true,
	"acquire": true,
	"metrics": true,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills zero values with their defaults.
func (c *Config) SetDefaults() {
	if c.Browser.Binary == "" {
		c.Browser.Binary = "chromium"
	}
	if c.Browser.DebugPort == 0 {
		c.Browser.DebugPort = 9222
	}
	if c.Browser.StartupTimeout.Duration == 0 {
		c.Browser.StartupTimeout.Duration = 10 * time.Second
	}
	if len(c.Browser.ProcessPatterns) == 0 {
		c.Browser.ProcessPatterns = []string{"chrome", "chromium*", "webact*"}
	}
	if c.Capture.Period.Duration == 0 {
		c.Capture.Period.Duration = 2 * time.Second
	}
	if c.Capture.Grace.Duration == 0 {
		c.Capture.Grace.Duration = time.Second
	}
	if c.Booster.Interval.Duration == 0 {
		c.Booster.Interval.Duration = 10 * time.Second
	}
	if c.Booster.Nice == nil {
		nice := DefaultBoostNice
		c.Booster.Nice = &nice
	}
	if c.Acquire.Attempts == 0 {
		c.Acquire.Attempts = 3
	}
	if c.Acquire.Backoff.Duration == 0 {
		c.Acquire.Backoff.Duration = time.Second
	}
}

// Validate checks the configuration for values the agent cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Browser.DebugPort < 1 || c.Browser.DebugPort > 65535:
		return fmt.Errorf("browser.debug_port %d out of range", c.Browser.DebugPort)
	case c.Capture.Period.Duration < MinCapturePeriod:
		return fmt.Errorf("capture.period %s shorter than %s", c.Capture.Period.Duration, MinCapturePeriod)
	case c.Capture.Grace.Duration < 0:
		return fmt.Errorf("capture.grace must not be negative")
	case c.Capture.DPI < 0:
		return fmt.Errorf("capture.dpi must not be negative")
	case c.Booster.Interval.Duration < 0:
		return fmt.Errorf("booster.interval must be positive")
	case c.Booster.Niceness() < -20 || c.Booster.Niceness() > 19:
		return fmt.Errorf("booster.nice %d outside [-20, 19]", c.Booster.Niceness())
	case c.Acquire.Attempts < 1:
		return fmt.Errorf("acquire.attempts must be at least 1")
	case c.Acquire.Backoff.Duration < 0:
		return fmt.Errorf("acquire.backoff must not be negative")
	}
	return nil
}

// UnmarshalExtension decodes an extension section of the loaded config into
// target, which must be a pointer. A missing section leaves target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
