package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/cctv/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

var configNames = []string{
	"cctv.yml",
	"cctv.yaml",
	"cctv.toml",
}

// Load reads and parses a configuration file. The format follows the extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	var cfg *Config
	if strings.HasSuffix(path, ".toml") {
		cfg, err = LoadFromTOML(data)
	} else {
		cfg, err = LoadFromBytes(data)
	}
	if err != nil {
		if cctvErr, ok := err.(*errors.CctvError); ok {
			return nil, cctvErr.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadFrom loads the first config file found in dir, or the defaults when there is none.
func LoadFrom(dir string) (*Config, error) {
	return LoadFromWithLogger(dir, logrus.New())
}

// LoadFromWithLogger is LoadFrom with debug output about which file was used.
func LoadFromWithLogger(dir string, logger *logrus.Logger) (*Config, error) {
	path, err := FindConfigFile(dir)
	if err != nil {
		logger.WithField("dir", dir).Debug("No configuration file, using defaults")
		return Default(), nil
	}

	logger.WithField("path", path).Debug("Loading configuration")
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Effective configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses YAML configuration.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}

	return finish(&cfg)
}

// LoadFromTOML parses TOML configuration. Unknown top-level tables become extensions.
func LoadFromTOML(data []byte) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := toml.Unmarshal(expanded, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
	}

	var raw map[string]interface{}
	if err := toml.Unmarshal(expanded, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
	}
	for key, value := range raw {
		if knownSections[key] {
			continue
		}
		if cfg.Extensions == nil {
			cfg.Extensions = make(map[string]interface{})
		}
		cfg.Extensions[key] = value
	}

	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "validation failed")
	}
	return cfg, nil
}

// FindConfigFile returns the first config file present in dir.
func FindConfigFile(dir string) (string, error) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", errors.ConfigNotFound(filepath.Join(dir, configNames[0]))
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]

		// Support default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		value := os.Getenv(parts[0])

		if value == "" && len(parts) > 1 {
			return parts[1]
		}

		return value
	})
}
