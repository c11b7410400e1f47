package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of configuration environment variables.
// MSTATE_FOLDERS_SAVESTATES sets folders.savestates.
const EnvPrefix = "MSTATE_"

// LoadConfig loads the configuration: defaults, then the YAML file at
// path, then MSTATE_ environment variables. A missing file is not an
// error. Fields absent from every source keep their defaults.
// An empty path means the default config location.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	k := koanf.New(".")

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Decoding onto the defaults leaves absent keys untouched
	config := DefaultConfig()
	if err := k.Unmarshal("", config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}

// SaveConfig saves the configuration to path atomically
func SaveConfig(path string, config *Config) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	return AtomicWriteYAML(path, config)
}

// CreateConfigIfMissing writes the default config to path if no file
// exists there
func CreateConfigIfMissing(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return SaveConfig(path, DefaultConfig())
	}
	return nil
}
