package main

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Global holds process-wide settings, mirroring dynproxy's config.go Global
// block field for field.
type Global struct {
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

// ListenerConfig describes one TCP listener readyecho serves. An OCSP
// stapler is built for the listener when OCSPStapleURL is set. TLSCertPath
// and TLSKeyPath are parsed but not read: readyecho serves plain TCP.
type ListenerConfig struct {
	Name           string `yaml:"name" toml:"name"`
	Address        string `yaml:"address" toml:"address"`
	Backlog        int    `yaml:"backlog" toml:"backlog"`
	TLSCertPath    string `yaml:"tls_cert_path" toml:"tls_cert_path"`
	TLSKeyPath     string `yaml:"tls_key_path" toml:"tls_key_path"`
	OCSPStapleURL  string `yaml:"ocsp_staple_url" toml:"ocsp_staple_url"`
	OCSPCacheSize  int64  `yaml:"ocsp_cache_size" toml:"ocsp_cache_size"`
	ReadBufferSize int    `yaml:"read_buffer_size" toml:"read_buffer_size"`
}

// Config is readyecho's top-level configuration, loaded from YAML or TOML
// exactly as dynproxy's config.go dispatches on file extension.
type Config struct {
	Global    Global           `yaml:"global" toml:"global"`
	Listeners []ListenerConfig `yaml:"listeners" toml:"listeners"`
}

// LoadConfig reads and parses filePath, choosing a decoder from its
// extension. Unlike the teacher's LoadConfig, failures are returned rather
// than fed to log.Fatalf, so main can log through zerolog with the rest of
// the service instead of stdlib's log package.
func LoadConfig(filePath string) (*Config, error) {
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "readyecho: read config file")
	}
	cfg := &Config{}
	switch {
	case strings.HasSuffix(filePath, ".toml"):
		err = toml.Unmarshal(file, cfg)
	case strings.HasSuffix(filePath, ".yaml"), strings.HasSuffix(filePath, ".yml"):
		err = yaml.Unmarshal(file, cfg)
	default:
		return nil, errors.Errorf("readyecho: unrecognized config extension: %s", filePath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "readyecho: parse config file")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if len(cfg.Listeners) == 0 {
		return errors.New("readyecho: config must declare at least one listener")
	}
	for i := range cfg.Listeners {
		if cfg.Listeners[i].Address == "" {
			return errors.Errorf("readyecho: listener %d missing address", i)
		}
		if cfg.Listeners[i].Backlog <= 0 {
			cfg.Listeners[i].Backlog = 128
		}
		if cfg.Listeners[i].ReadBufferSize <= 0 {
			cfg.Listeners[i].ReadBufferSize = 4096
		}
	}
	return nil
}
