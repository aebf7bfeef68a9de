// Package config provides configuration loading for lemon-metrics.
// It supports loading from properties/INI files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds all configuration options for the lemon-metrics server.
type Config struct {
	Port         string
	DataDir      string
	DebugEnabled bool

	// Scrape target - the endpoint whose exposition text we parse
	TargetURL     string
	ScrapeTimeout time.Duration

	// Auto-refresh job - re-fetches and re-parses the target periodically
	RefreshEnabled  bool
	RefreshInterval time.Duration
	RefreshJitter   time.Duration
	RefreshTimeout  time.Duration

	// OTEL self-instrumentation push exporter
	OTELEnabled      bool
	OTELEndpoint     string
	OTELProtocol     string // "grpc" or "http"
	OTELInsecure     bool
	OTELPushInterval time.Duration
}

// defaultConfig returns a Config with hardcoded defaults.
func defaultConfig() *Config {
	return &Config{
		Port:         "8440",
		DataDir:      "/var/lib/lemon-metrics",
		DebugEnabled: false,

		TargetURL:     "",
		ScrapeTimeout: 30 * time.Second,

		// Auto-refresh matches the dashboard's 30-second poll
		RefreshEnabled:  true,
		RefreshInterval: 30 * time.Second,
		RefreshJitter:   0,
		RefreshTimeout:  time.Minute,

		OTELEnabled:      false,
		OTELEndpoint:     "localhost:4317",
		OTELProtocol:     "grpc",
		OTELInsecure:     true,
		OTELPushInterval: time.Minute,
	}
}

// isTruthy interprets the boolean spellings accepted in config values.
func isTruthy(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes"
}

// LoadConfig loads configuration from the specified file path.
// Environment variables override file values.
// Precedence: environment variables > config file > defaults
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	// Try to load config file
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			iniFile, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}

			section := iniFile.Section("")

			if section.HasKey("port") {
				cfg.Port = section.Key("port").String()
			}
			if section.HasKey("data_dir") {
				cfg.DataDir = section.Key("data_dir").String()
			}
			if section.HasKey("debug_enabled") {
				cfg.DebugEnabled = isTruthy(section.Key("debug_enabled").String())
			}

			if section.HasKey("target_url") {
				cfg.TargetURL = section.Key("target_url").String()
			}
			if section.HasKey("scrape_timeout") {
				if duration, err := time.ParseDuration(section.Key("scrape_timeout").String()); err == nil {
					cfg.ScrapeTimeout = duration
				}
			}

			if section.HasKey("refresh_enabled") {
				cfg.RefreshEnabled = isTruthy(section.Key("refresh_enabled").String())
			}
			if section.HasKey("refresh_interval") {
				if duration, err := time.ParseDuration(section.Key("refresh_interval").String()); err == nil {
					cfg.RefreshInterval = duration
				}
			}
			if section.HasKey("refresh_jitter") {
				if duration, err := time.ParseDuration(section.Key("refresh_jitter").String()); err == nil {
					cfg.RefreshJitter = duration
				}
			}
			if section.HasKey("refresh_timeout") {
				if duration, err := time.ParseDuration(section.Key("refresh_timeout").String()); err == nil {
					cfg.RefreshTimeout = duration
				}
			}

			if section.HasKey("otel_enabled") {
				cfg.OTELEnabled = isTruthy(section.Key("otel_enabled").String())
			}
			if section.HasKey("otel_endpoint") {
				cfg.OTELEndpoint = section.Key("otel_endpoint").String()
			}
			if section.HasKey("otel_protocol") {
				cfg.OTELProtocol = strings.ToLower(section.Key("otel_protocol").String())
			}
			if section.HasKey("otel_insecure") {
				cfg.OTELInsecure = isTruthy(section.Key("otel_insecure").String())
			}
			if section.HasKey("otel_push_interval") {
				if duration, err := time.ParseDuration(section.Key("otel_push_interval").String()); err == nil {
					cfg.OTELPushInterval = duration
				}
			}
		} else if !os.IsNotExist(err) {
			// File exists but can't be read
			return nil, fmt.Errorf("cannot access config file %s: %w", path, err)
		}
		// If file doesn't exist, just use defaults (no error)
	}

	// Override with environment variables
	if portEnv := os.Getenv("PORT"); portEnv != "" {
		cfg.Port = portEnv
	}
	if dataDirEnv := os.Getenv("DATA_DIR"); dataDirEnv != "" {
		cfg.DataDir = dataDirEnv
	}
	if debugEnv := os.Getenv("DEBUG_ENABLED"); debugEnv != "" {
		cfg.DebugEnabled = isTruthy(debugEnv)
	}

	if targetEnv := os.Getenv("TARGET_URL"); targetEnv != "" {
		cfg.TargetURL = targetEnv
	}
	if timeoutEnv := os.Getenv("SCRAPE_TIMEOUT"); timeoutEnv != "" {
		if duration, err := time.ParseDuration(timeoutEnv); err == nil {
			cfg.ScrapeTimeout = duration
		}
	}

	if enabledEnv := os.Getenv("REFRESH_ENABLED"); enabledEnv != "" {
		cfg.RefreshEnabled = isTruthy(enabledEnv)
	}
	if intervalEnv := os.Getenv("REFRESH_INTERVAL"); intervalEnv != "" {
		if duration, err := time.ParseDuration(intervalEnv); err == nil {
			cfg.RefreshInterval = duration
		}
	}
	if jitterEnv := os.Getenv("REFRESH_JITTER"); jitterEnv != "" {
		if duration, err := time.ParseDuration(jitterEnv); err == nil {
			cfg.RefreshJitter = duration
		}
	}
	if timeoutEnv := os.Getenv("REFRESH_TIMEOUT"); timeoutEnv != "" {
		if duration, err := time.ParseDuration(timeoutEnv); err == nil {
			cfg.RefreshTimeout = duration
		}
	}

	if enabledEnv := os.Getenv("OTEL_ENABLED"); enabledEnv != "" {
		cfg.OTELEnabled = isTruthy(enabledEnv)
	}
	if endpointEnv := os.Getenv("OTEL_ENDPOINT"); endpointEnv != "" {
		cfg.OTELEndpoint = endpointEnv
	}
	if protocolEnv := os.Getenv("OTEL_PROTOCOL"); protocolEnv != "" {
		cfg.OTELProtocol = strings.ToLower(protocolEnv)
	}
	if insecureEnv := os.Getenv("OTEL_INSECURE"); insecureEnv != "" {
		cfg.OTELInsecure = isTruthy(insecureEnv)
	}
	if pushEnv := os.Getenv("OTEL_PUSH_INTERVAL"); pushEnv != "" {
		if duration, err := time.ParseDuration(pushEnv); err == nil {
			cfg.OTELPushInterval = duration
		}
	}

	return cfg, nil
}

// LoadConfigWithDefaults tries to load configuration from default locations.
// It checks locations in order:
// 1. /etc/lemon-metrics/server.conf
// 2. ./server.conf (current directory)
// 3. Hardcoded defaults
//
// Environment variables override file values.
func LoadConfigWithDefaults() (*Config, error) {
	// Check default locations in order
	defaultPaths := []string{
		"/etc/lemon-metrics/server.conf",
		"./server.conf",
	}

	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			cfg, err := LoadConfig(path)
			if err != nil {
				// File exists but failed to parse - return error
				return nil, err
			}
			return cfg, nil
		}
	}

	// No config file found, use defaults with env var overrides
	return LoadConfig("")
}
