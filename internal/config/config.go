// Package config handles loading and validating the gateway configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for the gateway.
type Config struct {
	Workspace     WorkspaceConfig      `json:"workspace" yaml:"workspace"`
	Exec          ExecConfig           `json:"exec" yaml:"exec"`
	HTTP          *HTTPConfig          `json:"http,omitempty" yaml:"http,omitempty"`                   // nil = HTTP gateway disabled
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = observability disabled
	Log           LogConfig            `json:"log" yaml:"log"`
}

// WorkspaceConfig overrides the default on-disk locations. Paths may be
// absolute, ~-prefixed, or relative to the user home directory.
type WorkspaceConfig struct {
	OrbitRoot   string `json:"orbit_root,omitempty" yaml:"orbit_root,omitempty"`     // Default: Documentos/CerebroProjects. Override: CEREBRO_ORBIT_ROOT.
	MetricsPath string `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty"` // Default: .cerebro/logs/metrics.jsonl. Override: CEREBRO_METRICS_PATH.
}

// ExecConfig configures the process execution gateway.
type ExecConfig struct {
	DefaultTimeoutMs int64 `json:"default_timeout_ms" yaml:"default_timeout_ms"` // Default: 60000.
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled           bool              `json:"enabled" yaml:"enabled"`
	ListenAddr        string            `json:"listen_addr" yaml:"listen_addr"` // Default: "127.0.0.1:4517".
	EnableDocs        bool              `json:"enable_docs" yaml:"enable_docs"`
	APIKeys           map[string]string `json:"api_keys,omitempty" yaml:"api_keys,omitempty"` // API key → client ID. Empty = unauthenticated (local use).
	RequestsPerMinute int               `json:"requests_per_minute" yaml:"requests_per_minute"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry tracing export.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "cerebro-gateway"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `json:"level" yaml:"level"` // "debug", "info", "warn", "error". Default: "info".
}

// DefaultConfigPath returns ~/.cerebro/config.yaml, the conventional
// location the desktop application writes.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".cerebro", "config.yaml")
}

// Load reads a config file (JSON or YAML by extension), applies environment
// overrides, and fills defaults. A missing file is not an error: defaults
// plus environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := unmarshalConfig(path, data, cfg); err != nil {
				return nil, err
			}
		case os.IsNotExist(err):
			// defaults only
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshalConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CEREBRO_ORBIT_ROOT"); v != "" {
		c.Workspace.OrbitRoot = v
	}
	if v := os.Getenv("CEREBRO_METRICS_PATH"); v != "" {
		c.Workspace.MetricsPath = v
	}
	if v := os.Getenv("CEREBRO_HTTP_ADDR"); v != "" {
		if c.HTTP == nil {
			c.HTTP = &HTTPConfig{Enabled: true}
		}
		c.HTTP.ListenAddr = v
	}
	if v := os.Getenv("CEREBRO_API_KEY"); v != "" {
		if c.HTTP == nil {
			c.HTTP = &HTTPConfig{Enabled: true}
		}
		if c.HTTP.APIKeys == nil {
			c.HTTP.APIKeys = make(map[string]string)
		}
		c.HTTP.APIKeys[v] = "local"
	}
	if v := os.Getenv("CEREBRO_EXEC_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			c.Exec.DefaultTimeoutMs = ms
		}
	}
	if v := os.Getenv("CEREBRO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Exec.DefaultTimeoutMs <= 0 {
		c.Exec.DefaultTimeoutMs = 60_000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.HTTP != nil {
		if c.HTTP.ListenAddr == "" {
			c.HTTP.ListenAddr = "127.0.0.1:4517"
		}
	}
	if c.Observability != nil && c.Observability.Metrics != nil && c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Observability != nil && c.Observability.Tracing != nil && c.Observability.Tracing.Enabled {
		t := c.Observability.Tracing
		if t.Endpoint == "" {
			return fmt.Errorf("tracing enabled but no endpoint configured")
		}
		if t.Protocol != "" && t.Protocol != "grpc" && t.Protocol != "http" {
			return fmt.Errorf("invalid tracing protocol %q", t.Protocol)
		}
	}
	return nil
}
