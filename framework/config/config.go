package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by LoadFile for unknown file extensions.
var ErrUnsupportedFormat = errors.New("config: unsupported config file format")

// Config is the central typed configuration struct.
type Config struct {
	Container ContainerConfig `yaml:"container" toml:"container"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
}

// ContainerConfig toggles container behaviour.
type ContainerConfig struct {
	BuildSingletonsRequired  bool `yaml:"build_singletons_required" toml:"build_singletons_required"`
	DisableDefaultStrategies bool `yaml:"disable_default_strategies" toml:"disable_default_strategies"`
	DisableDefaultTokenNames bool `yaml:"disable_default_token_names" toml:"disable_default_token_names"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, pretty, console
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
}

// ServerConfig is where the graph server listens.
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`

	// MetricsPath is empty when metrics are not exposed.
	MetricsPath string `yaml:"metrics_path" toml:"metrics_path"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Metrics returns the metrics path, if exposed.
func (s ServerConfig) Metrics() mo.Option[string] {
	if s.MetricsPath == "" {
		return mo.None[string]()
	}
	return mo.Some(s.MetricsPath)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console", Output: "stdout"},
		Server:  ServerConfig{Host: "127.0.0.1", Port: 4321, MetricsPath: "/metrics"},
	}
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	d := Default()
	return &Config{
		Container: ContainerConfig{
			BuildSingletonsRequired:  envBool("DIPEND_BUILD_SINGLETONS_REQUIRED", false),
			DisableDefaultStrategies: envBool("DIPEND_DISABLE_DEFAULT_STRATEGIES", false),
			DisableDefaultTokenNames: envBool("DIPEND_DISABLE_DEFAULT_TOKEN_NAMES", false),
		},
		Logging: LoggingConfig{
			Level:  env("LOG_LEVEL", d.Logging.Level),
			Format: env("LOG_FORMAT", d.Logging.Format),
			Output: env("LOG_OUTPUT", d.Logging.Output),
		},
		Server: ServerConfig{
			Host:        env("SERVER_HOST", d.Server.Host),
			Port:        GetInt("SERVER_PORT", d.Server.Port),
			MetricsPath: env("SERVER_METRICS_PATH", d.Server.MetricsPath),
		},
	}
}

// LoadFile reads a YAML or TOML file on top of the defaults. Environment
// variables in the format ${VAR_NAME} are expanded before parsing.
func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	expanded := []byte(os.ExpandEnv(string(content)))

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(expanded, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return cfg, nil
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Lookup returns a raw env value when set.
func Lookup(key string) mo.Option[string] {
	if v := os.Getenv(key); v != "" {
		return mo.Some(v)
	}
	return mo.None[string]()
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	return Lookup(key).OrElse(fallback)
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
