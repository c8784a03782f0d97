package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
	"github.com/kailas-cloud/esremap/internal/domain/retry"

	"gopkg.in/yaml.v3"
)

// Config holds the esremap configuration.
type Config struct {
	HTTP      HTTPConfig             `yaml:"http"`
	Engine    EngineConfig           `yaml:"engine"`
	Lock      LockConfig             `yaml:"lock"`
	Auth      AuthConfig             `yaml:"auth"`
	Namespace string                 `yaml:"namespace"`
	Settings  map[string]any         `yaml:"settings"` // merged under every index's own settings
	Indexes   map[string]IndexConfig `yaml:"indexes"`
	Logging   LoggingConfig          `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig selects and connects the storage engine.
type EngineConfig struct {
	Driver           string   `yaml:"driver"` // elasticsearch, memory (default: elasticsearch)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	APIKey           string   `yaml:"api_key"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LockConfig selects the remap lease backend.
type LockConfig struct {
	Driver   string   `yaml:"driver"` // none, redis, file (default: none)
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	TTLSec   int      `yaml:"ttl_sec"`
	Dir      string   `yaml:"dir"`
}

// RetryConfig holds the delete retry policy of one index.
type RetryConfig struct {
	RetryOnRecoverable bool `yaml:"retry_on_recoverable_errors"`
	RetryDelayMS       int  `yaml:"retry_delay_ms"`
	MaxDelayMS         int  `yaml:"max_delay_ms"`
}

// IndexConfig describes one logical index.
type IndexConfig struct {
	DocumentType string         `yaml:"document_type"`
	Strategy     string         `yaml:"strategy"` // alias, single (default: alias)
	Settings     map[string]any `yaml:"settings"`
	Mappings     map[string]any `yaml:"mappings"`
	Retry        RetryConfig    `yaml:"retry"`
	BatchSize    int            `yaml:"batch_size"`
	StrictBulk   bool           `yaml:"strict_bulk"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = "elasticsearch"
	}
	if c.Engine.ReadinessTimeout <= 0 {
		c.Engine.ReadinessTimeout = 10
	}
	if c.Lock.Driver == "" {
		c.Lock.Driver = "none"
	}
	if c.Lock.TTLSec <= 0 {
		c.Lock.TTLSec = 1800
	}
	if c.Lock.Dir == "" {
		c.Lock.Dir = filepath.Join(os.TempDir(), "esremap")
	}
	for name, ix := range c.Indexes {
		if ix.Strategy == "" {
			ix.Strategy = string(domindex.StrategyAlias)
		}
		if ix.BatchSize <= 0 {
			ix.BatchSize = domindex.DefaultBatchSize
		}
		c.Indexes[name] = ix
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Driver {
	case "elasticsearch":
		if len(c.Engine.Addrs) == 0 {
			return fmt.Errorf("engine.addrs is required")
		}
	case "memory":
	default:
		return fmt.Errorf("engine.driver must be \"elasticsearch\" or \"memory\", got %q", c.Engine.Driver)
	}
	switch c.Lock.Driver {
	case "none", "file":
	case "redis":
		if len(c.Lock.Addrs) == 0 {
			return fmt.Errorf("lock.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("lock.driver must be \"none\", \"redis\" or \"file\", got %q", c.Lock.Driver)
	}
	for _, name := range c.IndexNames() {
		if _, err := c.IndexConfig(name); err != nil {
			return fmt.Errorf("indexes.%s: %w", name, err)
		}
	}
	return nil
}

// IndexNames returns the configured logical index names, sorted.
func (c *Config) IndexNames() []string {
	names := make([]string, 0, len(c.Indexes))
	for name := range c.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IndexConfig builds the validated domain configuration of one logical index.
func (c *Config) IndexConfig(name string) (domindex.Config, error) {
	ix, ok := c.Indexes[name]
	if !ok {
		return domindex.Config{}, fmt.Errorf("index %q is not configured", name)
	}
	def := domindex.Definition{Settings: ix.Settings, Mappings: ix.Mappings}.WithSettings(c.Settings)
	cfg := domindex.Config{
		BaseName:     name,
		Namespace:    c.Namespace,
		DocumentType: ix.DocumentType,
		Strategy:     domindex.StrategyKind(ix.Strategy),
		Definition:   def,
		Retry: retry.Policy{
			RetryOnRecoverable: ix.Retry.RetryOnRecoverable,
			Delay:              time.Duration(ix.Retry.RetryDelayMS) * time.Millisecond,
			MaxDelay:           time.Duration(ix.Retry.MaxDelayMS) * time.Millisecond,
		},
		BatchSize:  ix.BatchSize,
		StrictBulk: ix.StrictBulk,
	}
	if err := cfg.Validate(); err != nil {
		return domindex.Config{}, err
	}
	return cfg, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
