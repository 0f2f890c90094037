// Package config loads the engine configuration from environment-named YAML
// files with ${VAR} expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the finrag engine configuration.
type Config struct {
	HTTP        HTTPConfig         `yaml:"http"`
	Index       IndexConfig        `yaml:"index"`
	Collections []CollectionConfig `yaml:"collections"`
	Embedding   EmbeddingConfig    `yaml:"embedding"`
	Retrieval   RetrievalConfig    `yaml:"retrieval"`
	Cache       CacheConfig        `yaml:"cache"`
	Auth        AuthConfig         `yaml:"auth"`
	Logging     LoggingConfig      `yaml:"logging"`
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

// IndexConfig holds the vector index backend settings.
type IndexConfig struct {
	Driver           string   `yaml:"driver"` // redis, bolt, memory (default: redis)
	Addrs            []string `yaml:"addrs"`  // redis driver
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // bolt driver
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CollectionConfig describes one searchable collection.
type CollectionConfig struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"` // fusion multiplier, default 1.0
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // label for metrics, e.g. "openai"
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	CacheEnabled     bool   `yaml:"cache_enabled"`
}

// RetrievalConfig tunes scoring and scheduling.
type RetrievalConfig struct {
	SimilarityWeight       float64 `yaml:"similarity_weight"`
	LexicalWeight          float64 `yaml:"lexical_weight"`
	PerCollectionTimeoutMS int     `yaml:"per_collection_timeout_ms"`
	GlobalTimeoutMS        int     `yaml:"global_timeout_ms"`
	MaxConcurrent          int     `yaml:"max_concurrent"`
	RetryBackoffMS         int     `yaml:"retry_backoff_ms"`
	StrictUnknownFields    bool    `yaml:"strict_unknown_fields"`
}

// CacheConfig holds query-result cache settings.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
	TTLSec     int  `yaml:"ttl_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.Index.Driver == "" {
		c.Index.Driver = "redis"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "finrag:"
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	for i := range c.Collections {
		if c.Collections[i].Weight <= 0 {
			c.Collections[i].Weight = 1.0
		}
	}
	if c.Retrieval.SimilarityWeight <= 0 && c.Retrieval.LexicalWeight <= 0 {
		c.Retrieval.SimilarityWeight = 0.7
		c.Retrieval.LexicalWeight = 0.3
	}
	if c.Retrieval.PerCollectionTimeoutMS <= 0 {
		c.Retrieval.PerCollectionTimeoutMS = 2000
	}
	if c.Retrieval.GlobalTimeoutMS <= 0 {
		c.Retrieval.GlobalTimeoutMS = 10000
	}
	if c.Retrieval.MaxConcurrent <= 0 {
		c.Retrieval.MaxConcurrent = 4
	}
	if c.Retrieval.RetryBackoffMS <= 0 {
		c.Retrieval.RetryBackoffMS = 100
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 512
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Driver {
	case "redis":
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for the redis driver")
		}
	case "bolt":
		if c.Index.Path == "" {
			return fmt.Errorf("index.path is required for the bolt driver")
		}
	case "memory":
		// nothing to validate
	default:
		return fmt.Errorf("index.driver must be redis, bolt, or memory, got %q", c.Index.Driver)
	}
	if len(c.Collections) == 0 {
		return fmt.Errorf("at least one collection is required")
	}
	seen := make(map[string]struct{}, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("collection name is required")
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("duplicate collection %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	return nil
}

// CollectionWeights returns the fusion weight map keyed by collection name.
func (c *Config) CollectionWeights() map[string]float64 {
	weights := make(map[string]float64, len(c.Collections))
	for _, col := range c.Collections {
		weights[col.Name] = col.Weight
	}
	return weights
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
