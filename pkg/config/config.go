// Package config loads application configuration from file, environment
// variables, and flag bindings via viper.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Store configuration (graph store)
	Store StoreConfig `mapstructure:"store"`

	// Vector configuration (vector index)
	Vector VectorConfig `mapstructure:"vector"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Query configuration (hybrid search weights)
	Query QueryConfig `mapstructure:"query"`

	// Reconciler configuration (index-pending repair)
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// StoreConfig holds graph store configuration
type StoreConfig struct {
	Driver   string `mapstructure:"driver"` // badger, neo4j
	Path     string `mapstructure:"path"`   // badger data directory
	InMemory bool   `mapstructure:"in_memory"`
	URI      string `mapstructure:"uri"` // neo4j bolt URI
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// VectorConfig holds vector index configuration
type VectorConfig struct {
	Driver     string `mapstructure:"driver"` // memory, weaviate
	Host       string `mapstructure:"host"`
	Scheme     string `mapstructure:"scheme"`
	APIKey     string `mapstructure:"api_key"`
	Class      string `mapstructure:"class"`
	Dimensions int    `mapstructure:"dimensions"`
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // openai, hash
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Timeout  int    `mapstructure:"timeout"` // in seconds
}

// QueryConfig holds hybrid query weights
type QueryConfig struct {
	ConfidenceWeight          float64 `mapstructure:"confidence_weight"`
	OverfetchFactor           int     `mapstructure:"overfetch_factor"`
	MinScore                  float64 `mapstructure:"min_score"`
	IncludeSuperseded         bool    `mapstructure:"include_superseded"`
	IncludeNeedsClarification bool    `mapstructure:"include_needs_clarification"`
}

// ReconcilerConfig holds the index-pending repair loop configuration
type ReconcilerConfig struct {
	Interval      int `mapstructure:"interval"` // in seconds
	RetryAttempts int `mapstructure:"retry_attempts"`
	RetryBackoff  int `mapstructure:"retry_backoff"` // in milliseconds
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Store defaults
	home, err := os.UserHomeDir()
	dataDir := "./mnemos_data"
	if err == nil {
		dataDir = fmt.Sprintf("%s/.mnemos/data", home)
	}
	viper.SetDefault("store.driver", "badger")
	viper.SetDefault("store.path", dataDir)
	viper.SetDefault("store.in_memory", false)
	viper.SetDefault("store.uri", "bolt://localhost:7687")
	viper.SetDefault("store.username", "neo4j")
	viper.SetDefault("store.database", "neo4j")

	// Vector defaults
	viper.SetDefault("vector.driver", "memory")
	viper.SetDefault("vector.host", "localhost:8081")
	viper.SetDefault("vector.scheme", "http")
	viper.SetDefault("vector.class", "MnemosNode")
	viper.SetDefault("vector.dimensions", 1536)

	// Embedding defaults
	viper.SetDefault("embedding.provider", "openai")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.timeout", 15)

	// Query defaults
	viper.SetDefault("query.confidence_weight", 0.5)
	viper.SetDefault("query.overfetch_factor", 4)
	viper.SetDefault("query.min_score", 0.0)
	viper.SetDefault("query.include_superseded", false)
	viper.SetDefault("query.include_needs_clarification", true)

	// Reconciler defaults
	viper.SetDefault("reconciler.interval", 30)
	viper.SetDefault("reconciler.retry_attempts", 3)
	viper.SetDefault("reconciler.retry_backoff", 100)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	// Telemetry defaults
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", fmt.Sprintf("%s/.mnemos/telemetry", home))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.Embedding.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.Embedding.BaseURL = baseURL
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Store.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Store.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Store.Password = pass
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		config.Store.Driver = driver
	}
	if path := os.Getenv("STORE_PATH"); path != "" {
		config.Store.Path = path
	}

	if host := os.Getenv("WEAVIATE_HOST"); host != "" {
		config.Vector.Host = host
	}
	if apiKey := os.Getenv("WEAVIATE_API_KEY"); apiKey != "" {
		config.Vector.APIKey = apiKey
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
