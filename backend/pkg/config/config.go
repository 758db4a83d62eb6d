package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"socialblog/backend/pkg/database"
	apperrors "socialblog/backend/pkg/errors"
)

// Graph backends
const (
	GraphBackendNeo4j  = "neo4j"
	GraphBackendMemory = "memory"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string // overrides the env default when set

	// Graph store
	GraphBackend      string
	Neo4jURI          string
	Neo4jUser         string
	Neo4jPassword     string
	Neo4jDatabase     string
	GraphQueryTimeout time.Duration

	// Relational store
	DBDriver          string // postgres, sqlite
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBFilePath        string
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime int // minutes

	// Analytics cache (disabled when RedisAddress is empty)
	RedisAddress      string
	RedisPassword     string
	RedisDB           int
	AnalyticsCacheTTL time.Duration

	// Relationship policy
	AllowSelfFollow bool
	AllowSelfFriend bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		GraphBackend:      getEnv("GRAPH_BACKEND", GraphBackendNeo4j),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:     getEnv("NEO4J_PASSWORD", "password"),
		Neo4jDatabase:     getEnv("NEO4J_DATABASE", "neo4j"),
		GraphQueryTimeout: getEnvDuration("GRAPH_QUERY_TIMEOUT", 5*time.Second),
		DBDriver:          getEnv("DB_DRIVER", "sqlite"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "blog"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		DBFilePath:        getEnv("DB_FILE_PATH", "./data/blog.db"),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 60),
		RedisAddress:      getEnv("REDIS_ADDRESS", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		AnalyticsCacheTTL: getEnvDuration("ANALYTICS_CACHE_TTL", 60*time.Second),
		AllowSelfFollow:   getEnvBool("ALLOW_SELF_FOLLOW", false),
		AllowSelfFriend:   getEnvBool("ALLOW_SELF_FRIEND", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	switch c.GraphBackend {
	case GraphBackendNeo4j:
		if c.Neo4jURI == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_URI")
		}
		if c.Neo4jUser == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_USER")
		}
		if c.Neo4jPassword == "" {
			return apperrors.NewConfigMissingRequired("NEO4J_PASSWORD")
		}
	case GraphBackendMemory:
	default:
		return apperrors.NewConfigValidationFailed("GRAPH_BACKEND", fmt.Sprintf("unsupported backend %q", c.GraphBackend))
	}

	switch c.DBDriver {
	case "postgres":
		if c.DBHost == "" {
			return apperrors.NewConfigMissingRequired("DB_HOST")
		}
		if c.DBName == "" {
			return apperrors.NewConfigMissingRequired("DB_NAME")
		}
	case "sqlite":
		if c.DBFilePath == "" {
			return apperrors.NewConfigMissingRequired("DB_FILE_PATH")
		}
	default:
		return apperrors.NewConfigValidationFailed("DB_DRIVER", fmt.Sprintf("unsupported driver %q", c.DBDriver))
	}

	if c.GraphQueryTimeout <= 0 {
		return apperrors.NewConfigValidationFailed("GRAPH_QUERY_TIMEOUT", "must be positive")
	}
	return nil
}

// Database returns the relational connection settings
func (c *Config) Database() *database.Config {
	return &database.Config{
		Driver:          c.DBDriver,
		Host:            c.DBHost,
		Port:            c.DBPort,
		User:            c.DBUser,
		Password:        c.DBPassword,
		DBName:          c.DBName,
		SSLMode:         c.DBSSLMode,
		FilePath:        c.DBFilePath,
		MaxIdleConns:    c.DBMaxIdleConns,
		MaxOpenConns:    c.DBMaxOpenConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		Verbose:         c.IsDevelopment(),
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
