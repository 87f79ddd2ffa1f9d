package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`

	RedisEnabled bool   `mapstructure:"REDIS_ENABLED"`
	RedisHost    string `mapstructure:"REDIS_HOST"`
	RedisPort    string `mapstructure:"REDIS_PORT"`

	BackendPort string `mapstructure:"BACKEND_PORT"`

	ObjectStore string `mapstructure:"OBJECT_STORE"` // "s3" or "fs"
	S3Bucket    string `mapstructure:"S3_BUCKET"`
	S3Region    string `mapstructure:"S3_REGION"`
	S3Endpoint  string `mapstructure:"S3_ENDPOINT"`
	FSRoot      string `mapstructure:"FS_ROOT"`

	FieldCacheMaxEntries int   `mapstructure:"FIELD_CACHE_MAX_ENTRIES"`
	FieldCacheMaxMB      int64 `mapstructure:"FIELD_CACHE_MAX_MB"`
	NegativeCacheSeconds int   `mapstructure:"NEGATIVE_CACHE_SECONDS"`
	MaxFieldLoads        int   `mapstructure:"MAX_FIELD_LOADS"`

	TileCacheEntries int `mapstructure:"TILE_CACHE_ENTRIES"`

	MaxRenders       int `mapstructure:"MAX_RENDERS"`
	RenderQueueDepth int `mapstructure:"RENDER_QUEUE_DEPTH"`

	RequestTimeoutSeconds int `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	FetchAttempts         int `mapstructure:"FETCH_ATTEMPTS"`
	FetchTimeoutSeconds   int `mapstructure:"FETCH_TIMEOUT_SECONDS"`
	FetchBudgetSeconds    int `mapstructure:"FETCH_BUDGET_SECONDS"`
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB,
	)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (c *Config) NegativeCacheTTL() time.Duration {
	return time.Duration(c.NegativeCacheSeconds) * time.Second
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Explicitly bind environment variables
	for _, key := range []string{
		"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT",
		"REDIS_ENABLED", "REDIS_HOST", "REDIS_PORT",
		"BACKEND_PORT",
		"OBJECT_STORE", "S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "FS_ROOT",
		"FIELD_CACHE_MAX_ENTRIES", "FIELD_CACHE_MAX_MB", "NEGATIVE_CACHE_SECONDS", "MAX_FIELD_LOADS",
		"TILE_CACHE_ENTRIES", "MAX_RENDERS", "RENDER_QUEUE_DEPTH",
		"REQUEST_TIMEOUT_SECONDS", "FETCH_ATTEMPTS", "FETCH_TIMEOUT_SECONDS", "FETCH_BUDGET_SECONDS",
	} {
		viper.BindEnv(key)
	}

	// Defaults
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("BACKEND_PORT", "8080")
	viper.SetDefault("OBJECT_STORE", "s3")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("FS_ROOT", "./data")
	viper.SetDefault("FIELD_CACHE_MAX_ENTRIES", 64)
	viper.SetDefault("FIELD_CACHE_MAX_MB", 2048)
	viper.SetDefault("NEGATIVE_CACHE_SECONDS", 30)
	viper.SetDefault("MAX_FIELD_LOADS", 8)
	viper.SetDefault("TILE_CACHE_ENTRIES", 4096)
	viper.SetDefault("MAX_RENDERS", 16)
	viper.SetDefault("RENDER_QUEUE_DEPTH", 64)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
	viper.SetDefault("FETCH_ATTEMPTS", 3)
	viper.SetDefault("FETCH_TIMEOUT_SECONDS", 15)
	viper.SetDefault("FETCH_BUDGET_SECONDS", 45)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: no .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Failed to unmarshal config: %v", err)
	}

	return cfg
}
