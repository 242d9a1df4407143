package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Consul   ConsulConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Database DatabaseConfig
}

type AppConfig struct {
	ServiceName string
	ServiceID   string
	Port        int
	Environment string
	LogFilePath string
}

type UpstreamConfig struct {
	BaseURL              string
	BasePath             string
	ServiceName          string // resolved through Consul when set
	Timeout              time.Duration
	MaxConcurrentDetails int
}

type ConsulConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Host string
	Port int
	TTL  time.Duration
}

type RabbitMQConfig struct {
	URL string
}

type DatabaseConfig struct {
	URL string
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c ConsulConfig) Enabled() bool   { return c.Host != "" }
func (c RedisConfig) Enabled() bool    { return c.Host != "" }
func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("SERVICE_NAME", "catalog-service"),
			ServiceID:   getEnv("SERVICE_ID", "catalog-service-1"),
			Port:        getEnvAsInt("APP_PORT", 8080),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", ""),
		},
		Upstream: UpstreamConfig{
			BaseURL:              getEnv("CATALOG_API_BASE_URL", "http://8.147.132.134:8186/api/v1"),
			BasePath:             getEnv("CATALOG_API_BASE_PATH", "/api/v1"),
			ServiceName:          getEnv("CATALOG_UPSTREAM_SERVICE", ""),
			Timeout:              time.Duration(getEnvAsInt("CATALOG_API_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxConcurrentDetails: getEnvAsInt("MAX_CONCURRENT_DETAILS", 4),
		},
		Consul: ConsulConfig{
			Host: getEnv("CONSUL_HOST", ""),
			Port: getEnvAsInt("CONSUL_PORT", 8500),
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", ""),
			Port: getEnvAsInt("REDIS_PORT", 6379),
			TTL:  time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
