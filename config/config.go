// Package config handles loading and managing application configuration.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Broker   BrokerConfig
	Provider ProviderConfig
	Auth     AuthConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	DSN string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BrokerConfig holds RabbitMQ configuration. An empty URL disables event
// publishing.
type BrokerConfig struct {
	URL string
}

// ProviderConfig holds payment provider configuration.
type ProviderConfig struct {
	AccessToken string
	// ReturnURL is where the provider redirects the browser after checkout.
	ReturnURL string
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// Load reads configuration from the environment (FITSTACK_* variables).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FITSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")
	v.SetDefault("database.dsn", "postgres://localhost:5432/fitstack?sslmode=disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("broker.url", "")
	v.SetDefault("provider.access_token", "")
	v.SetDefault("provider.return_url", "http://localhost:3000/payments/return")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 30*time.Minute)

	return &Config{
		Server: ServerConfig{
			Port:    v.GetString("server.port"),
			GinMode: v.GetString("server.gin_mode"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Broker: BrokerConfig{
			URL: v.GetString("broker.url"),
		},
		Provider: ProviderConfig{
			AccessToken: v.GetString("provider.access_token"),
			ReturnURL:   v.GetString("provider.return_url"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			TokenTTL:  v.GetDuration("auth.token_ttl"),
		},
	}, nil
}
