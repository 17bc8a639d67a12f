package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port         string `yaml:"port" env:"SERVER_PORT"`
		Mode         string `yaml:"mode" env:"SERVER_MODE"`
		ReadTimeout  string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		URL             string `yaml:"url" env:"DATABASE_URL"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Firebase struct {
		ProjectID string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
		CertsURL  string `yaml:"certs_url" env:"FIREBASE_CERTS_URL"`
		Timeout   string `yaml:"timeout" env:"FIREBASE_TIMEOUT"`
	} `yaml:"firebase"`

	Stripe struct {
		SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
		WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
		Currency      string `yaml:"currency" env:"STRIPE_CURRENCY"`
		ProductName   string `yaml:"product_name" env:"STRIPE_PRODUCT_NAME"`
		FrontendURL   string `yaml:"frontend_url" env:"FRONTEND_URL"`
		Timeout       string `yaml:"timeout" env:"STRIPE_TIMEOUT"`
	} `yaml:"stripe"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	} `yaml:"cors"`

	Redis struct {
		Addr        string `yaml:"addr" env:"REDIS_ADDR"`
		Password    string `yaml:"password" env:"REDIS_PASSWORD"`
		DB          int    `yaml:"db" env:"REDIS_DB"`
		CheckoutTTL string `yaml:"checkout_ttl" env:"REDIS_CHECKOUT_TTL"`
		EventTTL    string `yaml:"event_ttl" env:"REDIS_EVENT_TTL"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS"`
		Topic          string   `yaml:"topic" env:"KAFKA_TOPIC"`
		PublishTimeout string   `yaml:"publish_timeout" env:"KAFKA_PUBLISH_TIMEOUT"`
	} `yaml:"kafka"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
		Burst             int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Seed struct {
		AdminEmail string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminName  string `yaml:"admin_name" env:"SEED_ADMIN_NAME"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file, a .env file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "3000"
	config.Server.Mode = "development"
	config.Server.ReadTimeout = "10s"
	config.Server.WriteTimeout = "15s"

	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "scholarstream"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 2
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Firebase.CertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	config.Firebase.Timeout = "5s"

	config.Stripe.Currency = "usd"
	config.Stripe.ProductName = "Scholarship Application Fee"
	config.Stripe.FrontendURL = "http://localhost:5173"
	config.Stripe.Timeout = "10s"

	config.CORS.AllowedOrigins = []string{"http://localhost:5173"}

	config.Redis.CheckoutTTL = "30m"
	config.Redis.EventTTL = "72h"

	config.Kafka.Topic = "scholarstream.applications"
	config.Kafka.PublishTimeout = "2s"

	config.RateLimit.RequestsPerSecond = 20
	config.RateLimit.Burst = 40

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres":
		if config.Database.URL == "" && config.Database.Host == "" {
			return fmt.Errorf("database url or host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database conn_max_lifetime: %w", err)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Firebase.ProjectID == "" {
		return fmt.Errorf("firebase project id is required")
	}

	if config.Stripe.SecretKey == "" && !config.IsDevelopment() {
		return fmt.Errorf("stripe secret key is required")
	}

	for name, value := range map[string]string{
		"server.read_timeout":  config.Server.ReadTimeout,
		"server.write_timeout": config.Server.WriteTimeout,
		"firebase.timeout":     config.Firebase.Timeout,
		"stripe.timeout":       config.Stripe.Timeout,
		"redis.checkout_ttl":   config.Redis.CheckoutTTL,
		"redis.event_ttl":      config.Redis.EventTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	if config.RateLimit.RequestsPerSecond < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Server.Mode, "development")
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
