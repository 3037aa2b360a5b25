package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// EnvDevelopment enables verbose error details in API responses
const EnvDevelopment = "development"

// RateLimitRule is a fixed window request budget
type RateLimitRule struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string `yaml:"port" env:"PORT"`
		Mode            string `yaml:"mode" env:"SERVER_MODE"`
		Environment     string `yaml:"environment" env:"APP_ENV"`
		FrontendURL     string `yaml:"frontend_url" env:"FRONTEND_URL"`
		BaseURL         string `yaml:"base_url" env:"BASE_URL"`
		StoragePath     string `yaml:"storage_path" env:"STORAGE_PATH"`
		RequestTimeout  string `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
		UploadTimeout   string `yaml:"upload_timeout" env:"UPLOAD_TIMEOUT"`
		ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
		MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI"`
		MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
		RefreshMaxAge         string `yaml:"refresh_max_age" env:"JWT_REFRESH_MAX_AGE"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	RateLimit struct {
		Enabled bool          `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
		Global  RateLimitRule `yaml:"global"`
		Auth    RateLimitRule `yaml:"auth"`
		API     RateLimitRule `yaml:"api"`
		PDF     RateLimitRule `yaml:"pdf"`
	} `yaml:"rate_limit"`

	Upload struct {
		MaxVideoSize    int64 `yaml:"max_video_size" env:"UPLOAD_MAX_VIDEO_SIZE"`
		MaxDocumentSize int64 `yaml:"max_document_size" env:"UPLOAD_MAX_DOCUMENT_SIZE"`
		MaxImageSize    int64 `yaml:"max_image_size" env:"UPLOAD_MAX_IMAGE_SIZE"`
	} `yaml:"upload"`

	Seed struct {
		AdminEmail    string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a .env file, a yaml file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// .env is optional, real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	applyDerived(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "5000"
	config.Server.Mode = "debug"
	config.Server.Environment = EnvDevelopment
	config.Server.FrontendURL = "http://localhost:5173"
	config.Server.StoragePath = "uploads"
	config.Server.RequestTimeout = "30s"
	config.Server.UploadTimeout = "10m"
	config.Server.ShutdownTimeout = "10s"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "coursehub"
	config.Database.SSLMode = "disable"
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"
	config.Database.MongoDatabase = "coursehub"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.Issuer = "coursehub"
	config.JWT.RefreshMaxAge = "168h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.RateLimit.Enabled = true
	config.RateLimit.Global = RateLimitRule{Limit: 100, Window: "15m"}
	config.RateLimit.Auth = RateLimitRule{Limit: 10, Window: "1h"}
	config.RateLimit.API = RateLimitRule{Limit: 60, Window: "1m"}
	config.RateLimit.PDF = RateLimitRule{Limit: 30, Window: "15m"}

	config.Upload.MaxVideoSize = 500 << 20
	config.Upload.MaxDocumentSize = 100 << 20
	config.Upload.MaxImageSize = 10 << 20
}

// applyDerived fills values that depend on other settings
func applyDerived(config *Config) {
	// MONGO_URI alone is enough to select the document store
	if config.Database.Driver == "" {
		if config.Database.MongoURI != "" {
			config.Database.Driver = DriverMongo
		} else {
			config.Database.Driver = DriverPostgres
		}
	}
	config.Database.Driver = strings.ToLower(config.Database.Driver)

	if config.Server.BaseURL == "" {
		config.Server.BaseURL = "http://localhost:" + config.Server.Port
	}
	config.Server.BaseURL = strings.TrimRight(config.Server.BaseURL, "/")
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case DriverMongo:
		if config.Database.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"jwt.access_token_expiration": config.JWT.AccessTokenExpiration,
		"jwt.refresh_max_age":         config.JWT.RefreshMaxAge,
		"server.request_timeout":      config.Server.RequestTimeout,
		"server.upload_timeout":       config.Server.UploadTimeout,
		"server.shutdown_timeout":     config.Server.ShutdownTimeout,
		"rate_limit.global.window":    config.RateLimit.Global.Window,
		"rate_limit.auth.window":      config.RateLimit.Auth.Window,
		"rate_limit.api.window":       config.RateLimit.API.Window,
		"rate_limit.pdf.window":       config.RateLimit.PDF.Window,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if config.Upload.MaxVideoSize <= 0 || config.Upload.MaxDocumentSize <= 0 || config.Upload.MaxImageSize <= 0 {
		return fmt.Errorf("upload size limits must be positive")
	}

	if config.Server.FrontendURL != "" {
		if _, err := url.ParseRequestURI(config.Server.FrontendURL); err != nil {
			return fmt.Errorf("invalid FRONTEND_URL: %w", err)
		}
	}

	return nil
}

// IsDevelopment reports whether error details may be exposed to clients
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(c.Database.User),
		url.QueryEscape(c.Database.Password),
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}
