package config

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// DevJWTSecret is the fallback signing secret for local runs. Load refuses it
// in production.
const DevJWTSecret = "not-so-secret-now-is-it?"

var ErrInsecureSecret = errors.New("JWT_SECRET must be set to a non-default value in production")

type MongoConfig struct {
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MAX_POOL_SIZE" envDefault:"100"`
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"RETRY_INTERVAL" envDefault:"5s"`
}

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL  string      `env:"DB_URL" envDefault:"memory://"`
	DatabaseName string      `env:"DB_NAME" envDefault:"radiologix"`
	Mongo        MongoConfig `envPrefix:"MONGODB_"`

	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"30m"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads an optional dotenv file (ENV_FILE, default .env) and then the
// process environment.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("No", envFile, "file found")
	}

	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DevJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return ErrInsecureSecret
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// CorsConfig builds the CORS policy for the API. Credentialed requests
// cannot use a literal "*", so a wildcard entry reflects the caller's origin
// instead.
func (c Config) CorsConfig() cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
	}
	if slices.Contains(c.AllowedOrigins, "*") {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		opts.AllowedOrigins = c.AllowedOrigins
	}
	return opts
}
