package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment selects a client preset.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
	EnvDebug       Environment = "debug"
	EnvCustom      Environment = "custom"
)

// Token store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// DefaultAPIURL is used when AIGENCIA_API_URL is unset.
const DefaultAPIURL = "http://localhost:3001/api"

// ParseEnvironment maps a tag to an Environment. Matching ignores case and
// surrounding space; "dev", "prod" and "testing" are accepted aliases.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development", "dev":
		return EnvDevelopment, nil
	case "production", "prod":
		return EnvProduction, nil
	case "test", "testing":
		return EnvTest, nil
	case "debug":
		return EnvDebug, nil
	case "custom":
		return EnvCustom, nil
	default:
		return "", fmt.Errorf("unsupported environment: %q", s)
	}
}

// Config holds client settings parsed from AIGENCIA_ prefixed variables.
type Config struct {
	APIURL string `envconfig:"API_URL" default:"http://localhost:3001/api"`

	// Env falls back to NODE_ENV, then development.
	Env      string `envconfig:"ENV" default:""`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Token persistence: memory, file or sqlite
	TokenStore     string `envconfig:"TOKEN_STORE" default:"file"`
	TokenStorePath string `envconfig:"TOKEN_STORE_PATH" default:""`

	// Zero keeps the preset's timeout.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"0s"`

	Environment Environment `ignored:"true"`
}

// ResolveDefaults validates the parsed values and derives Environment and
// TokenStorePath.
func (c *Config) ResolveDefaults() error {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}

	tag := c.Env
	if tag == "" {
		tag = os.Getenv("NODE_ENV")
	}
	if tag == "" {
		tag = string(EnvDevelopment)
	}
	env, err := ParseEnvironment(tag)
	if err != nil {
		return err
	}
	c.Environment = env

	c.TokenStore = strings.ToLower(c.TokenStore)
	switch c.TokenStore {
	case "":
		c.TokenStore = StoreFile
	case StoreMemory, StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unsupported TOKEN_STORE: %s", c.TokenStore)
	}

	if c.TokenStorePath == "" && c.TokenStore != StoreMemory {
		dir, err := stateDir()
		if err != nil {
			return err
		}
		name := "tokens.json"
		if c.TokenStore == StoreSQLite {
			name = "tokens.db"
		}
		c.TokenStorePath = filepath.Join(dir, name)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative: %s", c.RequestTimeout)
	}
	return nil
}

func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".aigencia"), nil
}

// New creates a Config by parsing environment variables prefixed with
// AIGENCIA_, e.g. AIGENCIA_API_URL, AIGENCIA_TOKEN_STORE.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("AIGENCIA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("api_url", cfg.APIURL).
		Str("environment", string(cfg.Environment)).
		Str("token_store", cfg.TokenStore).
		Str("token_store_path", cfg.TokenStorePath).
		Dur("request_timeout", cfg.RequestTimeout).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns an in-memory test configuration.
func NewForTesting() *Config {
	return &Config{
		APIURL:      "http://localhost:3001/api",
		Env:         string(EnvTest),
		LogLevel:    "debug",
		TokenStore:  StoreMemory,
		Environment: EnvTest,
	}
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// IsTesting returns true if the environment is test
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTest
}
