package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is everything the client reads from the environment. The
// CARTIFY_ prefix keeps it out of the way of whatever else runs in the
// shell.
type Config struct {
	APIBaseURL   string        `envconfig:"API_BASE_URL" required:"true"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	StorePath    string        `envconfig:"STORE_PATH" default:"cartify.db"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty    bool          `envconfig:"LOG_PRETTY" default:"false"`
	DefaultTheme string        `envconfig:"DEFAULT_THEME" default:"light"`
}

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}
	var cfg Config
	if err := envconfig.Process("cartify", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
