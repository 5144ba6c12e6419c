package config

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads configuration from the given .env file (if present) and the
// process environment. A nil logger falls back to slog.Default.
func Load(envFile string, logger *slog.Logger) (*AppConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.Warn("no .env file found, using system environment variables")
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
