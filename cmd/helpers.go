package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/jsonstore/internal/config"
	"github.com/ziadkadry99/jsonstore/internal/db"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `jsonstore init` to create a config file", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// openDatabase opens the cart database unless the config asks for
// in-memory carts, in which case it returns nil.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	if cfg.Ephemeral {
		return nil, nil
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return database, nil
}
