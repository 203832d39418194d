// Package config holds the server configuration
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tecu23/maze-server/pkg/game"
)

// Config is the server configuration, read from MAZE_* environment variables.
type Config struct {
	Debug bool   `env:"MAZE_DEBUG"`
	Port  string `env:"MAZE_PORT" envDefault:"8080"`

	// FrontendOrigin is the only Origin allowed to open a websocket. Empty
	// accepts any origin.
	FrontendOrigin string `env:"MAZE_FRONTEND_ORIGIN"`

	// DBPath selects the SQLite run store. Empty keeps runs in memory.
	DBPath string `env:"MAZE_DB_PATH"`

	LeaderboardSize int           `env:"MAZE_LEADERBOARD_SIZE" envDefault:"10"`
	TickInterval    time.Duration `env:"MAZE_TICK_INTERVAL"    envDefault:"100ms"`
	SaveWorkers     int           `env:"MAZE_SAVE_WORKERS"     envDefault:"4"`
	JobTimeout      time.Duration `env:"MAZE_JOB_TIMEOUT"      envDefault:"5s"`

	OTelEndpoint string `env:"MAZE_OTEL_ENDPOINT"`

	Solo Solo
}

// Solo holds the default shape of a solo run.
type Solo struct {
	MaxLevel           int           `env:"MAZE_SOLO_MAX_LEVEL"           envDefault:"10"`
	ShopLevels         []int         `env:"MAZE_SOLO_SHOP_LEVELS"         envDefault:"3,6,9" envSeparator:","`
	Countdown          time.Duration `env:"MAZE_SOLO_COUNTDOWN"           envDefault:"3s"`
	ShopDuration       time.Duration `env:"MAZE_SOLO_SHOP_DURATION"       envDefault:"30s"`
	TransitionDuration time.Duration `env:"MAZE_SOLO_TRANSITION_DURATION" envDefault:"1500ms"`
}

// Load parses the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.LeaderboardSize < 1 {
		errs = append(errs, fmt.Errorf("leaderboard size must be positive, got %d", c.LeaderboardSize))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.SaveWorkers < 1 {
		errs = append(errs, fmt.Errorf("save workers must be positive, got %d", c.SaveWorkers))
	}
	if c.JobTimeout <= 0 {
		errs = append(errs, fmt.Errorf("job timeout must be positive, got %s", c.JobTimeout))
	}
	if err := c.SoloSettings().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SoloSettings returns the run settings used when a client does not send a
// custom configuration.
func (c *Config) SoloSettings() game.Settings {
	return game.Settings{
		MaxLevel:           c.Solo.MaxLevel,
		ShopLevels:         append([]int(nil), c.Solo.ShopLevels...),
		CountdownDuration:  c.Solo.Countdown,
		ShopDuration:       c.Solo.ShopDuration,
		TransitionDuration: c.Solo.TransitionDuration,
	}
}
