// Package store persists per-user automation settings.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

// ErrNotFound is returned when a user has no stored configuration.
var ErrNotFound = errors.New("user configuration not found")

// UserConfig holds the portal credentials and pacing for one user. It is
// persisted as a single encrypted JSON document.
type UserConfig struct {
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	TimePerWord float64 `json:"timePerWord,omitempty"`
}

// Normalize applies defaults. A missing or non-positive TimePerWord becomes 1.
func (c *UserConfig) Normalize() {
	if c.TimePerWord <= 0 {
		c.TimePerWord = 1
	}
}

// Valid reports whether both credentials are present.
func (c UserConfig) Valid() bool {
	return c.Username != "" && c.Password != ""
}

// Repository is the persistence contract for user configuration.
type Repository interface {
	GetUserConfig(ctx context.Context, userID string) (UserConfig, error)
	PutUserConfig(ctx context.Context, userID string, cfg UserConfig) error
	DeleteUserConfig(ctx context.Context, userID string) error
	Close() error
}

const tableName = "autopilot_configuration"

// New opens the configured backend.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (Repository, error) {
	cipher, err := NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case config.DriverSQLite, "":
		return NewSQLite(ctx, cfg.Path, cipher, logger)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.URL, cipher, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}
