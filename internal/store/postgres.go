package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool so tests can substitute pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Repository on PostgreSQL.
type PostgresStore struct {
	pool   DBPool
	cipher *Cipher
	log    *zap.Logger
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS autopilot_configuration (
            user_id TEXT PRIMARY KEY,
            service_credentials TEXT
        )`
	sqlSelectConfig = `SELECT COALESCE(service_credentials, '') FROM autopilot_configuration WHERE user_id = $1`
	sqlUpsertConfig = `
        INSERT INTO autopilot_configuration (user_id, service_credentials)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET
            service_credentials = EXCLUDED.service_credentials`
	sqlDeleteConfig = `DELETE FROM autopilot_configuration WHERE user_id = $1`
)

// OpenPostgres connects a pgx pool to url and wraps it.
func OpenPostgres(ctx context.Context, url string, cipher *Cipher, logger *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	s, err := NewPostgres(ctx, pool, cipher, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres verifies the connection and ensures the table exists.
func NewPostgres(ctx context.Context, pool DBPool, cipher *Cipher, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, sqlCreateTable); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &PostgresStore{pool: pool, cipher: cipher, log: logger.Named("store.postgres")}, nil
}

// GetUserConfig loads and decrypts a user's configuration.
func (s *PostgresStore) GetUserConfig(ctx context.Context, userID string) (UserConfig, error) {
	var enc string
	err := s.pool.QueryRow(ctx, sqlSelectConfig, userID).Scan(&enc)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && enc == "") {
		return UserConfig{}, ErrNotFound
	}
	if err != nil {
		return UserConfig{}, fmt.Errorf("query user configuration: %w", err)
	}
	return s.cipher.openConfig(enc)
}

// PutUserConfig upserts a user's configuration.
func (s *PostgresStore) PutUserConfig(ctx context.Context, userID string, cfg UserConfig) error {
	enc, err := s.cipher.sealConfig(cfg)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, sqlUpsertConfig, userID, enc); err != nil {
		return fmt.Errorf("upsert user configuration: %w", err)
	}
	s.log.Debug("Stored user configuration", zap.String("user_id", userID))
	return nil
}

// DeleteUserConfig removes a user's configuration.
func (s *PostgresStore) DeleteUserConfig(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteConfig, userID)
	if err != nil {
		return fmt.Errorf("delete user configuration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
