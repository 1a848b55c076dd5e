package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqlitePragmas = "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

// SQLiteStore implements Repository on an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	cipher *Cipher
	log    *zap.Logger
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string, cipher *Cipher, logger *zap.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// Pragmas in the DSN are applied to every pooled connection.
	db, err := sql.Open("sqlite", path+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db, cipher: cipher, log: logger.Named("store.sqlite")}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS `+tableName+` (
		user_id TEXT PRIMARY KEY,
		service_credentials TEXT
	);`)
	return err
}

// GetUserConfig loads and decrypts a user's configuration.
func (s *SQLiteStore) GetUserConfig(ctx context.Context, userID string) (UserConfig, error) {
	var enc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT service_credentials FROM `+tableName+` WHERE user_id = ?`, userID).Scan(&enc)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !enc.Valid) {
		return UserConfig{}, ErrNotFound
	}
	if err != nil {
		return UserConfig{}, fmt.Errorf("query user configuration: %w", err)
	}
	return s.cipher.openConfig(enc.String)
}

// PutUserConfig upserts a user's configuration.
func (s *SQLiteStore) PutUserConfig(ctx context.Context, userID string, cfg UserConfig) error {
	enc, err := s.cipher.sealConfig(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+tableName+` (user_id, service_credentials) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET service_credentials = excluded.service_credentials`,
		userID, enc)
	if err != nil {
		return fmt.Errorf("upsert user configuration: %w", err)
	}
	s.log.Debug("Stored user configuration", zap.String("user_id", userID))
	return nil
}

// DeleteUserConfig removes a user's configuration. Deleting a missing row
// returns ErrNotFound.
func (s *SQLiteStore) DeleteUserConfig(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tableName+` WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user configuration: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
