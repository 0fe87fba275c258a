package store

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConfig struct {
	ConnString string
	TableName  string
}

// PostgresBackend stores blobs as jsonb rows.
type PostgresBackend struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, config PostgresConfig) (*PostgresBackend, error) {
	if config.TableName == "" {
		config.TableName = "app_state"
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pb := &PostgresBackend{
		config: config,
		pool:   pool,
	}

	if err := pb.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pb, nil
}

func (pb *PostgresBackend) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, pb.config.TableName)

	if _, err := pb.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) Load(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE key = $1`, pb.config.TableName)

	var data []byte
	err := pb.pool.QueryRow(ctx, query, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query state: %w", err)
	}
	return data, nil
}

func (pb *PostgresBackend) Save(ctx context.Context, key string, data []byte) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (key, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		pb.config.TableName)

	// jsonb rejects invalid UTF-8.
	if _, err := pb.pool.Exec(ctx, stmt, key, sanitizeUTF8(string(data))); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) Delete(ctx context.Context, key string) error {
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, pb.config.TableName)
	if _, err := pb.pool.Exec(ctx, stmt, key); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

func (pb *PostgresBackend) Close() error {
	if pb.pool != nil {
		pb.pool.Close()
	}
	return nil
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
