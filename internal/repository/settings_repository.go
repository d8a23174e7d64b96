package repository

import (
	"context"
	"fmt"

	"evote-api/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgSettingsRepository struct {
	db *database.PostgresDB
}

func NewPgSettingsRepository(db *database.PostgresDB) *PgSettingsRepository {
	return &PgSettingsRepository{db: db}
}

// Get returns the stored value for key, or def when the key has never
// been written. Settings are soft-schema: absence is not an error.
func (r *PgSettingsRepository) Get(ctx context.Context, key, def string) (string, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return value, nil
}

func (r *PgSettingsRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = $2
	`

	if _, err := r.db.Pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %q: %w", key, err)
	}
	return nil
}

func (r *PgSettingsRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM settings`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete settings: %w", err)
	}
	return tag.RowsAffected(), nil
}
