package repository

import (
	"context"
	"fmt"

	"evote-api/internal/domain"
	"evote-api/pkg/database"
)

// TurnoutRepository persists turnout snapshots.
type TurnoutRepository interface {
	// CreateSnapshot inserts a turnout sample.
	CreateSnapshot(ctx context.Context, snapshot *domain.TurnoutSnapshot) error

	// ListRecent retrieves the most recent snapshots, newest first.
	ListRecent(ctx context.Context, limit int) ([]domain.TurnoutSnapshot, error)

	// DeleteAll removes every snapshot (hard reset).
	DeleteAll(ctx context.Context) (int64, error)
}

type PgTurnoutRepository struct {
	db *database.PostgresDB
}

func NewPgTurnoutRepository(db *database.PostgresDB) *PgTurnoutRepository {
	return &PgTurnoutRepository{db: db}
}

func (r *PgTurnoutRepository) CreateSnapshot(ctx context.Context, snapshot *domain.TurnoutSnapshot) error {
	query := `
		INSERT INTO turnout_snapshots (session_id, registered_voters, votes_cast)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		snapshot.SessionID,
		snapshot.RegisteredVoters,
		snapshot.VotesCast,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create turnout snapshot: %w", err)
	}
	return nil
}

func (r *PgTurnoutRepository) ListRecent(ctx context.Context, limit int) ([]domain.TurnoutSnapshot, error) {
	query := `
		SELECT id, session_id, registered_voters, votes_cast, created_at
		FROM turnout_snapshots
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turnout snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []domain.TurnoutSnapshot
	for rows.Next() {
		var s domain.TurnoutSnapshot
		err := rows.Scan(&s.ID, &s.SessionID, &s.RegisteredVoters, &s.VotesCast, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turnout snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (r *PgTurnoutRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM turnout_snapshots`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete turnout snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
