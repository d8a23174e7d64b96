package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"evote-api/internal/domain"
	"evote-api/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgCandidateRepository struct {
	db *database.PostgresDB
}

func NewPgCandidateRepository(db *database.PostgresDB) *PgCandidateRepository {
	return &PgCandidateRepository{db: db}
}

const candidateColumns = `id, number, name, class_name, vision, mission, photo_url, votes, created_at`

func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var c domain.Candidate
	err := row.Scan(
		&c.ID,
		&c.Number,
		&c.Name,
		&c.ClassName,
		&c.Vision,
		&c.Mission,
		&c.PhotoURL,
		&c.Votes,
		&c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PgCandidateRepository) List(ctx context.Context) ([]domain.Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM candidates ORDER BY number ASC`, candidateColumns)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		err := rows.Scan(
			&c.ID,
			&c.Number,
			&c.Name,
			&c.ClassName,
			&c.Vision,
			&c.Mission,
			&c.PhotoURL,
			&c.Votes,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

func (r *PgCandidateRepository) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM candidates WHERE id = $1`, candidateColumns)

	c, err := scanCandidate(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

func (r *PgCandidateRepository) FindByNumber(ctx context.Context, number int, excludeID string) (*domain.Candidate, error) {
	query := fmt.Sprintf(`SELECT %s FROM candidates WHERE number = $1 AND id <> $2`, candidateColumns)

	c, err := scanCandidate(r.db.Pool.QueryRow(ctx, query, number, excludeID))
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate by number: %w", err)
	}
	return c, nil
}

func (r *PgCandidateRepository) Create(ctx context.Context, candidate *domain.Candidate) error {
	candidate.ID = newID()

	query := `
		INSERT INTO candidates (id, number, name, class_name, vision, mission, photo_url, votes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		candidate.ID,
		candidate.Number,
		candidate.Name,
		candidate.ClassName,
		candidate.Vision,
		candidate.Mission,
		candidate.PhotoURL,
	).Scan(&candidate.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

func (r *PgCandidateRepository) Update(ctx context.Context, candidate *domain.Candidate) error {
	query := `
		UPDATE candidates
		SET number = $2, name = $3, class_name = $4, vision = $5, mission = $6, photo_url = $7
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		candidate.ID,
		candidate.Number,
		candidate.Name,
		candidate.ClassName,
		candidate.Vision,
		candidate.Mission,
		candidate.PhotoURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCandidateNotFound
	}

	return nil
}

func (r *PgCandidateRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	return nil
}

// IncrementVotes is a single-statement atomic increment so concurrent
// votes for the same candidate never read-modify-write a stale counter.
func (r *PgCandidateRepository) IncrementVotes(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE candidates SET votes = votes + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment votes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func (r *PgCandidateRepository) SetVotes(ctx context.Context, id string, votes int) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE candidates SET votes = $2 WHERE id = $1`, id, votes)
	if err != nil {
		return fmt.Errorf("failed to set votes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func (r *PgCandidateRepository) ResetVotes(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE candidates SET votes = 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset votes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgCandidateRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM candidates`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete candidates: %w", err)
	}
	return tag.RowsAffected(), nil
}

// newID generates an opaque record id.
func newID() string {
	bytes := make([]byte, 12)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
