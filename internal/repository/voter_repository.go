package repository

import (
	"context"
	"fmt"
	"time"

	"evote-api/internal/domain"
	"evote-api/pkg/database"

	"github.com/jackc/pgx/v5"
)

type PgVoterRepository struct {
	db *database.PostgresDB
}

func NewPgVoterRepository(db *database.PostgresDB) *PgVoterRepository {
	return &PgVoterRepository{db: db}
}

const voterColumns = `id, identifier, has_voted, voted_at, voted_candidate_id, session_id, created_at`

func scanVoter(row pgx.Row) (*domain.Voter, error) {
	var (
		v           domain.Voter
		votedAt     *time.Time
		candidateID *string
		sessionID   *string
	)
	err := row.Scan(
		&v.ID,
		&v.Identifier,
		&v.HasVoted,
		&votedAt,
		&candidateID,
		&sessionID,
		&v.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v.VotedAt = votedAt
	if candidateID != nil {
		v.VotedCandidateID = *candidateID
	}
	if sessionID != nil {
		v.SessionID = *sessionID
	}
	return &v, nil
}

func (r *PgVoterRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Voter, error) {
	query := fmt.Sprintf(`SELECT %s FROM voters WHERE identifier = $1`, voterColumns)

	v, err := scanVoter(r.db.Pool.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, fmt.Errorf("failed to find voter: %w", err)
	}
	return v, nil
}

func (r *PgVoterRepository) List(ctx context.Context) ([]domain.Voter, error) {
	query := fmt.Sprintf(`SELECT %s FROM voters ORDER BY created_at ASC`, voterColumns)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	var voters []domain.Voter
	for rows.Next() {
		var (
			v           domain.Voter
			votedAt     *time.Time
			candidateID *string
			sessionID   *string
		)
		err := rows.Scan(
			&v.ID,
			&v.Identifier,
			&v.HasVoted,
			&votedAt,
			&candidateID,
			&sessionID,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		v.VotedAt = votedAt
		if candidateID != nil {
			v.VotedCandidateID = *candidateID
		}
		if sessionID != nil {
			v.SessionID = *sessionID
		}
		voters = append(voters, v)
	}

	return voters, rows.Err()
}

func (r *PgVoterRepository) RegisterBatch(ctx context.Context, identifiers []string) (int64, error) {
	if len(identifiers) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, identifier := range identifiers {
		batch.Queue(
			`INSERT INTO voters (id, identifier, has_voted) VALUES ($1, $2, false)
			 ON CONFLICT (identifier) DO NOTHING`,
			newID(), identifier,
		)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range identifiers {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to register voter tokens: %w", err)
		}
		inserted += tag.RowsAffected()
	}

	return inserted, nil
}

// MarkVoted is the serialization point of the vote casting protocol: the
// has_voted=false filter makes the flip conditional, so two concurrent
// votes from one identifier can never both claim the row.
func (r *PgVoterRepository) MarkVoted(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error) {
	query := `
		UPDATE voters
		SET has_voted = true, voted_at = $2, voted_candidate_id = $3, session_id = $4
		WHERE identifier = $1 AND has_voted = false
	`

	tag, err := r.db.Pool.Exec(ctx, query, identifier, votedAt, candidateID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark voter as voted: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ClaimOrCreate registers the identifier and claims its vote in one
// upsert. The conditional DO UPDATE keeps first-write-wins semantics for
// identifiers that already exist.
func (r *PgVoterRepository) ClaimOrCreate(ctx context.Context, identifier, candidateID, sessionID string, votedAt time.Time) (bool, error) {
	query := `
		INSERT INTO voters (id, identifier, has_voted, voted_at, voted_candidate_id, session_id)
		VALUES ($1, $2, true, $3, $4, $5)
		ON CONFLICT (identifier) DO UPDATE
		SET has_voted = true, voted_at = $3, voted_candidate_id = $4, session_id = $5
		WHERE voters.has_voted = false
	`

	tag, err := r.db.Pool.Exec(ctx, query, newID(), identifier, votedAt, candidateID, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to claim voter record: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PgVoterRepository) ResetVoteFlags(ctx context.Context) (int64, error) {
	query := `
		UPDATE voters
		SET has_voted = false, voted_at = NULL, voted_candidate_id = NULL, session_id = NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to reset voter flags: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgVoterRepository) ClearAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM voters`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear voters: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgVoterRepository) CountRegistered(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM voters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return count, nil
}

func (r *PgVoterRepository) CountVoted(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM voters WHERE has_voted = true`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count voted voters: %w", err)
	}
	return count, nil
}

func (r *PgVoterRepository) CountByCandidate(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT voted_candidate_id, COUNT(*)
		FROM voters
		WHERE has_voted = true AND voted_candidate_id IS NOT NULL
		GROUP BY voted_candidate_id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes by candidate: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			candidateID string
			count       int
		)
		if err := rows.Scan(&candidateID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts[candidateID] = count
	}

	return counts, rows.Err()
}
