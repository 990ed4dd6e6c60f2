package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xushnid/supertest-backend/internal/model"
)

// ResultRepository handles submission ledger data access. The table is
// keyed by (test_code, participant_id); the upsert on that key is the
// sole serialization point for concurrent submissions by the same
// participant.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// GetByTestAndParticipant retrieves the single current result row for a
// participant against a test.
func (r *ResultRepository) GetByTestAndParticipant(ctx context.Context, testCode, participantID string) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT test_code, participant_id, session_version, score, total,
		        full_name, created_at, updated_at
		 FROM results
		 WHERE test_code = $1 AND participant_id = $2`, testCode, participantID,
	).Scan(&res.TestCode, &res.ParticipantID, &res.SessionVersion, &res.Score,
		&res.Total, &res.FullName, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EnsurePlaceholder records first access by a participant: a row with
// no score under the current session version. An existing row is left
// untouched, so a concurrent or earlier submission is never clobbered.
func (r *ResultRepository) EnsurePlaceholder(ctx context.Context, testCode, participantID string, sessionVersion int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results (test_code, participant_id, session_version, full_name)
		 VALUES ($1, $2, $3, '')
		 ON CONFLICT (test_code, participant_id) DO NOTHING`,
		testCode, participantID, sessionVersion)
	return err
}

// Upsert records a submission. When a row already exists the score,
// total, full name and session version are overwritten unconditionally:
// resubmission within one session is idempotent, and a submission after
// re-activation replaces the stale row in place.
func (r *ResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO results (test_code, participant_id, session_version, score, total, full_name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (test_code, participant_id) DO UPDATE
		 SET session_version = EXCLUDED.session_version,
		     score           = EXCLUDED.score,
		     total           = EXCLUDED.total,
		     full_name       = EXCLUDED.full_name,
		     updated_at      = NOW()
		 RETURNING created_at, updated_at`,
		res.TestCode, res.ParticipantID, res.SessionVersion, res.Score, res.Total, res.FullName,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
}

// ListScored retrieves all scored results for a test under the given
// session version, ranked by score descending with earlier submissions
// winning ties.
func (r *ResultRepository) ListScored(ctx context.Context, testCode string, sessionVersion int) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT test_code, participant_id, session_version, score, total,
		        full_name, created_at, updated_at
		 FROM results
		 WHERE test_code = $1 AND session_version = $2 AND score IS NOT NULL
		 ORDER BY score DESC, created_at ASC`, testCode, sessionVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.TestCode, &res.ParticipantID, &res.SessionVersion,
			&res.Score, &res.Total, &res.FullName, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
