package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xushnid/supertest-backend/internal/model"
)

// ErrCodeTaken reports a collision on the unique test code column.
var ErrCodeTaken = errors.New("test code already taken")

// TestRepository handles test data access. Activation transitions write
// the full set of state columns in one statement, so a concurrent
// reader observes either the pre- or post-transition row.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

const testColumns = `id, owner_id, name, code, questions, active, session_version,
	window_end, sample_size, summary_handle, created_at, updated_at`

func scanTest(row pgx.Row) (*model.Test, error) {
	t := &model.Test{}
	var questions []byte
	err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Code, &questions, &t.Active,
		&t.SessionVersion, &t.WindowEnd, &t.SampleSize, &t.SummaryHandle,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &t.Questions); err != nil {
			return nil, fmt.Errorf("decode questions: %w", err)
		}
	}
	return t, nil
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// GetByCode retrieves a test by its 5-digit access code.
func (r *TestRepository) GetByCode(ctx context.Context, code string) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE code = $1`, code))
}

// ListByOwner retrieves all tests owned by an operator, newest first.
// Question banks are omitted from the listing.
func (r *TestRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, name, code, active, session_version,
		        window_end, sample_size, created_at, updated_at
		 FROM tests WHERE owner_id = $1
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Code, &t.Active,
			&t.SessionVersion, &t.WindowEnd, &t.SampleSize,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// Create inserts a new test. Returns ErrCodeTaken when the generated
// code collides with an existing one so the caller can retry with a
// fresh code.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tests (owner_id, name, code, questions, sample_size)
		 VALUES ($1, $2, $3, '[]'::jsonb, 0)
		 RETURNING id, active, session_version, created_at, updated_at`,
		t.OwnerID, t.Name, t.Code,
	).Scan(&t.ID, &t.Active, &t.SessionVersion, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrCodeTaken
		}
		return err
	}
	return nil
}

// ReplaceBank overwrites the test's question bank.
func (r *TestRepository) ReplaceBank(ctx context.Context, id uuid.UUID, questions []model.Question) error {
	encoded, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE tests SET questions = $1, updated_at = NOW() WHERE id = $2`,
		encoded, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Activate opens a submission window in a single guarded statement: the
// version bump and the window write land together, and the WHERE clause
// rejects a test that is already active. Returns pgx.ErrNoRows when the
// test is missing or not inactive.
func (r *TestRepository) Activate(ctx context.Context, id uuid.UUID, windowEnd time.Time, sampleSize int) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`UPDATE tests
		 SET active = TRUE,
		     window_end = $2,
		     sample_size = $3,
		     session_version = session_version + 1,
		     summary_handle = NULL,
		     updated_at = NOW()
		 WHERE id = $1 AND active = FALSE
		 RETURNING `+testColumns, id, windowEnd, sampleSize))
}

// Deactivate closes the window and clears it, keeping the session
// version untouched. Returns pgx.ErrNoRows when the test is missing or
// already inactive.
func (r *TestRepository) Deactivate(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`UPDATE tests
		 SET active = FALSE,
		     window_end = NULL,
		     updated_at = NOW()
		 WHERE id = $1 AND active = TRUE
		 RETURNING `+testColumns, id))
}

// SetSummaryHandle stores the handle of the live leaderboard summary
// message for a test. Pass nil to clear it.
func (r *TestRepository) SetSummaryHandle(ctx context.Context, code string, handle *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET summary_handle = $1, updated_at = NOW() WHERE code = $2`,
		handle, code)
	return err
}

// Delete removes a test. Associated results go with it through the
// ON DELETE CASCADE constraint on results.test_code.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
