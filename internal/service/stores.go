package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xushnid/supertest-backend/internal/model"
)

// TestStore is the persistence surface services need for tests.
// *repository.TestRepository satisfies it; tests use in-memory fakes.
// A missing row is reported as pgx.ErrNoRows by the real store and the
// fakes alike.
type TestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	GetByCode(ctx context.Context, code string) (*model.Test, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Test, error)
	Create(ctx context.Context, t *model.Test) error
	ReplaceBank(ctx context.Context, id uuid.UUID, questions []model.Question) error
	Activate(ctx context.Context, id uuid.UUID, windowEnd time.Time, sampleSize int) (*model.Test, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*model.Test, error)
	SetSummaryHandle(ctx context.Context, code string, handle *string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ResultStore is the persistence surface of the submission ledger.
type ResultStore interface {
	GetByTestAndParticipant(ctx context.Context, testCode, participantID string) (*model.Result, error)
	EnsurePlaceholder(ctx context.Context, testCode, participantID string, sessionVersion int) error
	Upsert(ctx context.Context, res *model.Result) error
	ListScored(ctx context.Context, testCode string, sessionVersion int) ([]model.Result, error)
}

// OperatorStore is the persistence surface for operator accounts.
type OperatorStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Operator, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Operator, error)
}
