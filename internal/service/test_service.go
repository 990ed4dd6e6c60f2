package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/parser"
	"github.com/xushnid/supertest-backend/internal/repository"
)

// codeAttempts bounds the retry loop on code collisions. With a five
// digit space a handful of retries is plenty until the table holds tens
// of thousands of tests.
const codeAttempts = 10

// TestService handles operator-facing test management: creation, bank
// upload, listing, export and deletion.
type TestService struct {
	tests TestStore
	log   zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(tests TestStore, log zerolog.Logger) *TestService {
	return &TestService{
		tests: tests,
		log:   log.With().Str("component", "test_service").Logger(),
	}
}

// Create inserts a new test with a freshly allocated unique 5-digit
// code. Uniqueness is guarded by the database constraint; collisions
// are retried with a new code.
func (s *TestService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*model.Test, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		t := &model.Test{
			OwnerID: ownerID,
			Name:    name,
			Code:    randomCode(),
		}
		err := s.tests.Create(ctx, t)
		if err == nil {
			s.log.Info().Str("code", t.Code).Str("name", name).Msg("test created")
			return t, nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		return nil, fmt.Errorf("create test: %w", err)
	}
	return nil, ErrCodeExhausted
}

// randomCode draws a 5-digit code from a CSPRNG so codes are not
// guessable from previously issued ones.
func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		// crypto/rand failing means the platform is broken; there is
		// no reasonable fallback for an access code.
		panic(fmt.Sprintf("read random: %v", err))
	}
	return fmt.Sprintf("%05d", n.Int64())
}

// UploadBank parses raw delimited question text and replaces the
// test's bank with the surviving questions. Malformed blocks are
// skipped and counted, never fatal; an upload where no block survives
// is rejected so an active test cannot end up bankless.
func (s *TestService) UploadBank(ctx context.Context, testID, ownerID uuid.UUID, raw string) (parser.Stats, error) {
	t, err := s.getOwned(ctx, testID, ownerID)
	if err != nil {
		return parser.Stats{}, err
	}

	questions, stats := parser.Parse(raw)
	if len(questions) == 0 {
		return stats, ErrEmptyBank
	}

	if err := s.tests.ReplaceBank(ctx, t.ID, questions); err != nil {
		return stats, fmt.Errorf("replace bank: %w", err)
	}

	s.log.Info().
		Str("code", t.Code).
		Int("parsed", stats.Parsed).
		Int("skipped", stats.Skipped).
		Msg("question bank uploaded")
	return stats, nil
}

// Get retrieves a test owned by the operator.
func (s *TestService) Get(ctx context.Context, testID, ownerID uuid.UUID) (*model.Test, error) {
	return s.getOwned(ctx, testID, ownerID)
}

// List retrieves all tests owned by the operator.
func (s *TestService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Test, error) {
	tests, err := s.tests.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	return tests, nil
}

// ExportBank renders the bank back into its canonical source form.
func (s *TestService) ExportBank(ctx context.Context, testID, ownerID uuid.UUID) (string, error) {
	t, err := s.getOwned(ctx, testID, ownerID)
	if err != nil {
		return "", err
	}
	if len(t.Questions) == 0 {
		return "", ErrEmptyBank
	}
	return parser.Render(t.Questions), nil
}

// Delete removes a test and, through the cascade, all of its results.
func (s *TestService) Delete(ctx context.Context, testID, ownerID uuid.UUID) error {
	t, err := s.getOwned(ctx, testID, ownerID)
	if err != nil {
		return err
	}
	if err := s.tests.Delete(ctx, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTestNotFound
		}
		return fmt.Errorf("delete test: %w", err)
	}
	s.log.Info().Str("code", t.Code).Msg("test deleted")
	return nil
}

func (s *TestService) getOwned(ctx context.Context, testID, ownerID uuid.UUID) (*model.Test, error) {
	t, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	if t.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return t, nil
}
