package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/model"
)

// ActivationService is the only mutator of a test's session state. An
// activation bumps the session version, which retires every earlier
// result by version mismatch: stale rows stay in the table for history
// but no longer count as submitted and no longer feed the leaderboard.
type ActivationService struct {
	tests TestStore
	log   zerolog.Logger
}

// NewActivationService creates a new ActivationService.
func NewActivationService(tests TestStore, log zerolog.Logger) *ActivationService {
	return &ActivationService{
		tests: tests,
		log:   log.With().Str("component", "activation_service").Logger(),
	}
}

// Activate opens a submission window. The test must be inactive; an
// active test, expired or not, has to be deactivated first. The store
// guard makes the inactive check and the transition one atomic
// statement, so two racing activations cannot both bump the version.
func (s *ActivationService) Activate(ctx context.Context, testID, ownerID uuid.UUID, durationMinutes, sampleSize int) (*model.Test, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	if sampleSize < 0 {
		return nil, ErrInvalidSampleSize
	}

	t, err := s.getOwned(ctx, testID, ownerID)
	if err != nil {
		return nil, err
	}
	if len(t.Questions) == 0 {
		return nil, ErrEmptyBank
	}
	if t.Active {
		return nil, ErrAlreadyActive
	}

	windowEnd := time.Now().Add(time.Duration(durationMinutes) * time.Minute)
	activated, err := s.tests.Activate(ctx, t.ID, windowEnd, sampleSize)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race against a concurrent activation.
			return nil, ErrAlreadyActive
		}
		return nil, fmt.Errorf("activate test: %w", err)
	}

	s.log.Info().
		Str("code", activated.Code).
		Int("session_version", activated.SessionVersion).
		Time("window_end", windowEnd).
		Int("sample_size", sampleSize).
		Msg("test activated")
	return activated, nil
}

// Deactivate closes the window. Allowed while the test is active or
// expired-active; the session version is left untouched so results
// recorded during the window stay current.
func (s *ActivationService) Deactivate(ctx context.Context, testID, ownerID uuid.UUID) (*model.Test, error) {
	t, err := s.getOwned(ctx, testID, ownerID)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, ErrNotActive
	}

	deactivated, err := s.tests.Deactivate(ctx, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotActive
		}
		return nil, fmt.Errorf("deactivate test: %w", err)
	}

	s.log.Info().Str("code", deactivated.Code).Msg("test deactivated")
	return deactivated, nil
}

func (s *ActivationService) getOwned(ctx context.Context, testID, ownerID uuid.UUID) (*model.Test, error) {
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
