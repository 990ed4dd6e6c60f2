package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/config"
	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/notify"
	"github.com/xushnid/supertest-backend/internal/sampling"
)

// SessionView is what a participant gets back when entering a code.
// Either the personalized question set (status "active") or the score
// they already recorded this session (status "finished").
type SessionView struct {
	Status           string           `json:"status"`
	Name             string           `json:"name"`
	Questions        []model.Question `json:"questions,omitempty"`
	RemainingSeconds int              `json:"remaining_seconds,omitempty"`
	Score            *int             `json:"score,omitempty"`
	Total            *int             `json:"total,omitempty"`
}

// SessionService admits participants into open tests and records their
// submissions. Admission and recording are separate requests; the
// upsert keyed by (test_code, participant_id) keeps the check-then-act
// race benign, since both racing writes carry the same participant's
// own score.
type SessionService struct {
	tests     TestStore
	results   ResultStore
	operators OperatorStore
	rdb       *redis.Client
	notifier  notify.Notifier
	log       zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	tests TestStore,
	results ResultStore,
	operators OperatorStore,
	rdb *redis.Client,
	notifier notify.Notifier,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		tests:     tests,
		results:   results,
		operators: operators,
		rdb:       rdb,
		notifier:  notifier,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// Admit decides whether the participant may currently receive the
// test. Admission yields the participant's deterministic sample; a
// participant who already scored under the current session version
// gets their recorded result instead. Denials are typed:
// ErrTestNotFound, ErrTestClosed, ErrTestExpired.
func (s *SessionService) Admit(ctx context.Context, testCode, participantID string) (*SessionView, error) {
	t, err := s.tests.GetByCode(ctx, testCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}

	now := time.Now()
	switch t.Status(now) {
	case model.TestStatusClosed:
		return nil, ErrTestClosed
	case model.TestStatusExpired:
		return nil, ErrTestExpired
	}

	existing, err := s.results.GetByTestAndParticipant(ctx, testCode, participantID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if existing != nil && existing.Scored() && existing.SessionVersion == t.SessionVersion {
		return &SessionView{
			Status: "finished",
			Name:   t.Name,
			Score:  existing.Score,
			Total:  existing.Total,
		}, nil
	}

	// First access this session: record a placeholder row. A stale row
	// from an earlier session does not block re-admission.
	if err := s.results.EnsurePlaceholder(ctx, testCode, participantID, t.SessionVersion); err != nil {
		return nil, fmt.Errorf("ensure placeholder: %w", err)
	}

	questions := sampling.Sample(t.Questions, participantID, t.Code, t.SessionVersion, t.SampleSize)

	return &SessionView{
		Status:           "active",
		Name:             t.Name,
		Questions:        questions,
		RemainingSeconds: t.RemainingSeconds(now),
	}, nil
}

// Submit records a scored result. The upsert overwrites any existing
// row for the participant unconditionally, so resubmission within one
// session is idempotent and a submission after re-activation replaces
// the stale row. The leaderboard refresh and the owner notification are
// best-effort side effects; their failure never loses the submission.
func (s *SessionService) Submit(ctx context.Context, req model.SubmitResultRequest) error {
	t, err := s.tests.GetByCode(ctx, req.TestCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTestNotFound
		}
		return fmt.Errorf("get test: %w", err)
	}

	switch t.Status(time.Now()) {
	case model.TestStatusClosed:
		return ErrTestClosed
	case model.TestStatusExpired:
		return ErrTestExpired
	}

	res := &model.Result{
		TestCode:       t.Code,
		ParticipantID:  req.ParticipantID,
		SessionVersion: t.SessionVersion,
		Score:          &req.Score,
		Total:          &req.Total,
		FullName:       req.FullName,
	}
	if err := s.results.Upsert(ctx, res); err != nil {
		return fmt.Errorf("record result: %w", err)
	}

	s.log.Info().
		Str("code", t.Code).
		Str("participant", req.ParticipantID).
		Int("score", req.Score).
		Int("total", req.Total).
		Msg("result recorded")

	if err := s.rdb.RPush(ctx, config.WorkerKey.LeaderboardRefreshQueue, t.Code).Err(); err != nil {
		s.log.Error().Err(err).Str("code", t.Code).Msg("enqueue leaderboard refresh failed")
	}

	s.notifyOwner(ctx, t, req)
	return nil
}

// notifyOwner tells the test owner about a fresh submission. Delivery
// is fire-and-forget: a failure is logged as a final outcome, never
// retried.
func (s *SessionService) notifyOwner(ctx context.Context, t *model.Test, req model.SubmitResultRequest) {
	owner, err := s.operators.GetByID(ctx, t.OwnerID)
	if err != nil {
		s.log.Warn().Err(err).Str("code", t.Code).Msg("owner lookup for notification failed")
		return
	}
	if owner.ChatID == "" {
		return
	}

	text := fmt.Sprintf("New result for %s (%s): %s scored %d/%d",
		t.Name, t.Code, req.FullName, req.Score, req.Total)
	if _, err := s.notifier.Send(ctx, owner.ChatID, text); err != nil {
		s.log.Error().Err(err).Str("code", t.Code).Msg("owner notification failed, not retrying")
	}
}
