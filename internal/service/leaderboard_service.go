package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/notify"
)

// LeaderboardService renders the ranked summary for a test and keeps at
// most one live summary message per test: the stored handle is updated
// in place, and only replaced when the old message is gone.
type LeaderboardService struct {
	tests     TestStore
	results   ResultStore
	operators OperatorStore
	notifier  notify.Notifier
	log       zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardService.
func NewLeaderboardService(
	tests TestStore,
	results ResultStore,
	operators OperatorStore,
	notifier notify.Notifier,
	log zerolog.Logger,
) *LeaderboardService {
	return &LeaderboardService{
		tests:     tests,
		results:   results,
		operators: operators,
		notifier:  notifier,
		log:       log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// Refresh rebuilds the summary for the test's current session version
// and delivers it to the owner. Returns the rendered summary so other
// consumers (the live stream) can reuse it. Delivery failure is logged
// as a final outcome; the rendered summary is still returned.
func (s *LeaderboardService) Refresh(ctx context.Context, testCode string) (string, error) {
	t, err := s.tests.GetByCode(ctx, testCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrTestNotFound
		}
		return "", fmt.Errorf("get test: %w", err)
	}

	results, err := s.results.ListScored(ctx, t.Code, t.SessionVersion)
	if err != nil {
		return "", fmt.Errorf("list results: %w", err)
	}

	summary := renderSummary(t, results)
	s.deliver(ctx, t, summary)
	return summary, nil
}

// deliver updates the test's single summary message, creating a new
// one when none exists or the old one is gone.
func (s *LeaderboardService) deliver(ctx context.Context, t *model.Test, summary string) {
	owner, err := s.operators.GetByID(ctx, t.OwnerID)
	if err != nil {
		s.log.Warn().Err(err).Str("code", t.Code).Msg("owner lookup for summary failed")
		return
	}
	if owner.ChatID == "" {
		return
	}

	if t.SummaryHandle != nil {
		err := s.notifier.Update(ctx, owner.ChatID, notify.Handle(*t.SummaryHandle), summary)
		if err == nil {
			return
		}
		if !errors.Is(err, notify.ErrHandleGone) {
			s.log.Error().Err(err).Str("code", t.Code).Msg("summary update failed, not retrying")
			return
		}
		// The old message no longer exists; fall through to a fresh send.
	}

	handle, err := s.notifier.Send(ctx, owner.ChatID, summary)
	if err != nil {
		s.log.Error().Err(err).Str("code", t.Code).Msg("summary send failed, not retrying")
		return
	}

	handleStr := string(handle)
	if err := s.tests.SetSummaryHandle(ctx, t.Code, &handleStr); err != nil {
		s.log.Error().Err(err).Str("code", t.Code).Msg("store summary handle failed")
	}
}

// renderSummary formats the ranked list. Results arrive already sorted
// by score descending, earliest submission first on ties.
func renderSummary(t *model.Test, results []model.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Leaderboard: %s (%s)\n", t.Name, t.Code)

	if len(results) == 0 {
		b.WriteString("No submissions yet.")
		return b.String()
	}

	for i, r := range results {
		name := r.FullName
		if name == "" {
			name = r.ParticipantID
		}
		fmt.Fprintf(&b, "%d. %s: %d/%d\n", i+1, name, *r.Score, *r.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}
