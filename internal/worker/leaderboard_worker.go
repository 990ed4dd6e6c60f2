package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/config"
)

const (
	// LeaderboardPollTimeout bounds each queue pop so shutdown stays
	// responsive.
	LeaderboardPollTimeout = 1 * time.Second
)

// Refresher rebuilds a test's summary and returns the rendered text.
// *service.LeaderboardService satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, testCode string) (string, error)
}

// LeaderboardWorker drains the refresh queue and throttles refreshes:
// a burst of submissions for one test collapses into a single refresh
// per debounce window, so the summary message is rewritten at most once
// per window regardless of submission volume. Rendered summaries are
// also published on the test's PubSub channel for live streams.
type LeaderboardWorker struct {
	rdb       *redis.Client
	refresher Refresher
	debounce  time.Duration
	log       zerolog.Logger
}

// NewLeaderboardWorker creates a new LeaderboardWorker.
func NewLeaderboardWorker(rdb *redis.Client, refresher Refresher, debounce time.Duration, log zerolog.Logger) *LeaderboardWorker {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &LeaderboardWorker{
		rdb:       rdb,
		refresher: refresher,
		debounce:  debounce,
		log:       log.With().Str("component", "leaderboard_worker").Logger(),
	}
}

// Start runs the worker loop until the context is canceled. Pending
// test codes are flushed on shutdown.
func (w *LeaderboardWorker) Start(ctx context.Context) {
	w.log.Info().Dur("debounce", w.debounce).Msg("LeaderboardWorker started")

	pending := make(map[string]struct{})
	lastFlush := time.Now()

	for {
		if len(pending) > 0 && time.Since(lastFlush) >= w.debounce {
			w.flush(ctx, pending)
			pending = make(map[string]struct{})
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing pending refreshes...")
			w.flush(context.Background(), pending)
			return

		default:
			item, err := w.rdb.BLPop(ctx, LeaderboardPollTimeout, config.WorkerKey.LeaderboardRefreshQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 || item[1] == "" {
				continue
			}
			pending[item[1]] = struct{}{}
		}
	}
}

// flush refreshes each pending test once and publishes the summary.
func (w *LeaderboardWorker) flush(ctx context.Context, pending map[string]struct{}) {
	for code := range pending {
		summary, err := w.refresher.Refresh(ctx, code)
		if err != nil {
			w.log.Error().Err(err).Str("code", code).Msg("leaderboard refresh failed")
			continue
		}

		channel := config.CacheKey.LeaderboardChannel(code)
		if err := w.rdb.Publish(ctx, channel, summary).Err(); err != nil {
			w.log.Error().Err(err).Str("code", code).Msg("publish summary failed")
		}
	}
}
