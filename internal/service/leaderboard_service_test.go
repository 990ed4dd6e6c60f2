package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/notify"
)

type leaderboardFixture struct {
	test     *model.Test
	tests    *fakeTestStore
	results  *fakeResultStore
	notifier *fakeNotifier
	svc      *LeaderboardService
}

func newLeaderboardFixture(t *testing.T) *leaderboardFixture {
	t.Helper()

	owner := &model.Operator{ID: uuid.New(), Email: "owner@example.com", Name: "Owner", ChatID: "chat-1"}
	windowEnd := time.Now().Add(10 * time.Minute)
	test := &model.Test{
		ID:             uuid.New(),
		OwnerID:        owner.ID,
		Name:           "Biology",
		Code:           "31337",
		Questions:      makeBank(4),
		Active:         true,
		SessionVersion: 3,
		WindowEnd:      &windowEnd,
	}

	f := &leaderboardFixture{
		test:     test,
		tests:    newFakeTestStore(test),
		results:  newFakeResultStore(),
		notifier: &fakeNotifier{},
	}
	f.svc = NewLeaderboardService(f.tests, f.results, newFakeOperatorStore(owner), f.notifier, zerolog.Nop())
	return f
}

func (f *leaderboardFixture) record(t *testing.T, participantID, fullName string, score, total, sessionVersion int) {
	t.Helper()
	err := f.results.Upsert(context.Background(), &model.Result{
		TestCode:       f.test.Code,
		ParticipantID:  participantID,
		SessionVersion: sessionVersion,
		Score:          &score,
		Total:          &total,
		FullName:       fullName,
	})
	if err != nil {
		t.Fatalf("record result: %v", err)
	}
}

func TestRefreshRanksByScoreThenSubmissionOrder(t *testing.T) {
	f := newLeaderboardFixture(t)
	f.record(t, "p1", "Alice", 2, 4, 3)
	f.record(t, "p2", "Bob", 4, 4, 3)
	f.record(t, "p3", "Carol", 2, 4, 3) // same score as Alice, submitted later

	summary, err := f.svc.Refresh(context.Background(), "31337")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	want := "Leaderboard: Biology (31337)\n1. Bob: 4/4\n2. Alice: 2/4\n3. Carol: 2/4"
	if summary != want {
		t.Errorf("summary = %q, want %q", summary, want)
	}
}

func TestRefreshIgnoresOtherSessionsAndUnscoredRows(t *testing.T) {
	f := newLeaderboardFixture(t)
	f.record(t, "old", "Old Session", 4, 4, 2)
	if err := f.results.EnsurePlaceholder(context.Background(), f.test.Code, "pending", 3); err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	f.record(t, "p1", "Alice", 1, 4, 3)

	summary, err := f.svc.Refresh(context.Background(), "31337")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if strings.Contains(summary, "Old Session") || strings.Contains(summary, "pending") {
		t.Errorf("summary leaked stale or unscored rows: %q", summary)
	}
	if !strings.Contains(summary, "1. Alice: 1/4") {
		t.Errorf("summary missing current row: %q", summary)
	}
}

func TestRefreshEmptyBoard(t *testing.T) {
	f := newLeaderboardFixture(t)

	summary, err := f.svc.Refresh(context.Background(), "31337")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if summary != "Leaderboard: Biology (31337)\nNo submissions yet." {
		t.Errorf("summary = %q", summary)
	}
}

func TestRefreshUnknownTest(t *testing.T) {
	f := newLeaderboardFixture(t)
	if _, err := f.svc.Refresh(context.Background(), "00000"); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("err = %v, want ErrTestNotFound", err)
	}
}

func TestDeliverCreatesThenUpdatesSingleMessage(t *testing.T) {
	f := newLeaderboardFixture(t)
	ctx := context.Background()
	f.record(t, "p1", "Alice", 3, 4, 3)

	// First refresh has no handle yet, so it sends a fresh message and
	// stores the handle.
	if _, err := f.svc.Refresh(ctx, "31337"); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if f.notifier.sendCount() != 1 || f.notifier.updateCount() != 0 {
		t.Fatalf("after first refresh: sends=%d updates=%d, want 1/0",
			f.notifier.sendCount(), f.notifier.updateCount())
	}
	stored, err := f.tests.GetByCode(ctx, "31337")
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if stored.SummaryHandle == nil {
		t.Fatal("summary handle not stored after first send")
	}

	// Later refreshes edit the same message in place.
	if _, err := f.svc.Refresh(ctx, "31337"); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	if f.notifier.sendCount() != 1 || f.notifier.updateCount() != 1 {
		t.Errorf("after second refresh: sends=%d updates=%d, want 1/1",
			f.notifier.sendCount(), f.notifier.updateCount())
	}
}

func TestDeliverRecreatesMessageWhenHandleGone(t *testing.T) {
	f := newLeaderboardFixture(t)
	ctx := context.Background()

	handle := "vanished"
	if err := f.tests.SetSummaryHandle(ctx, "31337", &handle); err != nil {
		t.Fatalf("seed handle: %v", err)
	}
	f.notifier.updateErr = notify.ErrHandleGone

	if _, err := f.svc.Refresh(ctx, "31337"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if f.notifier.sendCount() != 1 {
		t.Errorf("sends = %d, want 1 (fallback send)", f.notifier.sendCount())
	}
	stored, err := f.tests.GetByCode(ctx, "31337")
	if err != nil {
		t.Fatalf("get test: %v", err)
	}
	if stored.SummaryHandle == nil || *stored.SummaryHandle == "vanished" {
		t.Error("stale handle not replaced after fallback send")
	}
}

func TestDeliverFailuresDoNotFailRefresh(t *testing.T) {
	f := newLeaderboardFixture(t)
	ctx := context.Background()

	handle := "h1"
	if err := f.tests.SetSummaryHandle(ctx, "31337", &handle); err != nil {
		t.Fatalf("seed handle: %v", err)
	}
	f.notifier.updateErr = errors.New("network down")

	summary, err := f.svc.Refresh(ctx, "31337")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if summary == "" {
		t.Error("summary empty despite delivery failure")
	}
	if f.notifier.sendCount() != 0 {
		t.Errorf("sends = %d, want 0 (transient failures are not retried)", f.notifier.sendCount())
	}
}

func TestRenderSummaryFallsBackToParticipantID(t *testing.T) {
	f := newLeaderboardFixture(t)
	f.record(t, "anon-7", "", 2, 4, 3)

	summary, err := f.svc.Refresh(context.Background(), "31337")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !strings.Contains(summary, "1. anon-7: 2/4") {
		t.Errorf("summary = %q, want participant id fallback", summary)
	}
}
