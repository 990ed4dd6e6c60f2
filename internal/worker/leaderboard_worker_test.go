package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/config"
)

// fakeRefresher records refresh calls per test code.
type fakeRefresher struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{calls: make(map[string]int)}
}

func (r *fakeRefresher) Refresh(_ context.Context, testCode string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[testCode]++
	if r.err != nil {
		return "", r.err
	}
	return "summary for " + testCode, nil
}

func (r *fakeRefresher) callCount(testCode string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[testCode]
}

func newWorkerFixture(t *testing.T) (*miniredis.Miniredis, *redis.Client, *fakeRefresher) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb, newFakeRefresher()
}

func TestFlushCollapsesDuplicateCodes(t *testing.T) {
	_, rdb, refresher := newWorkerFixture(t)
	w := NewLeaderboardWorker(rdb, refresher, 50*time.Millisecond, zerolog.Nop())

	sub := rdb.Subscribe(context.Background(), config.CacheKey.LeaderboardChannel("12345"))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	w.flush(context.Background(), map[string]struct{}{"12345": {}})

	if refresher.callCount("12345") != 1 {
		t.Errorf("refresh calls = %d, want 1", refresher.callCount("12345"))
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != "summary for 12345" {
			t.Errorf("published payload = %q", msg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no summary published")
	}
}

func TestFlushContinuesPastRefreshFailure(t *testing.T) {
	_, rdb, refresher := newWorkerFixture(t)
	refresher.err = errors.New("database down")
	w := NewLeaderboardWorker(rdb, refresher, 50*time.Millisecond, zerolog.Nop())

	w.flush(context.Background(), map[string]struct{}{"11111": {}, "22222": {}})

	if refresher.callCount("11111") != 1 || refresher.callCount("22222") != 1 {
		t.Error("a failing refresh stopped the flush loop")
	}
}

func TestWorkerDrainsQueueAndDebounces(t *testing.T) {
	mr, rdb, refresher := newWorkerFixture(t)
	w := NewLeaderboardWorker(rdb, refresher, 30*time.Millisecond, zerolog.Nop())

	// A burst of submissions for the same test.
	for i := 0; i < 5; i++ {
		if err := rdb.RPush(context.Background(), config.WorkerKey.LeaderboardRefreshQueue, "54321").Err(); err != nil {
			t.Fatalf("rpush: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(3 * time.Second)
	for refresher.callCount("54321") == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never refreshed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	// The whole burst collapsed into at most the flush on the window
	// boundary plus the flush on shutdown.
	if n := refresher.callCount("54321"); n > 2 {
		t.Errorf("refresh calls = %d for a single burst, want at most 2", n)
	}
	if got, _ := mr.List(config.WorkerKey.LeaderboardRefreshQueue); len(got) != 0 {
		t.Errorf("queue not drained: %v", got)
	}
}

func TestWorkerFlushesPendingOnShutdown(t *testing.T) {
	_, rdb, refresher := newWorkerFixture(t)
	// Long debounce so the only flush can come from shutdown.
	w := NewLeaderboardWorker(rdb, refresher, time.Hour, zerolog.Nop())

	if err := rdb.RPush(context.Background(), config.WorkerKey.LeaderboardRefreshQueue, "54321").Err(); err != nil {
		t.Fatalf("rpush: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// Give the worker time to pop the code into its pending set.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	if refresher.callCount("54321") != 1 {
		t.Errorf("refresh calls = %d, want exactly the shutdown flush", refresher.callCount("54321"))
	}
}
