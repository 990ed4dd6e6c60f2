package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/notify"
)

// fakeTestStore mimics the repository semantics: pgx.ErrNoRows for
// missing rows, guarded single-row transitions for activate and
// deactivate.
type fakeTestStore struct {
	mu    sync.Mutex
	tests map[uuid.UUID]*model.Test
}

func newFakeTestStore(tests ...*model.Test) *fakeTestStore {
	s := &fakeTestStore{tests: make(map[uuid.UUID]*model.Test)}
	for _, t := range tests {
		s.tests[t.ID] = t
	}
	return s
}

func copyTest(t *model.Test) *model.Test {
	cp := *t
	cp.Questions = append([]model.Question(nil), t.Questions...)
	return &cp
}

func (s *fakeTestStore) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyTest(t), nil
}

func (s *fakeTestStore) GetByCode(_ context.Context, code string) (*model.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tests {
		if t.Code == code {
			return copyTest(t), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeTestStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]model.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Test
	for _, t := range s.tests {
		if t.OwnerID == ownerID {
			out = append(out, *copyTest(t))
		}
	}
	return out, nil
}

func (s *fakeTestStore) Create(_ context.Context, t *model.Test) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.New()
	t.SessionVersion = 1
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.tests[t.ID] = copyTest(t)
	return nil
}

func (s *fakeTestStore) ReplaceBank(_ context.Context, id uuid.UUID, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.Questions = append([]model.Question(nil), questions...)
	return nil
}

func (s *fakeTestStore) Activate(_ context.Context, id uuid.UUID, windowEnd time.Time, sampleSize int) (*model.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[id]
	if !ok || t.Active {
		return nil, pgx.ErrNoRows
	}
	t.Active = true
	t.WindowEnd = &windowEnd
	t.SampleSize = sampleSize
	t.SessionVersion++
	t.SummaryHandle = nil
	return copyTest(t), nil
}

func (s *fakeTestStore) Deactivate(_ context.Context, id uuid.UUID) (*model.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[id]
	if !ok || !t.Active {
		return nil, pgx.ErrNoRows
	}
	t.Active = false
	t.WindowEnd = nil
	return copyTest(t), nil
}

func (s *fakeTestStore) SetSummaryHandle(_ context.Context, code string, handle *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tests {
		if t.Code == code {
			t.SummaryHandle = handle
			return nil
		}
	}
	return nil
}

func (s *fakeTestStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tests[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tests, id)
	return nil
}

// fakeResultStore mimics the upsert ledger keyed by
// (test_code, participant_id).
type fakeResultStore struct {
	mu      sync.Mutex
	results map[[2]string]*model.Result
	clock   time.Time
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{
		results: make(map[[2]string]*model.Result),
		clock:   time.Now(),
	}
}

// tick returns strictly increasing timestamps so tie-breaking by
// created_at is deterministic in tests.
func (s *fakeResultStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *fakeResultStore) GetByTestAndParticipant(_ context.Context, testCode, participantID string) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[[2]string{testCode, participantID}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (s *fakeResultStore) EnsurePlaceholder(_ context.Context, testCode, participantID string, sessionVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{testCode, participantID}
	if _, ok := s.results[key]; ok {
		return nil
	}
	now := s.tick()
	s.results[key] = &model.Result{
		TestCode:       testCode,
		ParticipantID:  participantID,
		SessionVersion: sessionVersion,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (s *fakeResultStore) Upsert(_ context.Context, res *model.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{res.TestCode, res.ParticipantID}
	now := s.tick()
	if existing, ok := s.results[key]; ok {
		res.CreatedAt = existing.CreatedAt
	} else {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	cp := *res
	s.results[key] = &cp
	return nil
}

func (s *fakeResultStore) ListScored(_ context.Context, testCode string, sessionVersion int) ([]model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Result
	for _, r := range s.results {
		if r.TestCode == testCode && r.SessionVersion == sessionVersion && r.Score != nil {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if *out[i].Score != *out[j].Score {
			return *out[i].Score > *out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *fakeResultStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// fakeOperatorStore holds operator accounts in memory.
type fakeOperatorStore struct {
	operators map[uuid.UUID]*model.Operator
}

func newFakeOperatorStore(ops ...*model.Operator) *fakeOperatorStore {
	s := &fakeOperatorStore{operators: make(map[uuid.UUID]*model.Operator)}
	for _, op := range ops {
		s.operators[op.ID] = op
	}
	return s
}

func (s *fakeOperatorStore) GetByEmail(_ context.Context, email string) (*model.Operator, error) {
	for _, op := range s.operators {
		if op.Email == email {
			cp := *op
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeOperatorStore) GetByID(_ context.Context, id uuid.UUID) (*model.Operator, error) {
	op, ok := s.operators[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *op
	return &cp, nil
}

// fakeNotifier records deliveries and can simulate a vanished handle.
type fakeNotifier struct {
	mu        sync.Mutex
	sends     []string
	updates   []string
	updateErr error
}

func (n *fakeNotifier) Send(_ context.Context, _ string, text string) (notify.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, text)
	return notify.Handle(uuid.New().String()), nil
}

func (n *fakeNotifier) Update(_ context.Context, _ string, _ notify.Handle, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.updateErr != nil {
		return n.updateErr
	}
	n.updates = append(n.updates, text)
	return nil
}

func (n *fakeNotifier) sendCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

func (n *fakeNotifier) updateCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

// makeBank builds a bank of n distinct questions.
func makeBank(n int) []model.Question {
	bank := make([]model.Question, n)
	for i := range bank {
		bank[i] = model.Question{
			Text:         string(rune('A'+i)) + "?",
			Answers:      []string{"yes", "no"},
			CorrectIndex: 0,
		}
	}
	return bank
}
