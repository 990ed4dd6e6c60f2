package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/xushnid/supertest-backend/internal/model"
	"github.com/xushnid/supertest-backend/internal/repository"
)

// collidingTestStore rejects the first n creates with the unique
// constraint error, simulating code collisions.
type collidingTestStore struct {
	*fakeTestStore
	rejections int
	attempts   int
}

func (s *collidingTestStore) Create(ctx context.Context, t *model.Test) error {
	s.attempts++
	if s.attempts <= s.rejections {
		return repository.ErrCodeTaken
	}
	return s.fakeTestStore.Create(ctx, t)
}

func TestCreateAllocatesFiveDigitCode(t *testing.T) {
	store := newFakeTestStore()
	svc := NewTestService(store, zerolog.Nop())
	ownerID := uuid.New()

	created, err := svc.Create(context.Background(), ownerID, "Geography")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !regexp.MustCompile(`^\d{5}$`).MatchString(created.Code) {
		t.Errorf("code = %q, want five digits", created.Code)
	}
	if created.OwnerID != ownerID || created.Name != "Geography" {
		t.Errorf("created = %+v", created)
	}
	if created.SessionVersion != 1 {
		t.Errorf("session version = %d, want 1", created.SessionVersion)
	}
	if created.Active {
		t.Error("new test must start closed")
	}
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	store := &collidingTestStore{fakeTestStore: newFakeTestStore(), rejections: 3}
	svc := NewTestService(store, zerolog.Nop())

	created, err := svc.Create(context.Background(), uuid.New(), "Geography")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Code == "" {
		t.Error("no code allocated")
	}
	if store.attempts != 4 {
		t.Errorf("attempts = %d, want 4 (3 collisions then success)", store.attempts)
	}
}

func TestCreateGivesUpWhenCodesExhausted(t *testing.T) {
	store := &collidingTestStore{fakeTestStore: newFakeTestStore(), rejections: codeAttempts + 1}
	svc := NewTestService(store, zerolog.Nop())

	if _, err := svc.Create(context.Background(), uuid.New(), "Geography"); !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("err = %v, want ErrCodeExhausted", err)
	}
}

func TestUploadBankReportsStats(t *testing.T) {
	ownerID := uuid.New()
	test := &model.Test{ID: uuid.New(), OwnerID: ownerID, Name: "Math", Code: "11111"}
	svc := NewTestService(newFakeTestStore(test), zerolog.Nop())

	raw := "2+2?\n====\n#4\n====\n5\n+++++\nbroken block, no answers"
	stats, err := svc.UploadBank(context.Background(), test.ID, ownerID, raw)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if stats.Parsed != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want Parsed=1 Skipped=1", stats)
	}

	got, err := svc.Get(context.Background(), test.ID, ownerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Questions) != 1 || got.Questions[0].Text != "2+2?" {
		t.Errorf("bank = %+v", got.Questions)
	}
}

func TestUploadBankRejectsFullyMalformedInput(t *testing.T) {
	ownerID := uuid.New()
	test := &model.Test{ID: uuid.New(), OwnerID: ownerID, Name: "Math", Code: "11111", Questions: makeBank(2)}
	svc := NewTestService(newFakeTestStore(test), zerolog.Nop())

	stats, err := svc.UploadBank(context.Background(), test.ID, ownerID, "nothing parses here")
	if !errors.Is(err, ErrEmptyBank) {
		t.Fatalf("err = %v, want ErrEmptyBank", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("stats = %+v, want the rejected block counted", stats)
	}

	// The previous bank survives a failed upload.
	got, err := svc.Get(context.Background(), test.ID, ownerID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Questions) != 2 {
		t.Errorf("bank replaced despite rejection: %d questions", len(got.Questions))
	}
}

func TestOwnershipGuards(t *testing.T) {
	ownerID := uuid.New()
	test := &model.Test{ID: uuid.New(), OwnerID: ownerID, Name: "Math", Code: "11111", Questions: makeBank(2)}
	svc := NewTestService(newFakeTestStore(test), zerolog.Nop())
	ctx := context.Background()
	stranger := uuid.New()

	if _, err := svc.Get(ctx, test.ID, stranger); !errors.Is(err, ErrNotOwner) {
		t.Errorf("get by stranger: err = %v, want ErrNotOwner", err)
	}
	if _, err := svc.UploadBank(ctx, test.ID, stranger, "x"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("upload by stranger: err = %v, want ErrNotOwner", err)
	}
	if err := svc.Delete(ctx, test.ID, stranger); !errors.Is(err, ErrNotOwner) {
		t.Errorf("delete by stranger: err = %v, want ErrNotOwner", err)
	}
	if _, err := svc.Get(ctx, uuid.New(), ownerID); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("get missing: err = %v, want ErrTestNotFound", err)
	}
}

func TestExportBankRendersCanonicalForm(t *testing.T) {
	ownerID := uuid.New()
	test := &model.Test{
		ID: uuid.New(), OwnerID: ownerID, Name: "Math", Code: "11111",
		Questions: []model.Question{
			{Text: "2+2?", Answers: []string{"4", "5"}, CorrectIndex: 0},
		},
	}
	svc := NewTestService(newFakeTestStore(test), zerolog.Nop())

	out, err := svc.ExportBank(context.Background(), test.ID, ownerID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != "2+2?\n====\n#4\n====\n5" {
		t.Errorf("export = %q", out)
	}

	empty := &model.Test{ID: uuid.New(), OwnerID: ownerID, Name: "Blank", Code: "22222"}
	svc = NewTestService(newFakeTestStore(empty), zerolog.Nop())
	if _, err := svc.ExportBank(context.Background(), empty.ID, ownerID); !errors.Is(err, ErrEmptyBank) {
		t.Errorf("export empty: err = %v, want ErrEmptyBank", err)
	}
}

func TestDeleteRemovesTest(t *testing.T) {
	ownerID := uuid.New()
	test := &model.Test{ID: uuid.New(), OwnerID: ownerID, Name: "Math", Code: "11111"}
	svc := NewTestService(newFakeTestStore(test), zerolog.Nop())
	ctx := context.Background()

	if err := svc.Delete(ctx, test.ID, ownerID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, test.ID, ownerID); !errors.Is(err, ErrTestNotFound) {
		t.Errorf("get after delete: err = %v, want ErrTestNotFound", err)
	}
}
