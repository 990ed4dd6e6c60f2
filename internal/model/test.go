package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus is the derived, read-time status of a test.
type TestStatus string

const (
	// TestStatusClosed means the test is not accepting submissions.
	TestStatusClosed TestStatus = "CLOSED"
	// TestStatusExpired means the test is still flagged active but its
	// window has elapsed. Treated like CLOSED for admission, shown
	// distinctly to the operator.
	TestStatusExpired TestStatus = "EXPIRED"
	// TestStatusOpen means the test accepts fetches and submissions.
	TestStatusOpen TestStatus = "OPEN"
)

// Test is an operator-owned quiz definition: question bank, access code
// and activation state. All state transitions write the full row, so
// concurrent readers observe either the pre- or post-transition test.
type Test struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	Questions      []Question `json:"questions,omitempty"`
	Active         bool       `json:"active"`
	SessionVersion int        `json:"session_version"`
	WindowEnd      *time.Time `json:"window_end,omitempty"`
	SampleSize     int        `json:"sample_size"`
	SummaryHandle  *string    `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Status derives the admission status at the given instant. Expiry is
// computed on read; no background job flips the active flag.
func (t *Test) Status(now time.Time) TestStatus {
	if !t.Active {
		return TestStatusClosed
	}
	if t.WindowEnd != nil && now.After(*t.WindowEnd) {
		return TestStatusExpired
	}
	return TestStatusOpen
}

// RemainingSeconds reports how long the current window stays open.
// Zero when the test is closed or expired.
func (t *Test) RemainingSeconds(now time.Time) int {
	if t.Status(now) != TestStatusOpen || t.WindowEnd == nil {
		return 0
	}
	return int(t.WindowEnd.Sub(now).Seconds())
}

// CreateTestRequest is the payload for creating a new test.
type CreateTestRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// UploadBankRequest is the payload for uploading a raw question bank.
type UploadBankRequest struct {
	RawText string `json:"raw_text" binding:"required,min=1"`
}

// ActivateTestRequest is the payload for opening a submission window.
type ActivateTestRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"required,min=1,max=480"`
	SampleSize      int `json:"sample_size" binding:"min=0"`
}
