package model

import "time"

// Result is the single current submission record for a participant
// against a test, keyed by (test_code, participant_id). A result whose
// SessionVersion is behind the test's current version is stale and does
// not block resubmission.
type Result struct {
	TestCode       string    `json:"test_code"`
	ParticipantID  string    `json:"participant_id"`
	SessionVersion int       `json:"session_version"`
	Score          *int      `json:"score,omitempty"`
	Total          *int      `json:"total,omitempty"`
	FullName       string    `json:"full_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Scored reports whether this result carries a recorded score.
func (r *Result) Scored() bool {
	return r.Score != nil
}

// SubmitResultRequest is the payload for recording a submission.
type SubmitResultRequest struct {
	TestCode      string `json:"test_code" binding:"required,len=5,numeric"`
	ParticipantID string `json:"participant_id" binding:"required,max=64"`
	FullName      string `json:"full_name" binding:"required,min=1,max=255"`
	Score         int    `json:"score" binding:"min=0"`
	Total         int    `json:"total" binding:"required,min=1"`
}
