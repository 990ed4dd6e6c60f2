package model

// Question is a single multiple-choice question inside a test's bank.
// Questions are embedded in the owning test and are immutable once parsed.
type Question struct {
	Text         string   `json:"q"`
	Answers      []string `json:"a"`
	CorrectIndex int      `json:"c"`
}
