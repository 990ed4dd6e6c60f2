// Package parser turns raw delimited question text into structured
// question records. Question blocks are separated by "+++++", fields
// inside a block by "====": the first field is the question text, the
// rest are answers, and the correct answer is prefixed with "#".
package parser

import (
	"strings"

	"github.com/xushnid/supertest-backend/internal/model"
)

const (
	// BlockSeparator splits the raw text into question blocks.
	BlockSeparator = "+++++"
	// FieldSeparator splits a block into question text and answers.
	FieldSeparator = "===="
	// CorrectMarker prefixes the correct answer inside a block.
	CorrectMarker = "#"
)

// Stats summarizes a parse run for operator feedback.
type Stats struct {
	Parsed  int
	Skipped int
}

// Parse converts raw bank text into questions. It never fails: a
// malformed block is skipped and counted, never propagated as an error.
// Block order is preserved as question order.
func Parse(raw string) ([]model.Question, Stats) {
	var stats Stats

	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	blocks := strings.Split(normalized, BlockSeparator)

	questions := make([]model.Question, 0, len(blocks))
	for _, block := range blocks {
		if strings.TrimSpace(block) == "" {
			continue
		}
		q, ok := parseBlock(block)
		if !ok {
			stats.Skipped++
			continue
		}
		questions = append(questions, q)
		stats.Parsed++
	}
	return questions, stats
}

// parseBlock parses a single candidate block. A block is retained only
// if its question text is non-empty, at least one answer survives
// trimming, and at least one correctness marker was seen. When the
// source marks several answers, the last marked answer wins.
func parseBlock(block string) (model.Question, bool) {
	segments := strings.Split(block, FieldSeparator)
	if len(segments) < 2 {
		return model.Question{}, false
	}

	text := strings.TrimSpace(segments[0])
	if text == "" {
		return model.Question{}, false
	}

	answers := make([]string, 0, len(segments)-1)
	correct := -1
	for _, seg := range segments[1:] {
		answer := strings.TrimSpace(seg)
		if answer == "" {
			// Empty segments do not consume an answer position.
			continue
		}
		if strings.HasPrefix(answer, CorrectMarker) {
			answer = strings.TrimSpace(strings.TrimPrefix(answer, CorrectMarker))
			if answer == "" {
				continue
			}
			correct = len(answers)
		}
		answers = append(answers, answer)
	}

	if len(answers) == 0 || correct < 0 {
		return model.Question{}, false
	}

	return model.Question{Text: text, Answers: answers, CorrectIndex: correct}, true
}

// Render emits the canonical source form of a question bank. Parsing
// the rendered text reproduces the same questions, which is what the
// bank export relies on.
func Render(questions []model.Question) string {
	var b strings.Builder
	for i, q := range questions {
		if i > 0 {
			b.WriteString("\n" + BlockSeparator + "\n")
		}
		b.WriteString(q.Text)
		for j, a := range q.Answers {
			b.WriteString("\n" + FieldSeparator + "\n")
			if j == q.CorrectIndex {
				b.WriteString(CorrectMarker)
			}
			b.WriteString(a)
		}
	}
	return b.String()
}
