// Package sampling selects a deterministic per-participant subset of a
// question bank. The same participant against the same test and session
// always receives the identical subset and ordering; the seed includes
// the session version so every re-activation deals a fresh shuffle.
package sampling

import (
	"math/rand/v2"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/xushnid/supertest-backend/internal/model"
)

// Seed derives a stable 64-bit seed from the sampling identity. It
// never involves wall-clock time, so repeated fetches mid-session are
// stable.
func Seed(participantID, testCode string, sessionVersion int) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(participantID)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(testCode)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.Itoa(sessionVersion))
	return d.Sum64()
}

// Sample returns count questions for the participant. When count is
// non-positive or covers the whole bank, the full bank is returned in
// original order. Otherwise the bank is shuffled under the derived seed
// and the first count questions are taken, so the result is a sub-order
// of a permutation rather than a filter of the original order.
func Sample(questions []model.Question, participantID, testCode string, sessionVersion, count int) []model.Question {
	if count <= 0 || count >= len(questions) {
		out := make([]model.Question, len(questions))
		copy(out, questions)
		return out
	}

	seed := Seed(participantID, testCode, sessionVersion)
	rng := rand.New(rand.NewPCG(seed, seed))

	perm := rng.Perm(len(questions))
	out := make([]model.Question, 0, count)
	for _, idx := range perm[:count] {
		out = append(out, questions[idx])
	}
	return out
}
