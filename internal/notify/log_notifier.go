package notify

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogNotifier is the default sink: it writes every delivery to the log
// and keeps handles in memory so Update behaves like a real chat
// surface, including ErrHandleGone after a restart.
type LogNotifier struct {
	log     zerolog.Logger
	mu      sync.Mutex
	handles map[Handle]bool
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{
		log:     log.With().Str("component", "log_notifier").Logger(),
		handles: make(map[Handle]bool),
	}
}

// Send logs the message and returns a fresh handle.
func (n *LogNotifier) Send(_ context.Context, recipient, text string) (Handle, error) {
	h := Handle(uuid.New().String())

	n.mu.Lock()
	n.handles[h] = true
	n.mu.Unlock()

	n.log.Info().
		Str("recipient", recipient).
		Str("handle", string(h)).
		Str("text", text).
		Msg("message sent")
	return h, nil
}

// Update logs the edit or reports ErrHandleGone for unknown handles.
func (n *LogNotifier) Update(_ context.Context, recipient string, handle Handle, text string) error {
	n.mu.Lock()
	known := n.handles[handle]
	n.mu.Unlock()

	if !known {
		return ErrHandleGone
	}

	n.log.Info().
		Str("recipient", recipient).
		Str("handle", string(handle)).
		Str("text", text).
		Msg("message updated")
	return nil
}
