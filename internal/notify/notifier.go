// Package notify abstracts the message delivery collaborator. The
// engine only needs two capabilities: send a message and get a handle
// back, or update a previously sent message in place.
package notify

import (
	"context"
	"errors"
)

// Handle identifies a previously delivered message so it can be
// updated in place.
type Handle string

// ErrHandleGone is returned by Update when the target message no longer
// exists on the delivery side. The caller is expected to fall back to
// Send and store the fresh handle.
var ErrHandleGone = errors.New("notify: message handle no longer exists")

// Notifier delivers messages to a recipient. Implementations live at
// the boundary (chat bot, webhook); delivery failure is surfaced as an
// explicit error, never swallowed, but callers may treat it as
// fire-and-forget.
type Notifier interface {
	Send(ctx context.Context, recipient, text string) (Handle, error)
	Update(ctx context.Context, recipient string, handle Handle, text string) error
}
