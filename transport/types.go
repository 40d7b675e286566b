package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/bishopmatthew/messagecenter/payload"
)

// Transport is the remote side of a Message Center session.
// Implementations must eventually return from every call.
type Transport interface {
	// FetchNewMessages pulls new messages from the backend and merges them
	// into the local store.
	FetchNewMessages(ctx context.Context) error

	// SubmitPayload hands a queued payload to the delivery pipeline.
	// It is fire-and-forget; delivery failures leave the payload queued.
	SubmitPayload(p payload.Payload)
}

// ErrBackendUnavailable is reported when the backend cannot be reached.
var ErrBackendUnavailable = errors.New("backend unavailable")

// Error reports a network or backend failure. The poll loop absorbs these
// and retries on its next tick.
type Error struct {
	Op  string // "fetch", "submit"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport error [%s]: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
