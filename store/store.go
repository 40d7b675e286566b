package store

import (
	"context"
	"errors"

	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/payload"
)

// Flag keys persisted by the session controller.
const (
	// FlagFirstContactShown is set once the user has sent from the
	// first-contact dialog.
	FlagFirstContactShown = "message_center_should_not_show_intro_dialog"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistent store shared by the sink, the reconciler, the
// poller and the transport. All mutations are serialized; reads return
// copies that callers may keep.
type Store interface {
	// LoadAllMessages returns every message ordered by creation time, then ID.
	LoadAllMessages(ctx context.Context) ([]messaging.Message, error)
	// SaveMessage inserts msg, or updates it when msg.ID is set.
	SaveMessage(ctx context.Context, msg *messaging.Message) error
	// QueueMessage inserts msg and its payload atomically.
	QueueMessage(ctx context.Context, msg *messaging.Message, p payload.Payload) (payload.Payload, error)
	// MergeMessages inserts fetched messages whose nonce is unknown and
	// returns how many were added.
	MergeMessages(ctx context.Context, msgs []messaging.Message) (int, error)
	// SetMessageState updates the delivery state of the message with nonce.
	SetMessageState(ctx context.Context, nonce string, state messaging.State) error
	// MarkRead marks the given messages read.
	MarkRead(ctx context.Context, ids ...int64) error
	// UnreadCount returns the number of unread messages.
	UnreadCount(ctx context.Context) (int, error)

	// EnqueuePayload persists p and returns it with its ID set.
	EnqueuePayload(ctx context.Context, p payload.Payload) (payload.Payload, error)
	// PendingPayloads returns up to limit queued payloads, oldest first.
	// A non-positive limit returns all of them.
	PendingPayloads(ctx context.Context, limit int) ([]payload.Payload, error)
	// DeletePayload removes a delivered payload.
	DeletePayload(ctx context.Context, id int64) error

	LoadIdentity(ctx context.Context) (identity.Identity, error)
	SaveIdentity(ctx context.Context, id identity.Identity) error

	// LoadFlag returns false for a flag that was never saved.
	LoadFlag(ctx context.Context, key string) (bool, error)
	SaveFlag(ctx context.Context, key string, value bool) error

	Close() error
}

// Compile-time checks that the stores satisfy the collaborator interfaces.
var (
	_ Store           = (*Memory)(nil)
	_ Store           = (*SQLite)(nil)
	_ messaging.Queue = Store(nil)
	_ identity.Store  = Store(nil)
)
