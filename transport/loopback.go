package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/payload"
)

// Store is the subset of the local store the loopback backend drives.
type Store interface {
	MergeMessages(ctx context.Context, msgs []messaging.Message) (int, error)
	SetMessageState(ctx context.Context, nonce string, state messaging.State) error
	PendingPayloads(ctx context.Context, limit int) ([]payload.Payload, error)
	DeletePayload(ctx context.Context, id int64) error
}

// Loopback is an in-process backend. It acknowledges submitted payloads
// synchronously and serves scripted remote replies on fetch. The full reply
// history is returned by every fetch, as a backend without a cursor would,
// so the store's nonce de-duplication decides what is new.
type Loopback struct {
	store Store

	mu         sync.Mutex
	replies    []messaging.Message
	received   []payload.Payload
	autoReply  string
	failFetch  int
	failSubmit int
	fetches    int
}

var _ Transport = (*Loopback)(nil)

// NewLoopback creates a loopback backend acknowledging into st.
func NewLoopback(st Store) *Loopback {
	return &Loopback{store: st}
}

// SetAutoReply makes the backend answer every delivered message with text.
// An empty text disables auto replies.
func (l *Loopback) SetAutoReply(text string) {
	l.mu.Lock()
	l.autoReply = text
	l.mu.Unlock()
}

// QueueReply scripts a remote message served by subsequent fetches and
// returns its nonce. An empty nonce is replaced by a generated one.
func (l *Loopback) QueueReply(nonce, body string) string {
	if nonce == "" {
		nonce = uuid.NewString()
	}
	l.mu.Lock()
	l.replies = append(l.replies, *messaging.NewRemoteMessage(nonce, body, time.Now()))
	l.mu.Unlock()
	return nonce
}

// FailFetches makes the next n fetches return ErrBackendUnavailable.
func (l *Loopback) FailFetches(n int) {
	l.mu.Lock()
	l.failFetch = n
	l.mu.Unlock()
}

// FailSubmits makes the next n submissions go unacknowledged, leaving their
// payloads queued.
func (l *Loopback) FailSubmits(n int) {
	l.mu.Lock()
	l.failSubmit = n
	l.mu.Unlock()
}

// Received returns the payloads acknowledged so far, in order.
func (l *Loopback) Received() []payload.Payload {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]payload.Payload, len(l.received))
	copy(out, l.received)
	return out
}

// Fetches returns how many fetches were attempted.
func (l *Loopback) Fetches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fetches
}

// FetchNewMessages merges the reply history into the store.
func (l *Loopback) FetchNewMessages(ctx context.Context) error {
	l.mu.Lock()
	l.fetches++
	if l.failFetch > 0 {
		l.failFetch--
		l.mu.Unlock()
		return &Error{Op: "fetch", Err: ErrBackendUnavailable}
	}
	batch := make([]messaging.Message, len(l.replies))
	copy(batch, l.replies)
	l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &Error{Op: "fetch", Err: err}
	}
	if len(batch) == 0 {
		return nil
	}

	added, err := l.store.MergeMessages(ctx, batch)
	if err != nil {
		return &Error{Op: "fetch", Err: fmt.Errorf("failed to merge fetched messages: %w", err)}
	}

	logrus.WithFields(logrus.Fields{
		"function": "FetchNewMessages",
		"served":   len(batch),
		"added":    added,
	}).Debug("Fetched messages from loopback backend")
	return nil
}

// SubmitPayload acknowledges p: a message payload marks its message sent and
// the payload is removed from the queue.
func (l *Loopback) SubmitPayload(p payload.Payload) {
	if err := l.deliver(context.Background(), p); err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "SubmitPayload",
			"payload_id": p.ID,
			"kind":       p.Kind.String(),
			"error":      err.Error(),
		}).Warn("Payload left queued for retry")
	}
}

// Flush resubmits every payload still queued in the store, typically left
// over from an earlier session. It returns how many were acknowledged.
func (l *Loopback) Flush(ctx context.Context) (int, error) {
	pending, err := l.store.PendingPayloads(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending payloads: %w", err)
	}

	delivered := 0
	for _, p := range pending {
		if err := l.deliver(ctx, p); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "Flush",
				"payload_id": p.ID,
				"error":      err.Error(),
			}).Warn("Payload left queued for retry")
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (l *Loopback) deliver(ctx context.Context, p payload.Payload) error {
	l.mu.Lock()
	if l.failSubmit > 0 {
		l.failSubmit--
		l.mu.Unlock()
		return &Error{Op: "submit", Err: ErrBackendUnavailable}
	}
	l.mu.Unlock()

	if p.Kind == payload.KindMessage {
		nonce, err := messaging.NonceFromPayload(p)
		if err != nil {
			return &Error{Op: "submit", Err: err}
		}
		if err := l.store.SetMessageState(ctx, nonce, messaging.StateSent); err != nil {
			return &Error{Op: "submit", Err: fmt.Errorf("failed to mark message %s sent: %w", nonce, err)}
		}
	}
	if err := l.store.DeletePayload(ctx, p.ID); err != nil {
		return &Error{Op: "submit", Err: fmt.Errorf("failed to dequeue payload %d: %w", p.ID, err)}
	}

	l.mu.Lock()
	l.received = append(l.received, p)
	reply := l.autoReply
	if reply != "" && p.Kind == payload.KindMessage {
		l.replies = append(l.replies, *messaging.NewRemoteMessage(uuid.NewString(), reply, time.Now()))
	}
	l.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function":   "deliver",
		"payload_id": p.ID,
		"kind":       p.Kind.String(),
	}).Debug("Payload acknowledged")
	return nil
}
