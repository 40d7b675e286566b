package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/bishopmatthew/messagecenter/payload"
)

// errStoreFull is a test sentinel for a failing store write.
var errStoreFull = errors.New("store full")

// mockQueue implements Queue for testing.
type mockQueue struct {
	mu       sync.Mutex
	messages []Message
	payloads []payload.Payload
	nextID   int64
	err      error
}

func (q *mockQueue) QueueMessage(_ context.Context, msg *Message, p payload.Payload) (payload.Payload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return payload.Payload{}, q.err
	}
	q.nextID++
	msg.ID = q.nextID
	p.ID = q.nextID
	q.messages = append(q.messages, msg.Clone())
	q.payloads = append(q.payloads, p)
	return p, nil
}

func (q *mockQueue) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

func (q *mockQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// mockSubmitter implements Submitter for testing.
type mockSubmitter struct {
	mu        sync.Mutex
	submitted []payload.Payload
}

func (s *mockSubmitter) SubmitPayload(p payload.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, p)
}

// failingMaterializer always fails.
type failingMaterializer struct {
	err error
}

func (f failingMaterializer) Materialize(context.Context, string) (Attachment, bool, error) {
	return Attachment{}, false, f.err
}
