package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/payload"
)

// Memory is an in-process Store. It is not durable across restarts and is
// meant for tests and hosts that persist elsewhere.
type Memory struct {
	mu            sync.RWMutex
	messages      []messaging.Message
	nonces        map[string]int
	payloads      []payload.Payload
	identity      identity.Identity
	flags         map[string]bool
	nextMessageID int64
	nextPayloadID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		nonces:        make(map[string]int),
		flags:         make(map[string]bool),
		nextMessageID: 1,
		nextPayloadID: 1,
	}
}

// LoadAllMessages implements Store.
func (s *Memory) LoadAllMessages(ctx context.Context) ([]messaging.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]messaging.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	s.mu.RUnlock()

	sortMessages(out)
	return out, nil
}

// SaveMessage implements Store.
func (s *Memory) SaveMessage(ctx context.Context, msg *messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID != 0 {
		for i := range s.messages {
			if s.messages[i].ID == msg.ID {
				s.messages[i] = msg.Clone()
				return nil
			}
		}
		return fmt.Errorf("message %d: %w", msg.ID, ErrNotFound)
	}
	return s.insertLocked(msg)
}

// QueueMessage implements Store.
func (s *Memory) QueueMessage(ctx context.Context, msg *messaging.Message, p payload.Payload) (payload.Payload, error) {
	if err := ctx.Err(); err != nil {
		return payload.Payload{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertLocked(msg); err != nil {
		return payload.Payload{}, err
	}
	return s.enqueueLocked(p), nil
}

// MergeMessages implements Store.
func (s *Memory) MergeMessages(ctx context.Context, msgs []messaging.Message) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i := range msgs {
		if _, known := s.nonces[msgs[i].Nonce]; known {
			continue
		}
		m := msgs[i].Clone()
		m.ID = 0
		if err := s.insertLocked(&m); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// SetMessageState implements Store.
func (s *Memory) SetMessageState(ctx context.Context, nonce string, state messaging.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.nonces[nonce]
	if !ok {
		return fmt.Errorf("message %s: %w", nonce, ErrNotFound)
	}
	s.messages[idx].State = state
	return nil
}

// MarkRead implements Store.
func (s *Memory) MarkRead(ctx context.Context, ids ...int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if want[s.messages[i].ID] {
			s.messages[i].Read = true
		}
	}
	return nil
}

// UnreadCount implements Store.
func (s *Memory) UnreadCount(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return messaging.UnreadCount(s.messages), nil
}

// EnqueuePayload implements Store.
func (s *Memory) EnqueuePayload(ctx context.Context, p payload.Payload) (payload.Payload, error) {
	if err := ctx.Err(); err != nil {
		return payload.Payload{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(p), nil
}

// PendingPayloads implements Store.
func (s *Memory) PendingPayloads(ctx context.Context, limit int) ([]payload.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.payloads)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]payload.Payload, n)
	for i := 0; i < n; i++ {
		out[i] = clonePayload(s.payloads[i])
	}
	return out, nil
}

// DeletePayload implements Store.
func (s *Memory) DeletePayload(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.payloads {
		if p.ID == id {
			s.payloads = append(s.payloads[:i], s.payloads[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("payload %d: %w", id, ErrNotFound)
}

// LoadIdentity implements Store.
func (s *Memory) LoadIdentity(ctx context.Context) (identity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return identity.Identity{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, nil
}

// SaveIdentity implements Store.
func (s *Memory) SaveIdentity(ctx context.Context, id identity.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	return nil
}

// LoadFlag implements Store.
func (s *Memory) LoadFlag(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[key], nil
}

// SaveFlag implements Store.
func (s *Memory) SaveFlag(ctx context.Context, key string, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	return nil
}

// Close implements Store.
func (s *Memory) Close() error {
	return nil
}

func (s *Memory) insertLocked(msg *messaging.Message) error {
	if msg.Nonce == "" {
		return fmt.Errorf("message without nonce")
	}
	if _, dup := s.nonces[msg.Nonce]; dup {
		return fmt.Errorf("message %s already stored", msg.Nonce)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	msg.ID = s.nextMessageID
	s.nextMessageID++
	s.nonces[msg.Nonce] = len(s.messages)
	s.messages = append(s.messages, msg.Clone())
	return nil
}

func (s *Memory) enqueueLocked(p payload.Payload) payload.Payload {
	p.ID = s.nextPayloadID
	s.nextPayloadID++
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p = clonePayload(p)
	s.payloads = append(s.payloads, p)
	return clonePayload(p)
}

func clonePayload(p payload.Payload) payload.Payload {
	p.Body = append([]byte(nil), p.Body...)
	return p
}

func sortMessages(msgs []messaging.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
