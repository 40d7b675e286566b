package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/payload"
)

// storeFactories lists every Store implementation the contract tests run against.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "messages.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"sqlite-memory": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range storeFactories() {
		factory := factory
		t.Run(name, func(t *testing.T) {
			t.Run("QueueMessageVisibleImmediately", func(t *testing.T) { testQueueMessageVisible(t, factory(t)) })
			t.Run("MergeDeduplicatesByNonce", func(t *testing.T) { testMergeDeduplicates(t, factory(t)) })
			t.Run("Ordering", func(t *testing.T) { testOrdering(t, factory(t)) })
			t.Run("SaveMessageUpdates", func(t *testing.T) { testSaveMessageUpdates(t, factory(t)) })
			t.Run("ReadAndUnread", func(t *testing.T) { testReadAndUnread(t, factory(t)) })
			t.Run("PayloadQueue", func(t *testing.T) { testPayloadQueue(t, factory(t)) })
			t.Run("Identity", func(t *testing.T) { testIdentity(t, factory(t)) })
			t.Run("Flags", func(t *testing.T) { testFlags(t, factory(t)) })
			t.Run("Attachments", func(t *testing.T) { testAttachments(t, factory(t)) })
			t.Run("ConcurrentWriters", func(t *testing.T) { testConcurrentWriters(t, factory(t)) })
		})
	}
}

func queueText(t *testing.T, s Store, body string) *messaging.Message {
	t.Helper()
	msg := messaging.NewTextMessage(body)
	p, err := msg.Payload()
	require.NoError(t, err)
	queued, err := s.QueueMessage(context.Background(), msg, p)
	require.NoError(t, err)
	require.NotZero(t, queued.ID)
	return msg
}

func testQueueMessageVisible(t *testing.T, s Store) {
	ctx := context.Background()
	msg := queueText(t, s, "hi")
	require.NotZero(t, msg.ID)

	msgs, err := s.LoadAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.ID, msgs[0].ID)
	assert.Equal(t, "hi", msgs[0].Body)
	assert.Equal(t, msg.Nonce, msgs[0].Nonce)
	assert.True(t, msgs[0].Read)

	pending, err := s.PendingPayloads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	nonce, err := messaging.NonceFromPayload(pending[0])
	require.NoError(t, err)
	assert.Equal(t, msg.Nonce, nonce)
}

func testMergeDeduplicates(t *testing.T, s Store) {
	ctx := context.Background()
	now := time.Now()
	batch := []messaging.Message{
		*messaging.NewRemoteMessage("r1", "Thanks for writing in", now),
		*messaging.NewRemoteMessage("r2", "Can you send a screenshot?", now.Add(time.Second)),
	}

	added, err := s.MergeMessages(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = s.MergeMessages(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added, "re-fetched messages must not duplicate")

	msgs, err := s.LoadAllMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	added, err = s.MergeMessages(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, added)
}

func testOrdering(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Now()

	_, err := s.MergeMessages(ctx, []messaging.Message{
		*messaging.NewRemoteMessage("late", "late", base.Add(2*time.Second)),
		*messaging.NewRemoteMessage("early", "early", base),
	})
	require.NoError(t, err)

	msgs, err := s.LoadAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "early", msgs[0].Nonce)
	assert.Equal(t, "late", msgs[1].Nonce)
}

func testSaveMessageUpdates(t *testing.T, s Store) {
	ctx := context.Background()
	msg := messaging.NewRemoteMessage("r1", "hello", time.Now())
	require.NoError(t, s.SaveMessage(ctx, msg))
	require.NotZero(t, msg.ID)

	msg.Read = true
	require.NoError(t, s.SaveMessage(ctx, msg))

	msgs, err := s.LoadAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)

	missing := *msg
	missing.ID = 9999
	assert.True(t, errors.Is(s.SaveMessage(ctx, &missing), ErrNotFound))

	require.NoError(t, s.SetMessageState(ctx, "r1", messaging.StateFailed))
	assert.True(t, errors.Is(s.SetMessageState(ctx, "nope", messaging.StateSent), ErrNotFound))
}

func testReadAndUnread(t *testing.T, s Store) {
	ctx := context.Background()
	queueText(t, s, "mine")
	_, err := s.MergeMessages(ctx, []messaging.Message{
		*messaging.NewRemoteMessage("r1", "one", time.Now()),
		*messaging.NewRemoteMessage("r2", "two", time.Now()),
	})
	require.NoError(t, err)

	n, err := s.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs, err := s.LoadAllMessages(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, m := range msgs {
		if !m.Read {
			ids = append(ids, m.ID)
		}
	}
	require.NoError(t, s.MarkRead(ctx, ids...))
	require.NoError(t, s.MarkRead(ctx))

	n, err = s.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testPayloadQueue(t *testing.T, s Store) {
	ctx := context.Background()
	email := "u@x.com"
	diffPayload, err := identity.Diff{Email: &email}.Payload()
	require.NoError(t, err)

	first, err := s.EnqueuePayload(ctx, diffPayload)
	require.NoError(t, err)
	second, err := s.EnqueuePayload(ctx, diffPayload)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	limited, err := s.PendingPayloads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
	assert.Equal(t, payload.KindPerson, limited[0].Kind)
	assert.JSONEq(t, string(diffPayload.Body), string(limited[0].Body))

	require.NoError(t, s.DeletePayload(ctx, first.ID))
	assert.True(t, errors.Is(s.DeletePayload(ctx, first.ID), ErrNotFound))

	all, err := s.PendingPayloads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
}

func testIdentity(t *testing.T, s Store) {
	ctx := context.Background()

	id, err := s.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, identity.Identity{}, id)

	want := identity.Identity{Address: "b@x.com", InitialAddress: "a@x.com"}
	require.NoError(t, s.SaveIdentity(ctx, want))
	require.NoError(t, s.SaveIdentity(ctx, want))

	id, err = s.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, id)
}

func testFlags(t *testing.T, s Store) {
	ctx := context.Background()

	v, err := s.LoadFlag(ctx, FlagFirstContactShown)
	require.NoError(t, err)
	assert.False(t, v, "unset flags read as false")

	require.NoError(t, s.SaveFlag(ctx, FlagFirstContactShown, true))
	v, err = s.LoadFlag(ctx, FlagFirstContactShown)
	require.NoError(t, err)
	assert.True(t, v)

	require.NoError(t, s.SaveFlag(ctx, FlagFirstContactShown, false))
	v, err = s.LoadFlag(ctx, FlagFirstContactShown)
	require.NoError(t, err)
	assert.False(t, v)
}

func testAttachments(t *testing.T, s Store) {
	ctx := context.Background()
	msg := messaging.NewFileMessage(messaging.Attachment{
		Path: "/data/attachments/abc.png", Name: "shot.png", MIMEType: "image/png", Size: 42, Digest: "abc",
	})
	p, err := msg.Payload()
	require.NoError(t, err)
	_, err = s.QueueMessage(ctx, msg, p)
	require.NoError(t, err)

	msgs, err := s.LoadAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Attachment)
	assert.Equal(t, *msg.Attachment, *msgs[0].Attachment)
	assert.Equal(t, messaging.KindFile, msgs[0].Kind)
}

func testConcurrentWriters(t *testing.T, s Store) {
	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := messaging.NewTextMessage("parallel")
			p, err := msg.Payload()
			if !assert.NoError(t, err) {
				return
			}
			_, err = s.QueueMessage(context.Background(), msg, p)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := s.LoadAllMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, msgs, writers)

	seen := make(map[int64]bool)
	for _, m := range msgs {
		assert.False(t, seen[m.ID], "duplicate ID %d", m.ID)
		seen[m.ID] = true
	}
}

func TestSQLiteDurableAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "messages.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	msg := queueText(t, s, "survives restart")
	require.NoError(t, s.SaveFlag(ctx, FlagFirstContactShown, true))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.LoadAllMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg.Nonce, msgs[0].Nonce)
	assert.WithinDuration(t, msg.CreatedAt, msgs[0].CreatedAt, time.Microsecond)

	shown, err := reopened.LoadFlag(ctx, FlagFirstContactShown)
	require.NoError(t, err)
	assert.True(t, shown)

	pending, err := reopened.PendingPayloads(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestQueueMessageAtomicOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	first := queueText(t, s, "first")

	// Re-using a nonce makes the message insert fail; nothing may be queued.
	dup := messaging.NewTextMessage("dup")
	dup.Nonce = first.Nonce
	p, err := dup.Payload()
	require.NoError(t, err)
	_, err = s.QueueMessage(ctx, dup, p)
	require.Error(t, err)
	assert.Zero(t, dup.ID, "failed queue must not assign an ID")

	pending, err := s.PendingPayloads(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory().LoadAllMessages(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMemorySnapshotsAreCopies(t *testing.T) {
	s := NewMemory()
	queueText(t, s, "original")

	msgs, err := s.LoadAllMessages(context.Background())
	require.NoError(t, err)
	msgs[0].Body = "mutated"

	again, err := s.LoadAllMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Body)
}
