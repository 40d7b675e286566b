package messagecenter

import (
	"context"
	"errors"
	"sync"

	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/payload"
	"github.com/bishopmatthew/messagecenter/store"
)

// ---------------------------------------------------------------------------
// fakeView records everything pushed into the live surface.
// ---------------------------------------------------------------------------

type fakeView struct {
	mu       sync.Mutex
	renders  [][]messaging.Message
	scrolls  int
	unread   []int
	failures []string
	events   ViewEvents
}

func (v *fakeView) Render(msgs []messaging.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renders = append(v.renders, msgs)
}

func (v *fakeView) ScrollToLatest() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.scrolls++
}

func (v *fakeView) NotifyUnreadCount(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unread = append(v.unread, n)
}

func (v *fakeView) ShowFailure(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failures = append(v.failures, text)
}

func (v *fakeView) Bind(events ViewEvents) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = events
}

func (v *fakeView) renderCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.renders)
}

func (v *fakeView) lastRender() []messaging.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.renders) == 0 {
		return nil
	}
	return v.renders[len(v.renders)-1]
}

func (v *fakeView) unreadNotifications() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]int, len(v.unread))
	copy(out, v.unread)
	return out
}

func (v *fakeView) failureTexts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.failures))
	copy(out, v.failures)
	return out
}

func (v *fakeView) boundEvents() ViewEvents {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.events
}

// ---------------------------------------------------------------------------
// fakeDialogs records the dialogs the controller asked for.
// ---------------------------------------------------------------------------

type fakeDialogs struct {
	mu           sync.Mutex
	firstContact []FirstContactPrompt
	thankYou     []ThankYouPrompt
}

func (d *fakeDialogs) ShowFirstContact(prompt FirstContactPrompt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.firstContact = append(d.firstContact, prompt)
}

func (d *fakeDialogs) ShowThankYou(prompt ThankYouPrompt) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.thankYou = append(d.thankYou, prompt)
}

func (d *fakeDialogs) firstContactPrompts() []FirstContactPrompt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]FirstContactPrompt, len(d.firstContact))
	copy(out, d.firstContact)
	return out
}

func (d *fakeDialogs) thankYouPrompts() []ThankYouPrompt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]ThankYouPrompt, len(d.thankYou))
	copy(out, d.thankYou)
	return out
}

// ---------------------------------------------------------------------------
// recordingTransport records submissions and counts fetches without
// acknowledging anything, so queued payloads stay in the store.
// ---------------------------------------------------------------------------

type recordingTransport struct {
	mu        sync.Mutex
	submitted []payload.Payload
	fetches   int

	// fetchFunc, when set, runs inside FetchNewMessages.
	fetchFunc func(ctx context.Context) error
	// submitFunc, when set, runs inside SubmitPayload.
	submitFunc func(p payload.Payload)
}

func (r *recordingTransport) FetchNewMessages(ctx context.Context) error {
	r.mu.Lock()
	r.fetches++
	fn := r.fetchFunc
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (r *recordingTransport) SubmitPayload(p payload.Payload) {
	r.mu.Lock()
	r.submitted = append(r.submitted, p)
	fn := r.submitFunc
	r.mu.Unlock()

	if fn != nil {
		fn(p)
	}
}

func (r *recordingTransport) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

func (r *recordingTransport) submittedKinds() []payload.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]payload.Kind, len(r.submitted))
	for i, p := range r.submitted {
		out[i] = p.Kind
	}
	return out
}

// ---------------------------------------------------------------------------
// failingStore injects write failures into an in-memory store.
// ---------------------------------------------------------------------------

var errDiskFull = errors.New("disk full")

type failingStore struct {
	*store.Memory
	failSaveFlag     bool
	failQueueMessage bool
	failSaveIdentity bool
}

func (s *failingStore) SaveFlag(ctx context.Context, key string, value bool) error {
	if s.failSaveFlag {
		return errDiskFull
	}
	return s.Memory.SaveFlag(ctx, key, value)
}

func (s *failingStore) QueueMessage(ctx context.Context, msg *messaging.Message, p payload.Payload) (payload.Payload, error) {
	if s.failQueueMessage {
		return payload.Payload{}, errDiskFull
	}
	return s.Memory.QueueMessage(ctx, msg, p)
}

func (s *failingStore) SaveIdentity(ctx context.Context, id identity.Identity) error {
	if s.failSaveIdentity {
		return errDiskFull
	}
	return s.Memory.SaveIdentity(ctx, id)
}
