package messagecenter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bishopmatthew/messagecenter/async"
	"github.com/bishopmatthew/messagecenter/identity"
	"github.com/bishopmatthew/messagecenter/limits"
	"github.com/bishopmatthew/messagecenter/messaging"
	"github.com/bishopmatthew/messagecenter/metrics"
	"github.com/bishopmatthew/messagecenter/store"
	"github.com/bishopmatthew/messagecenter/transport"
)

// Controller drives one Message Center session through the first-contact,
// thank-you and live states. Create one per session with New.
//
// The controller never holds its lock while calling the view, the dialogs,
// the transport or the metrics recorder.
type Controller struct {
	options   *Options
	store     store.Store
	transport transport.Transport
	view      View
	dialogs   Dialogs
	metrics   metrics.Recorder

	sink       *messaging.Sink
	reconciler *identity.Reconciler
	poller     *async.Poller

	// sendMu serializes OnFirstContactSend.
	sendMu sync.Mutex

	mu           sync.Mutex
	state        SessionState
	trigger      Trigger
	poll         *async.PollHandle
	pollGen      uint64
	addressShown bool
	introQueued  *messaging.Message
	shown        []messaging.Message
}

// New creates a controller in StateNeedsFirstContact and binds it to view.
// A nil options uses NewOptions.
func New(st store.Store, tr transport.Transport, view View, dialogs Dialogs, options *Options) (*Controller, error) {
	if st == nil || tr == nil || view == nil || dialogs == nil {
		return nil, errors.New("store, transport, view and dialogs are required")
	}
	if options == nil {
		options = NewOptions()
	}
	if options.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive: got %v", options.PollInterval)
	}

	var materializer messaging.Materializer
	if options.AttachmentDir != "" {
		materializer = messaging.NewFileMaterializer(options.AttachmentDir, options.MaxAttachmentBytes)
	}

	poller := async.NewPoller(tr, st)
	if options.TimeProvider != nil {
		poller.SetTimeProvider(options.TimeProvider)
	}

	c := &Controller{
		options:    options,
		store:      st,
		transport:  tr,
		view:       view,
		dialogs:    dialogs,
		metrics:    metrics.Safe(options.Metrics),
		sink:       messaging.NewSink(st, tr, materializer),
		reconciler: identity.NewReconciler(st),
		poller:     poller,
		state:      StateNeedsFirstContact,
	}
	view.Bind(c)

	logrus.WithFields(logrus.Fields{
		"function":      "New",
		"enabled":       options.Enabled,
		"poll_interval": options.PollInterval.String(),
	}).Info("Message Center controller created")

	return c, nil
}

// State returns the current session state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trigger returns the trigger of the latest accepted Present.
func (c *Controller) Trigger() Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger
}

// Present opens the session for trigger. It shows the first-contact dialog
// until the user has sent from it once (always, when disabled by
// configuration), and otherwise goes live. Presenting while live re-renders
// current data without restarting polling.
func (c *Controller) Present(trigger Trigger) error {
	if !trigger.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, string(trigger))
	}
	ctx := context.Background()

	c.mu.Lock()
	if !c.state.canPresent() {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: present from %s", ErrInvalidTransition, state)
	}

	if c.state == StateLive {
		msgs, err := c.store.LoadAllMessages(ctx)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to load messages: %w", err)
		}
		c.shown = msgs
		c.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Present",
			"trigger":  trigger.String(),
		}).Debug("Session already live, re-rendering")
		c.dispatch(func() { c.renderSnapshot(msgs, false) })
		return nil
	}

	seen, err := c.store.LoadFlag(ctx, store.FlagFirstContactShown)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to load first-contact flag: %w", err)
	}

	if !c.options.Enabled || !seen {
		prompt, err := c.firstContactPromptLocked(ctx, trigger)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		c.trigger = trigger
		c.state = StateFirstContactPresented
		c.addressShown = prompt.ShowAddressField
		c.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"function": "Present",
			"trigger":  trigger.String(),
			"enabled":  c.options.Enabled,
		}).Info("Showing first-contact dialog")
		c.metrics.Record(metrics.EventIntroLaunch, trigger.String())
		c.dispatch(func() { c.dialogs.ShowFirstContact(prompt) })
		return nil
	}

	msgs, err := c.store.LoadAllMessages(ctx)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to load messages: %w", err)
	}
	c.trigger = trigger
	c.state = StateLive
	c.shown = msgs
	c.pollGen++
	gen := c.pollGen
	c.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Present",
		"trigger":  trigger.String(),
		"messages": len(msgs),
	}).Info("Message Center session live")
	c.metrics.Record(metrics.EventLaunch, trigger.String())
	c.dispatch(func() { c.renderSnapshot(msgs, false) })

	c.startPolling(gen)
	return nil
}

// startPolling starts the poll loop for generation gen unless the session
// was stopped or re-entered in the meantime.
func (c *Controller) startPolling(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateLive || c.pollGen != gen || c.poll != nil {
		return
	}
	c.poll = c.poller.Start(c.options.PollInterval, func(msgs []messaging.Message) {
		c.onPollUpdated(gen, msgs)
	})
}

// firstContactPromptLocked builds the dialog seed from the persisted
// identity. c.mu must be held.
func (c *Controller) firstContactPromptLocked(ctx context.Context, trigger Trigger) (FirstContactPrompt, error) {
	id, err := c.reconciler.Load(ctx)
	if err != nil {
		return FirstContactPrompt{}, fmt.Errorf("failed to load identity: %w", err)
	}

	prompt := FirstContactPrompt{
		Trigger:          trigger,
		Title:            trigger.firstContactTitle(),
		Body:             firstContactBody(c.options.AppDisplayName),
		ShowAddressField: id.Address == "",
		EmailRequired:    c.options.EmailRequired,
	}
	if prompt.ShowAddressField {
		prompt.PrefilledAddress = id.InitialAddress
	}
	return prompt, nil
}

// OnFirstContactDismissedWithoutSending stops the session after the user
// cancelled the first-contact dialog.
func (c *Controller) OnFirstContactDismissedWithoutSending() {
	c.mu.Lock()
	if c.state != StateFirstContactPresented {
		state := c.state
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "OnFirstContactDismissedWithoutSending",
			"state":    state.String(),
		}).Debug("Ignoring dismissal outside first-contact")
		return
	}
	c.state = StateStopped
	c.mu.Unlock()

	c.metrics.Record(metrics.EventIntroCancel, "")
}

// OnFirstContactSend handles the first-contact submission. It queues body,
// reconciles address when the field was shown, persists the first-contact
// flag and then shows the thank-you screen. On error the state does not
// advance and the dialog stays current; the flag is only written once the
// message is queued. A retry with the same body does not queue it again.
func (c *Controller) OnFirstContactSend(address, body string) error {
	ctx := context.Background()
	address = strings.TrimSpace(address)

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	state := c.state
	addressShown := c.addressShown
	queued := c.introQueued
	c.mu.Unlock()

	if state != StateFirstContactPresented {
		return fmt.Errorf("%w: send from %s", ErrInvalidTransition, state)
	}
	if err := limits.ValidateMessageBody(body); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if addressShown && c.options.EmailRequired && !identity.IsValidAddress(address) {
		return ErrAddressRequired
	}

	if queued == nil || queued.Body != body {
		msg, err := c.sink.SendText(ctx, body)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.introQueued = msg
		c.mu.Unlock()
	}

	if addressShown && address != "" {
		if err := c.queueAddress(ctx, address); err != nil {
			return err
		}
	}

	if err := c.store.SaveFlag(ctx, store.FlagFirstContactShown, true); err != nil {
		return &messaging.PersistenceError{Op: "save first-contact flag", Err: err}
	}

	c.mu.Lock()
	if c.state != StateFirstContactPresented {
		state := c.state
		c.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "OnFirstContactSend",
			"state":    state.String(),
		}).Debug("Session left first-contact while sending")
		return nil
	}
	c.state = StateThankYouPresented
	c.introQueued = nil
	c.mu.Unlock()

	prompt := ThankYouPrompt{ValidEmailProvided: identity.IsValidAddress(address)}
	c.metrics.Record(metrics.EventIntroSend, "")
	c.metrics.Record(metrics.EventThankYouLaunch, "")
	c.dispatch(func() { c.dialogs.ShowThankYou(prompt) })
	return nil
}

// queueAddress records address and queues the resulting identity diff.
func (c *Controller) queueAddress(ctx context.Context, address string) error {
	diff, err := c.reconciler.RecordAddress(ctx, address)
	if err != nil {
		if errors.Is(err, limits.ErrAddressTooLong) {
			return err
		}
		return &messaging.PersistenceError{Op: "record address", Err: err}
	}
	if diff == nil {
		return nil
	}

	p, err := diff.Payload()
	if err != nil {
		return fmt.Errorf("failed to encode identity diff: %w", err)
	}
	queued, err := c.store.EnqueuePayload(ctx, p)
	if err != nil {
		return &messaging.PersistenceError{Op: "queue identity diff", Err: err}
	}
	c.transport.SubmitPayload(queued)

	logrus.WithFields(logrus.Fields{
		"function":   "queueAddress",
		"payload_id": queued.ID,
	}).Debug("Identity diff queued")
	return nil
}

// OnThankYouChoice handles the thank-you screen. Only the first choice per
// screen is honored; later calls return nil and do nothing.
func (c *Controller) OnThankYouChoice(wantsToSeeMessages bool) error {
	c.mu.Lock()
	if c.state != StateThankYouPresented {
		c.mu.Unlock()
		return nil
	}
	c.state = StateStopped
	trigger := c.trigger
	c.mu.Unlock()

	if !wantsToSeeMessages {
		c.metrics.Record(metrics.EventThankYouClose, "")
		return nil
	}
	c.metrics.Record(metrics.EventThankYouMessages, "")
	return c.Present(trigger)
}

// OnBackPressed records the close event and stops the session.
func (c *Controller) OnBackPressed() {
	c.metrics.Record(metrics.EventClose, "")
	c.Stop()
}

// Stop cancels polling and moves to StateStopped. It is safe to call from
// any state and more than once. Once Stop returns no poll update reaches the
// view.
func (c *Controller) Stop() {
	c.mu.Lock()
	h := c.poll
	c.poll = nil
	c.pollGen++
	prev := c.state
	c.state = StateStopped
	c.mu.Unlock()

	if h != nil {
		h.Stop()
	}

	if prev != StateStopped {
		logrus.WithFields(logrus.Fields{
			"function": "Stop",
			"from":     prev.String(),
			"polling":  h != nil,
		}).Info("Message Center session stopped")
	}
}

// dispatch runs fn through the configured Dispatcher.
func (c *Controller) dispatch(fn func()) {
	if c.options.Dispatcher != nil {
		c.options.Dispatcher(fn)
		return
	}
	fn()
}
