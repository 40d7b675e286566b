// Package messagecenter implements the client-side session controller for an
// embedded customer-feedback thread ("Message Center").
//
// A [Controller] takes a session from the one-time first-contact dialog,
// through the thank-you screen, into a live view that polls the backend for
// replies and sends what the user types.
//
// # Getting Started
//
// Wire a store, a transport and the host's view and dialogs:
//
//	st, err := store.OpenSQLite(ctx, cfg.StorePath)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer st.Close()
//
//	lb := transport.NewLoopback(st)
//
//	options := messagecenter.OptionsFromConfig(cfg)
//	options.Metrics = metrics.NewLogRecorder()
//
//	mc, err := messagecenter.New(st, lb, view, dialogs, options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mc.Stop()
//
//	if err := mc.Present(messagecenter.TriggerMessageCenter); err != nil {
//	    log.Fatal(err)
//	}
//
// # Session States
//
// The controller moves through these [SessionState] values:
//
//	NeedsFirstContact --Present--> FirstContactPresented --send--> ThankYouPresented --yes--> Live
//	FirstContactPresented --dismiss--> Stopped
//	ThankYouPresented --no--> Stopped
//	NeedsFirstContact --Present (already sent once)--> Live
//	Live --Stop--> Stopped
//
// Present is accepted from NeedsFirstContact, Live and Stopped. Presenting
// while live re-renders current data and keeps the existing poll loop.
//
// # Host Callbacks
//
// The host reports dialog outcomes through OnFirstContactSend,
// OnFirstContactDismissedWithoutSending and OnThankYouChoice. User input in
// the live view arrives through [ViewEvents], which the controller binds
// itself to in New.
//
// View and dialog calls are made without holding the controller's lock. Set
// Options.Dispatcher to post them to a UI thread; without one, poll updates
// reach the view on the poll goroutine.
//
// # Error Handling
//
// Present returns [ErrUnknownTrigger] or [ErrInvalidTransition]. Store
// failures on the send path surface as *messaging.PersistenceError and leave
// the state unchanged. File messages that cannot be read are reported to the
// user through View.ShowFailure. Fetch failures are logged and retried on
// the next poll.
package messagecenter
