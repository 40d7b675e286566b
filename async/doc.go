// Package async runs the inbound message poll loop for a live Message Center
// session.
//
// # Overview
//
// A [Poller] repeatedly asks a [Fetcher] to pull new messages from the
// backend, then reads the merged thread from a [Snapshotter] and hands the
// full list to an [UpdateFunc]. Each call to Start owns one goroutine and
// returns a [PollHandle] used to cancel it.
//
//	poller := async.NewPoller(transport, store)
//	handle := poller.Start(8*time.Second, func(msgs []messaging.Message) {
//	    view.Render(msgs)
//	})
//	defer handle.Stop()
//
// # Scheduling
//
// The first tick runs immediately. Ticks never overlap: the next fetch is
// scheduled interval after the previous one started, or straight away if the
// fetch overran. Fetch errors are logged and retried on the next tick; the
// current snapshot is still delivered.
//
// # Cancellation
//
// Stop cancels the context passed to the in-flight fetch. A result that
// arrives after Stop is dropped, and once Stop returns the update function is
// never called again for that handle.
//
// # Deterministic Testing
//
// The tick clock can be replaced with SetTimeProvider, following the same
// [TimeProvider] shape used elsewhere for time-dependent code.
package async
