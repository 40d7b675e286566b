// Package messaging provides the message model and the outbound message sink
// for Message Center.
//
// # Overview
//
// A [Message] is either a text message or a file message, authored by the
// user or by the remote support backend. Outgoing messages are created by the
// [Sink], which writes the message and its delivery payload to the store in
// one step before handing the payload to the transport. Delivery itself is
// asynchronous; the sink only guarantees that a returned message survives a
// process restart.
//
// # Architecture
//
//   - [Message]: value type with delivery [State] and a client nonce used to
//     de-duplicate inbound merges.
//   - [Sink]: SendText and SendFile entry points used by the session controller.
//   - [Queue] and [Submitter]: injection points for the store and transport.
//   - [FileMaterializer]: copies a file reference into content-addressed
//     storage (BLAKE2b-256) before it is queued.
//
// # Errors
//
// [AttachmentError] reports a file reference that could not be materialized;
// no message is created. [PersistenceError] reports a failed store write; the
// send did not happen and the caller should tell the user or retry.
//
// # Usage
//
//	sink := messaging.NewSink(st, tr, messaging.NewFileMaterializer(dir, 0))
//
//	msg, err := sink.SendText(ctx, "The export button does nothing")
//	if err != nil {
//	    return err
//	}
//	view.Append(*msg)
//
//	if _, err := sink.SendFile(ctx, "file:///tmp/screenshot.png"); err != nil {
//	    var attErr *messaging.AttachmentError
//	    if errors.As(err, &attErr) {
//	        view.ShowFailure("Unable to send file.")
//	    }
//	}
package messaging
