// Package limits provides centralized size constants and validation functions
// for Message Center content. Every component that accepts user input checks
// it here so that the same message is never accepted by one layer and
// rejected by another.
//
// # Limits
//
//   - MaxMessageBody (8KB): the largest text body a user may send.
//
//   - MaxAddressLength (254 bytes): the longest contact address accepted by
//     the identity reconciler.
//
//   - MaxAttachmentSize (10MB): default ceiling for file attachments. The
//     configured value may lower or raise it per host.
//
//   - MaxPayloadBody (64KB): the absolute maximum for one queued payload.
//
// # Validation Functions
//
// Each validation function reports empty input and size violations with
// wrapped sentinel errors:
//
//	if err := limits.ValidateMessageBody(body); err != nil {
//	    if errors.Is(err, limits.ErrMessageTooLarge) {
//	        // ask the user to shorten the message
//	    }
//	}
package limits
