// Package limits provides centralized size limits for Message Center content.
// This ensures consistent validation across the sink, the identity reconciler
// and the stores.
package limits

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxMessageBody is the maximum size of a text message body in bytes.
	MaxMessageBody = 8192

	// MaxAddressLength is the maximum length of a contact address.
	// This matches the RFC 5321 path limit.
	MaxAddressLength = 254

	// MaxAttachmentSize is the default ceiling for a file attachment (10MB).
	MaxAttachmentSize = 10 * 1024 * 1024

	// MaxPayloadBody is the absolute maximum for a queued payload body.
	// This prevents a single payload from exhausting the outbound queue.
	MaxPayloadBody = 64 * 1024
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")

	// ErrAddressTooLong indicates a contact address exceeds MaxAddressLength
	ErrAddressTooLong = errors.New("address too long")

	// ErrInvalidEncoding indicates text that is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid utf-8 encoding")
)

// ValidateMessageBody validates a text message body against MaxMessageBody.
// Returns an error with context if the body is empty, not UTF-8 or exceeds the limit.
func ValidateMessageBody(body string) error {
	if len(body) == 0 {
		return ErrMessageEmpty
	}
	if !utf8.ValidString(body) {
		return ErrInvalidEncoding
	}
	if len(body) > MaxMessageBody {
		return fmt.Errorf("%w: body size %d exceeds limit %d", ErrMessageTooLarge, len(body), MaxMessageBody)
	}
	return nil
}

// ValidateAddress validates a contact address length. An empty address is
// valid because supplying one is optional.
func ValidateAddress(address string) error {
	if len(address) > MaxAddressLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrAddressTooLong, len(address), MaxAddressLength)
	}
	return nil
}

// ValidateAttachmentSize validates an attachment size against maxSize.
// A non-positive maxSize falls back to MaxAttachmentSize.
func ValidateAttachmentSize(size int64, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxAttachmentSize
	}
	if size == 0 {
		return ErrMessageEmpty
	}
	if size > maxSize {
		return fmt.Errorf("%w: attachment size %d exceeds limit %d", ErrMessageTooLarge, size, maxSize)
	}
	return nil
}

// ValidatePayloadBody validates an encoded payload body against MaxPayloadBody.
func ValidatePayloadBody(body []byte) error {
	if len(body) == 0 {
		return ErrMessageEmpty
	}
	if len(body) > MaxPayloadBody {
		return fmt.Errorf("%w: payload size %d exceeds limit %d", ErrMessageTooLarge, len(body), MaxPayloadBody)
	}
	return nil
}
