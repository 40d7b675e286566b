// Package identity tracks the user's contact address and produces the
// minimal diff to deliver when it changes.
package identity

import (
	"net/mail"
	"strings"

	"github.com/bishopmatthew/messagecenter/payload"
)

// Identity is the persisted contact identity of the local user.
type Identity struct {
	// Address is the current contact address.
	Address string
	// InitialAddress is the first address ever known for this user. It is
	// set once and never overwritten.
	InitialAddress string
}

// Diff holds exactly the fields that changed.
type Diff struct {
	Email *string `json:"email,omitempty"`
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return d.Email == nil
}

// Payload builds the person payload delivering the diff.
func (d Diff) Payload() (payload.Payload, error) {
	return payload.New(payload.KindPerson, struct {
		Person Diff `json:"person"`
	}{d})
}

// IsValidAddress reports whether address is a bare, syntactically valid
// email address.
func IsValidAddress(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	// Reject display-name forms such as "Jo <jo@x.com>".
	if parsed.Address != address {
		return false
	}
	at := strings.LastIndex(address, "@")
	return at > 0 && strings.Contains(address[at+1:], ".")
}
