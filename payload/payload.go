// Package payload defines the unit of outbound data queued for delivery to
// the Message Center backend.
package payload

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bishopmatthew/messagecenter/limits"
)

// Kind identifies what a payload carries.
type Kind uint8

const (
	// KindMessage carries a user-authored message.
	KindMessage Kind = iota + 1
	// KindPerson carries an identity diff.
	KindPerson
)

// String returns the lowercase name used in storage and logs.
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindPerson:
		return "person"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Payload is a queued unit of outbound data.
// ID is zero until the payload has been persisted.
type Payload struct {
	ID        int64
	Kind      Kind
	Body      []byte
	CreatedAt time.Time
}

// New encodes v as the payload body.
func New(kind Kind, v any) (Payload, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Payload{}, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	if err := limits.ValidatePayloadBody(body); err != nil {
		return Payload{}, fmt.Errorf("invalid %s payload: %w", kind, err)
	}
	return Payload{
		Kind:      kind,
		Body:      body,
		CreatedAt: time.Now(),
	}, nil
}

// Decode unmarshals the payload body into v.
func (p Payload) Decode(v any) error {
	if err := json.Unmarshal(p.Body, v); err != nil {
		return fmt.Errorf("failed to decode %s payload %d: %w", p.Kind, p.ID, err)
	}
	return nil
}
