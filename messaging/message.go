package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bishopmatthew/messagecenter/payload"
)

// Kind represents the type of message.
type Kind uint8

const (
	// KindText is a plain text message.
	KindText Kind = iota + 1
	// KindFile is a message carrying a stored file attachment.
	KindFile
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "TextMessage"
	case KindFile:
		return "FileMessage"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Sender identifies who authored a message.
type Sender uint8

const (
	// SenderUser is the local end user.
	SenderUser Sender = iota + 1
	// SenderRemote is the support backend.
	SenderRemote
)

// String returns a short lowercase label.
func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderRemote:
		return "remote"
	default:
		return fmt.Sprintf("sender(%d)", uint8(s))
	}
}

// State represents the delivery state of a message.
type State uint8

const (
	// StatePending means the message is queued and waiting to be sent.
	StatePending State = iota
	// StateSending means the message has been handed to the transport.
	StateSending
	// StateSent means the backend acknowledged the message.
	StateSent
	// StateFailed means delivery failed permanently.
	StateFailed
)

// String returns a short lowercase label.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSending:
		return "sending"
	case StateSent:
		return "sent"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Attachment describes a file that has been materialized into local storage.
type Attachment struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	Digest   string `json:"digest"`
}

// Message is a single entry in the Message Center thread.
//
// Messages are values. Once created by the user only Read and State change;
// stores hand out copies so a snapshot never aliases live data.
type Message struct {
	// ID is assigned by the store and is zero until persisted.
	ID         int64
	Nonce      string
	Kind       Kind
	Body       string
	Attachment *Attachment
	Sender     Sender
	Read       bool
	State      State
	CreatedAt  time.Time
}

// NewTextMessage creates an outgoing text message authored by the user.
func NewTextMessage(body string) *Message {
	return &Message{
		Nonce:     uuid.NewString(),
		Kind:      KindText,
		Body:      body,
		Sender:    SenderUser,
		Read:      true,
		State:     StatePending,
		CreatedAt: time.Now(),
	}
}

// NewFileMessage creates an outgoing file message authored by the user.
func NewFileMessage(att Attachment) *Message {
	return &Message{
		Nonce:      uuid.NewString(),
		Kind:       KindFile,
		Attachment: &att,
		Sender:     SenderUser,
		Read:       true,
		State:      StatePending,
		CreatedAt:  time.Now(),
	}
}

// NewRemoteMessage creates an inbound text message from the backend.
// Remote messages arrive unread.
func NewRemoteMessage(nonce, body string, createdAt time.Time) *Message {
	return &Message{
		Nonce:     nonce,
		Kind:      KindText,
		Body:      body,
		Sender:    SenderRemote,
		State:     StateSent,
		CreatedAt: createdAt,
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if m.Attachment != nil {
		att := *m.Attachment
		m.Attachment = &att
	}
	return m
}

// IsOutgoing reports whether the user authored the message.
func (m Message) IsOutgoing() bool {
	return m.Sender == SenderUser
}

// messageBody is the payload body for an outgoing message.
type messageBody struct {
	Nonce           string      `json:"nonce"`
	Type            string      `json:"type"`
	Body            string      `json:"body,omitempty"`
	Attachment      *Attachment `json:"attachment,omitempty"`
	ClientCreatedAt float64     `json:"client_created_at"`
}

// Payload builds the delivery payload for an outgoing message.
func (m Message) Payload() (payload.Payload, error) {
	if !m.IsOutgoing() {
		return payload.Payload{}, fmt.Errorf("message %s is not outgoing", m.Nonce)
	}
	return payload.New(payload.KindMessage, messageBody{
		Nonce:           m.Nonce,
		Type:            m.Kind.String(),
		Body:            m.Body,
		Attachment:      m.Attachment,
		ClientCreatedAt: float64(m.CreatedAt.UnixMilli()) / 1000,
	})
}

// NonceFromPayload extracts the message nonce from a message payload.
func NonceFromPayload(p payload.Payload) (string, error) {
	if p.Kind != payload.KindMessage {
		return "", fmt.Errorf("payload %d is a %s payload", p.ID, p.Kind)
	}
	var body messageBody
	if err := json.Unmarshal(p.Body, &body); err != nil {
		return "", fmt.Errorf("failed to decode message payload %d: %w", p.ID, err)
	}
	return body.Nonce, nil
}

// UnreadCount returns the number of unread messages in msgs.
func UnreadCount(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if !m.Read {
			n++
		}
	}
	return n
}
