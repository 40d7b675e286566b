package messaging

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bishopmatthew/messagecenter/limits"
	"github.com/bishopmatthew/messagecenter/payload"
)

// Queue durably stores an outgoing message together with its delivery
// payload. Both must be written or neither. On success msg.ID is set and the
// returned payload carries its store ID.
type Queue interface {
	QueueMessage(ctx context.Context, msg *Message, p payload.Payload) (payload.Payload, error)
}

// Submitter hands a queued payload to the transport. Delivery is
// asynchronous; SubmitPayload must not block on the network.
type Submitter interface {
	SubmitPayload(p payload.Payload)
}

// Sink accepts user-authored messages and queues them for delivery.
//
// Every send is durable before it returns, so the caller may append the
// returned message to the displayed list straight away.
type Sink struct {
	queue        Queue
	submitter    Submitter
	materializer Materializer

	// fileMu serializes SendFile so a stored file shared by identical
	// attachments is never removed while another send still needs it.
	fileMu sync.Mutex
}

// NewSink creates a sink. materializer may be nil when file messages are not
// supported by the host; SendFile then always fails with AttachmentError.
func NewSink(queue Queue, submitter Submitter, materializer Materializer) *Sink {
	return &Sink{
		queue:        queue,
		submitter:    submitter,
		materializer: materializer,
	}
}

// SendText queues a text message.
func (s *Sink) SendText(ctx context.Context, body string) (*Message, error) {
	if err := limits.ValidateMessageBody(body); err != nil {
		return nil, fmt.Errorf("invalid message body: %w", err)
	}

	msg := NewTextMessage(body)
	if err := s.enqueue(ctx, msg); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "SendText",
		"id":       msg.ID,
		"nonce":    msg.Nonce,
		"length":   len(body),
	}).Debug("Text message queued")

	return msg, nil
}

// SendFile materializes ref into a stored attachment and queues a file
// message for it. When the source cannot be materialized the error is an
// *AttachmentError and no message exists.
func (s *Sink) SendFile(ctx context.Context, ref string) (*Message, error) {
	if s.materializer == nil {
		return nil, &AttachmentError{Ref: ref, Err: ErrUnsupportedSource}
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	att, created, err := s.materializer.Materialize(ctx, ref)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "SendFile",
			"ref":      ref,
			"error":    err.Error(),
		}).Warn("Unable to send file")
		return nil, &AttachmentError{Ref: ref, Err: err}
	}

	msg := NewFileMessage(att)
	if err := s.enqueue(ctx, msg); err != nil {
		// A file this call did not create belongs to an earlier message.
		if !created {
			return nil, err
		}
		if rmErr := os.Remove(att.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			logrus.WithFields(logrus.Fields{
				"function": "SendFile",
				"path":     att.Path,
				"error":    rmErr.Error(),
			}).Warn("Failed to remove orphaned attachment")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "SendFile",
		"id":       msg.ID,
		"name":     att.Name,
		"size":     att.Size,
	}).Debug("File message queued")

	return msg, nil
}

func (s *Sink) enqueue(ctx context.Context, msg *Message) error {
	p, err := msg.Payload()
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}

	queued, err := s.queue.QueueMessage(ctx, msg, p)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "enqueue",
			"nonce":    msg.Nonce,
			"error":    err.Error(),
		}).Error("Failed to queue message")
		return &PersistenceError{Op: "queue message", Err: err}
	}

	if s.submitter != nil {
		s.submitter.SubmitPayload(queued)
	}
	return nil
}
