package messaging

import "fmt"

// AttachmentError reports a file source that could not be materialized into
// a storable attachment. It is recoverable and must be surfaced to the user.
type AttachmentError struct {
	Ref string
	Err error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment error [%s]: %v", e.Ref, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a store write that failed on the send path.
// The triggering operation has not taken effect.
type PersistenceError struct {
	Op  string // "queue message", "queue payload"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
