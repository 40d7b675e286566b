package messagecenter

import "errors"

var (
	// ErrUnknownTrigger is returned by Present for an unrecognized trigger.
	ErrUnknownTrigger = errors.New("unknown trigger")

	// ErrInvalidTransition is returned when an operation is not allowed in
	// the current session state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrAddressRequired is returned by OnFirstContactSend when a valid
	// address is required and the shown field did not contain one.
	ErrAddressRequired = errors.New("valid contact address required")
)
