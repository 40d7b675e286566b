package messagecenter

import "fmt"

// SessionState is the position of a Controller in the session flow.
type SessionState uint8

const (
	// StateNeedsFirstContact is the state of a new controller.
	StateNeedsFirstContact SessionState = iota
	// StateFirstContactPresented means the first-contact dialog is showing.
	StateFirstContactPresented
	// StateLive means the live view is showing and polling runs.
	StateLive
	// StateThankYouPresented means the thank-you screen is showing.
	StateThankYouPresented
	// StateStopped means the session has been torn down.
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateNeedsFirstContact:
		return "NeedsFirstContact"
	case StateFirstContactPresented:
		return "FirstContactPresented"
	case StateLive:
		return "Live"
	case StateThankYouPresented:
		return "ThankYouPresented"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("SessionState(%d)", uint8(s))
	}
}

// canPresent reports whether Present is accepted from s.
func (s SessionState) canPresent() bool {
	return s != StateFirstContactPresented && s != StateThankYouPresented
}
