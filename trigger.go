package messagecenter

import "fmt"

// Trigger is the reason a session is being opened. It selects the
// first-contact copy and is attached to launch metrics.
type Trigger string

const (
	// TriggerEnjoymentDialog opens the session from the dissatisfaction path.
	TriggerEnjoymentDialog Trigger = "enjoyment_dialog"
	// TriggerMessageCenter opens the session on direct request.
	TriggerMessageCenter Trigger = "message_center"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerEnjoymentDialog, TriggerMessageCenter:
		return true
	default:
		return false
	}
}

// String returns the trigger name.
func (t Trigger) String() string {
	return string(t)
}

// firstContactTitle returns the dialog title for the trigger.
func (t Trigger) firstContactTitle() string {
	if t == TriggerEnjoymentDialog {
		return "We're Sorry!"
	}
	return "Give Feedback"
}

// firstContactBody returns the dialog body naming the host app.
func firstContactBody(appDisplayName string) string {
	return fmt.Sprintf("Please let us know how to make %s better for you!", appDisplayName)
}
