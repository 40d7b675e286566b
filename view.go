package messagecenter

import "github.com/bishopmatthew/messagecenter/messaging"

// View is the live session surface. The controller pushes snapshots into it;
// it never drives the controller except through ViewEvents.
//
// Without a Dispatcher, Render, ScrollToLatest and NotifyUnreadCount are
// called from the poll goroutine and must not call Controller.Stop
// synchronously.
type View interface {
	// Render replaces the displayed thread with msgs.
	Render(msgs []messaging.Message)
	ScrollToLatest()
	// NotifyUnreadCount reports the unread count after each poll update.
	NotifyUnreadCount(n int)
	// ShowFailure surfaces a send failure to the user.
	ShowFailure(text string)
	// Bind subscribes the controller to user input.
	Bind(events ViewEvents)
}

// ViewEvents is the user input the controller subscribes to.
type ViewEvents interface {
	OnUserSubmittedText(body string)
	OnUserSubmittedAttachment(ref string)
}

// Dialogs shows the modal screens of the first-contact flow. The host
// reports the user's choices back through the Controller's On* methods.
type Dialogs interface {
	ShowFirstContact(prompt FirstContactPrompt)
	ShowThankYou(prompt ThankYouPrompt)
}

// FirstContactPrompt seeds the first-contact dialog.
type FirstContactPrompt struct {
	Trigger Trigger
	Title   string
	Body    string

	// ShowAddressField is false when a contact address is already known.
	ShowAddressField bool
	// PrefilledAddress holds the initial address when only that is known.
	PrefilledAddress string
	EmailRequired    bool
}

// ThankYouPrompt seeds the thank-you screen.
type ThankYouPrompt struct {
	ValidEmailProvided bool
}

// Dispatcher posts fn to the host's UI thread. A nil Dispatcher runs fn on
// the calling goroutine.
type Dispatcher func(fn func())

// Failure texts shown through View.ShowFailure.
const (
	FailureSendFile    = "Unable to send file."
	FailureSendMessage = "Unable to send message."
)
