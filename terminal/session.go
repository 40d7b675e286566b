package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	messagecenter "github.com/bishopmatthew/messagecenter"
)

// Controller is the part of messagecenter.Controller the terminal drives.
type Controller interface {
	State() messagecenter.SessionState
	OnFirstContactSend(address, body string) error
	OnFirstContactDismissedWithoutSending()
	OnThankYouChoice(wantsToSeeMessages bool) error
	OnBackPressed()
}

// Commands understood in the live view.
const (
	CommandQuit   = "/quit"
	CommandAttach = "/attach"
)

// Run reads user input from in and feeds it to c until the session stops or
// the input ends. It expects c to have been presented already. End of input
// in the live view closes the session like /quit.
func (s *Surface) Run(ctx context.Context, in io.Reader, c Controller) error {
	scanner := bufio.NewScanner(in)
	readLine := func(prompt string) (string, bool) {
		if prompt != "" {
			s.mu.Lock()
			fmt.Fprint(s.out, prompt)
			s.mu.Unlock()
		}
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		if err := ctx.Err(); err != nil {
			c.OnBackPressed()
			return err
		}
		if c.State() == messagecenter.StateStopped {
			return scanner.Err()
		}

		switch s.Mode() {
		case ModeFirstContact:
			if !s.runFirstContact(c, readLine) {
				return scanner.Err()
			}

		case ModeThankYou:
			line, _ := readLine("View your messages? [y/N]: ")
			wants := strings.EqualFold(line, "y") || strings.EqualFold(line, "yes")
			if err := c.OnThankYouChoice(wants); err != nil {
				return err
			}

		case ModeLive:
			line, ok := readLine("")
			if !ok || line == CommandQuit {
				c.OnBackPressed()
				return scanner.Err()
			}
			s.submitLive(line)

		default:
			logrus.WithFields(logrus.Fields{
				"function": "Run",
				"state":    c.State().String(),
			}).Debug("Nothing presented, leaving input loop")
			return nil
		}
	}
}

// runFirstContact collects the first-contact answers. It reports false when
// the dialog was dismissed.
func (s *Surface) runFirstContact(c Controller, readLine func(string) (string, bool)) bool {
	prompt := s.FirstContactPrompt()

	address := ""
	if prompt.ShowAddressField {
		label := "Email (optional): "
		if prompt.EmailRequired {
			label = "Email: "
		}
		if prompt.PrefilledAddress != "" {
			label = fmt.Sprintf("Email [%s]: ", prompt.PrefilledAddress)
		}
		line, ok := readLine(label)
		if !ok {
			c.OnFirstContactDismissedWithoutSending()
			return false
		}
		if line == "" {
			line = prompt.PrefilledAddress
		}
		address = line
	}

	body, ok := readLine("Message (empty to cancel): ")
	if !ok || body == "" {
		c.OnFirstContactDismissedWithoutSending()
		return false
	}

	if err := c.OnFirstContactSend(address, body); err != nil {
		switch {
		case errors.Is(err, messagecenter.ErrAddressRequired):
			s.ShowFailure("A valid email address is required.")
		default:
			s.ShowFailure(messagecenter.FailureSendMessage)
		}
		logrus.WithFields(logrus.Fields{
			"function": "runFirstContact",
			"error":    err.Error(),
		}).Warn("First-contact submission rejected")
	}
	return true
}

func (s *Surface) submitLive(line string) {
	if line == "" {
		return
	}
	events := s.Events()
	if events == nil {
		return
	}

	if ref, ok := strings.CutPrefix(line, CommandAttach+" "); ok {
		events.OnUserSubmittedAttachment(strings.TrimSpace(ref))
		return
	}
	events.OnUserSubmittedText(line)
}
