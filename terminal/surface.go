package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	messagecenter "github.com/bishopmatthew/messagecenter"
	"github.com/bishopmatthew/messagecenter/messaging"
)

// Mode is what the surface is currently showing.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeFirstContact
	ModeThankYou
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeFirstContact:
		return "first-contact"
	case ModeThankYou:
		return "thank-you"
	case ModeLive:
		return "live"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

type styles struct {
	title   lipgloss.Style
	dialog  lipgloss.Style
	user    lipgloss.Style
	remote  lipgloss.Style
	body    lipgloss.Style
	meta    lipgloss.Style
	failure lipgloss.Style
	unread  lipgloss.Style
	pending lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		dialog: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1),
		user: r.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		remote: r.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true),
		body: r.NewStyle().
			PaddingLeft(2),
		meta: r.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		failure: r.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		unread: r.NewStyle().
			Foreground(lipgloss.Color("42")),
		pending: r.NewStyle().
			Foreground(lipgloss.Color("214")),
	}
}

// Surface renders a Message Center session to a terminal. It implements
// messagecenter.View and messagecenter.Dialogs. The terminal is append-only,
// so Render prints only messages not printed before.
type Surface struct {
	out    io.Writer
	styles styles

	mu        sync.Mutex
	mode      Mode
	printed   map[string]bool
	unread    int
	events    messagecenter.ViewEvents
	firstSeed messagecenter.FirstContactPrompt
}

var (
	_ messagecenter.View    = (*Surface)(nil)
	_ messagecenter.Dialogs = (*Surface)(nil)
)

// NewSurface creates a surface writing to out. Colors are used only when out
// is a color-capable terminal.
func NewSurface(out io.Writer) *Surface {
	return &Surface{
		out:     out,
		styles:  newStyles(lipgloss.NewRenderer(out)),
		printed: make(map[string]bool),
	}
}

// Mode returns what the surface is currently showing.
func (s *Surface) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// FirstContactPrompt returns the prompt of the current first-contact dialog.
func (s *Surface) FirstContactPrompt() messagecenter.FirstContactPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstSeed
}

// Unread returns the last reported unread count.
func (s *Surface) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Events returns the bound view events, or nil before Bind.
func (s *Surface) Events() messagecenter.ViewEvents {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

// Bind implements messagecenter.View.
func (s *Surface) Bind(events messagecenter.ViewEvents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// Render implements messagecenter.View.
func (s *Surface) Render(msgs []messaging.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeLive {
		s.mode = ModeLive
		fmt.Fprintln(s.out, s.styles.title.Render("Message Center"))
	}
	for _, m := range msgs {
		if s.printed[m.Nonce] {
			continue
		}
		s.printed[m.Nonce] = true
		fmt.Fprintln(s.out, s.formatMessage(m))
	}
}

func (s *Surface) formatMessage(m messaging.Message) string {
	var b strings.Builder

	if m.IsOutgoing() {
		b.WriteString(s.styles.user.Render("You"))
	} else {
		b.WriteString(s.styles.remote.Render("Support"))
	}
	b.WriteString(" ")
	b.WriteString(s.styles.meta.Render(m.CreatedAt.Format("Jan 2 15:04")))
	if m.IsOutgoing() && m.State != messaging.StateSent {
		b.WriteString(" ")
		b.WriteString(s.styles.pending.Render("(" + m.State.String() + ")"))
	}
	b.WriteString("\n")

	switch m.Kind {
	case messaging.KindFile:
		text := "[file]"
		if m.Attachment != nil {
			text = fmt.Sprintf("[file] %s (%s, %d bytes)", m.Attachment.Name, m.Attachment.MIMEType, m.Attachment.Size)
		}
		b.WriteString(s.styles.body.Render(text))
	default:
		b.WriteString(s.styles.body.Render(m.Body))
	}
	return b.String()
}

// ScrollToLatest implements messagecenter.View. A terminal always shows the
// latest line, so there is nothing to do.
func (s *Surface) ScrollToLatest() {}

// NotifyUnreadCount implements messagecenter.View.
func (s *Surface) NotifyUnreadCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == s.unread {
		return
	}
	s.unread = n
	if n > 0 {
		fmt.Fprintln(s.out, s.styles.unread.Render(fmt.Sprintf("%d unread", n)))
	}
}

// ShowFailure implements messagecenter.View.
func (s *Surface) ShowFailure(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, s.styles.failure.Render(text))
}

// ShowFirstContact implements messagecenter.Dialogs.
func (s *Surface) ShowFirstContact(prompt messagecenter.FirstContactPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = ModeFirstContact
	s.firstSeed = prompt

	content := s.styles.title.Render(prompt.Title) + "\n" + prompt.Body
	if prompt.ShowAddressField && prompt.EmailRequired {
		content += "\n" + s.styles.meta.Render("An email address is required.")
	}
	fmt.Fprintln(s.out, s.styles.dialog.Render(content))
}

// ShowThankYou implements messagecenter.Dialogs.
func (s *Surface) ShowThankYou(prompt messagecenter.ThankYouPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = ModeThankYou

	content := s.styles.title.Render("Thanks!") + "\n"
	if prompt.ValidEmailProvided {
		content += "We'll get back to you by email soon."
	} else {
		content += "We'll reply here as soon as we can."
	}
	fmt.Fprintln(s.out, s.styles.dialog.Render(content))
}

// Close marks the surface idle.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeIdle
}
