package messagecenter

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/bishopmatthew/messagecenter/messaging"
)

var _ ViewEvents = (*Controller)(nil)

// onPollUpdated receives a snapshot from poll loop gen. Updates from a loop
// that is no longer current are dropped, including ones already posted to
// the Dispatcher when Stop ran.
func (c *Controller) onPollUpdated(gen uint64, msgs []messaging.Message) {
	c.dispatch(func() {
		c.mu.Lock()
		if c.state != StateLive || c.pollGen != gen {
			c.mu.Unlock()
			return
		}
		msgs = withUnsavedSends(msgs, c.shown)
		c.shown = msgs
		c.mu.Unlock()

		c.renderSnapshot(msgs, true)
	})
}

// withUnsavedSends appends the user messages in shown that snapshot does not
// contain yet. A snapshot read before a send can be delivered after the send
// was appended; messages are never deleted, so a missing nonce is newer.
func withUnsavedSends(snapshot, shown []messaging.Message) []messaging.Message {
	have := make(map[string]struct{}, len(snapshot))
	for _, m := range snapshot {
		have[m.Nonce] = struct{}{}
	}

	out := snapshot
	for _, m := range shown {
		if m.Sender != messaging.SenderUser {
			continue
		}
		if _, ok := have[m.Nonce]; ok {
			continue
		}
		if len(out) == len(snapshot) {
			out = append(make([]messaging.Message, 0, len(snapshot)+1), snapshot...)
		}
		out = append(out, m)
	}
	return out
}

// renderSnapshot pushes msgs to the view. notify also reports the unread
// count, which is done after every poll update.
func (c *Controller) renderSnapshot(msgs []messaging.Message, notify bool) {
	c.view.Render(msgs)
	c.view.ScrollToLatest()
	if notify {
		c.view.NotifyUnreadCount(messaging.UnreadCount(msgs))
	}
}

// OnUserSubmittedText queues body and appends it to the live view.
func (c *Controller) OnUserSubmittedText(body string) {
	if !c.isLive("OnUserSubmittedText") {
		return
	}

	msg, err := c.sink.SendText(context.Background(), body)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OnUserSubmittedText",
			"error":    err.Error(),
		}).Error("Failed to send message")
		c.dispatch(func() { c.view.ShowFailure(FailureSendMessage) })
		return
	}
	c.appendSent(*msg)
}

// OnUserSubmittedAttachment queues the file at ref and appends it to the
// live view. A source that cannot be read is reported to the user.
func (c *Controller) OnUserSubmittedAttachment(ref string) {
	if !c.isLive("OnUserSubmittedAttachment") {
		return
	}

	msg, err := c.sink.SendFile(context.Background(), ref)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OnUserSubmittedAttachment",
			"error":    err.Error(),
		}).Warn("Failed to send file")
		c.dispatch(func() { c.view.ShowFailure(FailureSendFile) })
		return
	}
	c.appendSent(*msg)
}

func (c *Controller) isLive(function string) bool {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state != StateLive {
		logrus.WithFields(logrus.Fields{
			"function": function,
			"state":    state.String(),
		}).Warn("Ignoring user input outside a live session")
		return false
	}
	return true
}

// appendSent renders the displayed thread with msg appended.
func (c *Controller) appendSent(msg messaging.Message) {
	c.mu.Lock()
	if c.state != StateLive {
		c.mu.Unlock()
		return
	}
	next := make([]messaging.Message, len(c.shown), len(c.shown)+1)
	copy(next, c.shown)
	next = append(next, msg)
	c.shown = next
	c.mu.Unlock()

	c.dispatch(func() { c.renderSnapshot(next, false) })
}
