package metrics

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Session lifecycle events.
const (
	EventLaunch           = "message_center__launch"
	EventIntroLaunch      = "message_center__intro__launch"
	EventIntroCancel      = "message_center__intro__cancel"
	EventIntroSend        = "message_center__intro__send"
	EventThankYouLaunch   = "message_center__thank_you__launch"
	EventThankYouClose    = "message_center__thank_you__close"
	EventThankYouMessages = "message_center__thank_you__messages"
	EventClose            = "message_center__close"
)

// Recorder receives session events. detail is the trigger for launch
// events and empty otherwise.
type Recorder interface {
	Record(event, detail string)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(event, detail string)

// Record calls f.
func (f RecorderFunc) Record(event, detail string) {
	f(event, detail)
}

// Nop discards every event.
type Nop struct{}

// Record does nothing.
func (Nop) Record(string, string) {}

// Safe wraps a recorder so that a panic inside it is logged and dropped.
// A nil recorder yields a no-op.
func Safe(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	if s, ok := r.(safeRecorder); ok {
		return s
	}
	return safeRecorder{inner: r}
}

type safeRecorder struct {
	inner Recorder
}

func (s safeRecorder) Record(event, detail string) {
	defer func() {
		if p := recover(); p != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Record",
				"event":    event,
				"panic":    fmt.Sprint(p),
			}).Warn("Metric recorder failed, event dropped")
		}
	}()
	s.inner.Record(event, detail)
}

// LogRecorder writes every event as a structured log entry.
type LogRecorder struct {
	Level logrus.Level
}

// NewLogRecorder creates a recorder logging at Info.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{Level: logrus.InfoLevel}
}

// Record logs the event.
func (l *LogRecorder) Record(event, detail string) {
	fields := logrus.Fields{
		"function": "Record",
		"event":    event,
	}
	if detail != "" {
		fields["detail"] = detail
	}
	logrus.WithFields(fields).Log(l.Level, "Metric event")
}

// Event is one recorded event.
type Event struct {
	Name   string
	Detail string
}

// Counter keeps recorded events in memory.
type Counter struct {
	mu     sync.Mutex
	events []Event
}

// Record appends the event.
func (c *Counter) Record(event, detail string) {
	c.mu.Lock()
	c.events = append(c.events, Event{Name: event, Detail: detail})
	c.mu.Unlock()
}

// Events returns the recorded events in order.
func (c *Counter) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Count returns how many times event was recorded.
func (c *Counter) Count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Name == event {
			n++
		}
	}
	return n
}

// Names returns the recorded event names in order.
func (c *Counter) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Name
	}
	return out
}

// Multi fans each event out to every recorder.
func Multi(recorders ...Recorder) Recorder {
	return RecorderFunc(func(event, detail string) {
		for _, r := range recorders {
			r.Record(event, detail)
		}
	})
}
