package async

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bishopmatthew/messagecenter/messaging"
)

// Fetcher asks the backend for new messages and merges them into the local
// store. It must eventually return, successfully or not.
type Fetcher interface {
	FetchNewMessages(ctx context.Context) error
}

// Snapshotter reads the full merged thread from the local store.
type Snapshotter interface {
	LoadAllMessages(ctx context.Context) ([]messaging.Message, error)
}

// UpdateFunc receives the full message list after each completed fetch.
type UpdateFunc func(msgs []messaging.Message)

// Poller runs the inbound fetch loop for a live session.
type Poller struct {
	fetcher      Fetcher
	snapshots    Snapshotter
	timeProvider TimeProvider
}

// NewPoller creates a poller. Nothing runs until Start is called.
func NewPoller(fetcher Fetcher, snapshots Snapshotter) *Poller {
	return &Poller{
		fetcher:   fetcher,
		snapshots: snapshots,
	}
}

// SetTimeProvider injects the clock used for tick scheduling.
func (p *Poller) SetTimeProvider(tp TimeProvider) {
	p.timeProvider = tp
}

// Start launches one polling goroutine and returns its handle. The first
// tick runs immediately. A non-positive interval is treated as one second.
//
// Ticks never overlap: the next fetch starts interval after the previous one
// started, or right after it completed when the fetch took longer than
// interval. onUpdated runs on the poll goroutine, in tick order, and must not
// call Stop on its own handle synchronously.
func (p *Poller) Start(interval time.Duration, onUpdated UpdateFunc) *PollHandle {
	if interval <= 0 {
		interval = time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &PollHandle{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"function": "Start",
		"interval": interval.String(),
	}).Info("Starting message polling")

	go p.pollLoop(h, interval, onUpdated)
	return h
}

// pollLoop runs ticks until the handle is stopped.
func (p *Poller) pollLoop(h *PollHandle, interval time.Duration, onUpdated UpdateFunc) {
	defer close(h.done)
	tp := getTimeProvider(p.timeProvider)

	for {
		if h.ctx.Err() != nil {
			break
		}

		started := tp.Now()
		p.tick(h, onUpdated)

		wait := interval - tp.Now().Sub(started)
		if wait < 0 {
			wait = 0
		}

		timer := tp.NewTimer(wait)
		select {
		case <-timer.C:
		case <-h.ctx.Done():
			timer.Stop()
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "pollLoop",
		"ticks":    h.ticks.Load(),
	}).Info("Stopped message polling")
}

// tick performs one fetch and delivers the resulting snapshot.
func (p *Poller) tick(h *PollHandle, onUpdated UpdateFunc) {
	n := h.ticks.Add(1)

	err := p.fetcher.FetchNewMessages(h.ctx)
	if h.ctx.Err() != nil {
		// Stopped while fetching: the result is dropped.
		return
	}
	if err != nil {
		h.failures.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "tick",
			"tick":     n,
			"error":    err.Error(),
		}).Warn("Message fetch failed, retrying next tick")
	}

	msgs, err := p.snapshots.LoadAllMessages(h.ctx)
	if err != nil {
		if h.ctx.Err() == nil {
			logrus.WithFields(logrus.Fields{
				"function": "tick",
				"tick":     n,
				"error":    err.Error(),
			}).Error("Failed to read message snapshot")
		}
		return
	}

	h.deliver(msgs, onUpdated)
}

// PollHandle controls one running poll loop.
type PollHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	deliverMu sync.Mutex
	stopped   bool

	ticks    atomic.Uint64
	failures atomic.Uint64
}

// deliver invokes onUpdated unless the handle has been stopped. The check
// and the call happen under deliverMu, which Stop also takes.
func (h *PollHandle) deliver(msgs []messaging.Message, onUpdated UpdateFunc) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()

	if h.stopped || onUpdated == nil {
		return
	}
	onUpdated(msgs)
}

// Stop cancels the loop. Once Stop returns no further update is delivered,
// even if a fetch was in flight. Stop is idempotent.
func (h *PollHandle) Stop() {
	h.cancel()

	h.deliverMu.Lock()
	h.stopped = true
	h.deliverMu.Unlock()
}

// Done is closed when the poll goroutine has exited.
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Ticks returns how many fetches have been started.
func (h *PollHandle) Ticks() uint64 {
	return h.ticks.Load()
}

// Failures returns how many fetches returned an error.
func (h *PollHandle) Failures() uint64 {
	return h.failures.Load()
}
