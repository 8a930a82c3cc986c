// Package dispatcher routes inbound events to their session, applies the
// conversation machine and hands the replies to a transport.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-bot/internal/conversation"
	"github.com/i474232898/weather-bot/internal/observability"
	"github.com/i474232898/weather-bot/internal/store"
)

var (
	// ErrClosed is returned for events submitted after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrCancelled is returned by Do when a later cancel command superseded the event.
	ErrCancelled = errors.New("event superseded by cancel")
	// ErrNoSender is returned by Submit when no transport is attached.
	ErrNoSender = errors.New("no sender configured")
)

// SessionStore loads and saves sessions. Get returns store.ErrNotFound for a
// session that does not exist yet.
type SessionStore interface {
	Get(ctx context.Context, id string) (conversation.Session, error)
	Put(ctx context.Context, sess conversation.Session) error
}

// Sender delivers one reply to the transport that owns the session.
type Sender interface {
	Send(ctx context.Context, sessionID string, r conversation.Reply) error
}

// Handler applies one event to a session.
type Handler interface {
	Handle(ctx context.Context, s conversation.Session, ev conversation.Event) (conversation.Session, []conversation.Reply)
}

type result struct {
	replies []conversation.Reply
	err     error
}

type item struct {
	ev conversation.Event
	// ctx is the epoch the event was queued in; a cancel command ends it.
	ctx  context.Context
	done chan result
}

// entry is the queue of one session. At most one goroutine drains it.
type entry struct {
	queue   []item
	running bool

	epoch  context.Context
	cancel context.CancelFunc
}

func (e *entry) newEpoch(parent context.Context) {
	e.epoch, e.cancel = context.WithCancel(parent)
}

// Dispatcher processes each session's events in arrival order while running
// up to a fixed number of sessions in parallel.
type Dispatcher struct {
	handler Handler
	store   SessionStore
	sender  Sender
	logger  *slog.Logger
	metrics *observability.Metrics

	sem chan struct{}

	base       context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Dispatcher. sender may be nil when only Do is used.
func New(
	handler Handler,
	sessions SessionStore,
	sender Sender,
	maxConcurrent int,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		handler:    handler,
		store:      sessions,
		sender:     sender,
		logger:     logger,
		metrics:    metrics,
		sem:        make(chan struct{}, maxConcurrent),
		base:       base,
		cancelBase: cancel,
		sessions:   make(map[string]*entry),
	}
}

// Submit queues ev and returns immediately. Replies are delivered through the
// Sender.
func (d *Dispatcher) Submit(ev conversation.Event) error {
	if d.sender == nil {
		return ErrNoSender
	}
	return d.enqueue(ev, nil)
}

// Do queues ev behind the session's earlier events and waits for its replies.
// It returns ErrCancelled if a cancel command overtook the event.
func (d *Dispatcher) Do(ctx context.Context, ev conversation.Event) ([]conversation.Reply, error) {
	done := make(chan result, 1)
	if err := d.enqueue(ev, done); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.replies, r.err
	}
}

func (d *Dispatcher) enqueue(ev conversation.Event, done chan result) error {
	if ev.SessionID == "" {
		return fmt.Errorf("event has no session id")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}

	e, ok := d.sessions[ev.SessionID]
	if !ok {
		e = &entry{}
		e.newEpoch(d.base)
		d.sessions[ev.SessionID] = e
	}

	// Everything queued or running before the cancel belongs to the old epoch.
	if ev.IsCancel() {
		e.cancel()
		e.newEpoch(d.base)
	}

	e.queue = append(e.queue, item{ev: ev, ctx: e.epoch, done: done})
	if !e.running {
		e.running = true
		d.wg.Add(1)
		go d.drain(ev.SessionID, e)
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.EventsReceived.WithLabelValues(string(ev.Kind)).Inc()
	}
	d.logger.Debug("event queued", "session_id", ev.SessionID, "event_id", ev.ID, "kind", ev.Kind)
	return nil
}

func (d *Dispatcher) drain(id string, e *entry) {
	defer d.wg.Done()

	d.sem <- struct{}{}
	if d.metrics != nil {
		d.metrics.ActiveSessionWorkers.Inc()
	}
	defer func() {
		<-d.sem
		if d.metrics != nil {
			d.metrics.ActiveSessionWorkers.Dec()
		}
	}()

	for {
		d.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			if d.sessions[id] == e {
				delete(d.sessions, id)
			}
			e.cancel()
			d.mu.Unlock()
			return
		}
		it := e.queue[0]
		e.queue = e.queue[1:]
		d.mu.Unlock()

		d.process(id, it)
	}
}

func (d *Dispatcher) process(id string, it item) {
	logger := d.logger.With("session_id", id, "event_id", it.ev.ID)

	if it.ctx.Err() != nil {
		logger.Debug("event dropped after cancel")
		d.finish(it, result{err: ErrCancelled})
		return
	}

	sess, err := d.store.Get(d.base, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		sess = conversation.Session{ID: id, State: conversation.StateNone}
	case err != nil:
		logger.Error("load session failed; starting fresh", "error", err)
		sess = conversation.Session{ID: id, State: conversation.StateNone}
	}

	next, replies := d.handler.Handle(it.ctx, sess, it.ev)

	if it.ctx.Err() != nil {
		logger.Info("replies discarded after cancel", "count", len(replies))
		d.discarded(len(replies))
		d.finish(it, result{err: ErrCancelled})
		return
	}

	if err := d.store.Put(d.base, next); err != nil {
		logger.Error("save session failed", "state", next.State, "error", err)
	}

	if it.done != nil {
		d.sent(len(replies))
		d.finish(it, result{replies: replies})
		return
	}

	for i, r := range replies {
		if it.ctx.Err() != nil {
			d.discarded(len(replies) - i)
			return
		}
		if err := d.sender.Send(d.base, id, r); err != nil {
			logger.Warn("reply delivery failed", "error", err)
			if d.metrics != nil {
				d.metrics.DeliveryErrors.Inc()
			}
			continue
		}
		d.sent(1)
	}
}

func (d *Dispatcher) finish(it item, r result) {
	if it.done != nil {
		it.done <- r
	}
}

func (d *Dispatcher) sent(n int) {
	if d.metrics != nil {
		d.metrics.RepliesSent.Add(float64(n))
	}
}

func (d *Dispatcher) discarded(n int) {
	if d.metrics != nil {
		d.metrics.RepliesDiscarded.Add(float64(n))
	}
}

// Close stops accepting events and waits until every queued event has been
// processed or ctx expires. In-flight work is cancelled on expiry.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	defer d.cancelBase()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
