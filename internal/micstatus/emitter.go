// Package micstatus turns the native microphone monitor callback into a
// typed stream of status, info and error events.
package micstatus

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/breeze-rmm/micwatch/internal/audiomon"
	"github.com/breeze-rmm/micwatch/internal/logging"
	"github.com/breeze-rmm/micwatch/internal/platform"
	"github.com/breeze-rmm/micwatch/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultStopGrace bounds how long Stop waits for an in-flight dispatch.
const DefaultStopGrace = 250 * time.Millisecond

// State is the emitter lifecycle state.
type State int32

const (
	Idle State = iota
	Monitoring
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Monitoring:
		return "monitoring"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Listener receives events synchronously on the dispatch goroutine.
type Listener func(models.MonitorEvent)

// Emitter owns at most one native monitor registration at a time.
//
// Each Start tags its callback with a generation number. Stop advances the
// generation, so firings that arrive after Stop are recognised as stale and
// dropped. Delivery is serialized through a single-slot semaphore, which
// keeps events in firing order.
type Emitter struct {
	facade *audiomon.Facade
	logger *zap.Logger
	grace  time.Duration
	now    func() time.Time

	mu        sync.Mutex
	state     State
	session   string
	quit      chan struct{}
	monitorID platform.MonitorID
	stoppedAt time.Time

	gen      atomic.Uint64
	dropped  atomic.Uint64
	dispatch chan struct{}

	subMu     sync.Mutex
	nextID    uint64
	listeners []listenerEntry
	subs      []*Subscription
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStopGrace sets how long Stop waits for an in-flight dispatch.
func WithStopGrace(d time.Duration) Option {
	return func(e *Emitter) {
		if d >= 0 {
			e.grace = d
		}
	}
}

// WithClock replaces the clock used to timestamp events.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an idle Emitter on top of f.
func New(f *audiomon.Facade, opts ...Option) *Emitter {
	e := &Emitter{
		facade:   f,
		logger:   zap.NewNop(),
		grace:    DefaultStopGrace,
		now:      time.Now,
		dispatch: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Emitter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SessionID returns the id of the current monitoring session, or "" when idle.
func (e *Emitter) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// StoppedAt returns when the last session was stopped.
func (e *Emitter) StoppedAt() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stoppedAt
}

// Dropped counts firings discarded because they arrived after Stop.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Start registers a callback with the native monitor. Calling Start while
// already monitoring does nothing. If the façade does not expose monitoring
// the returned error matches platform.ErrNotSupported.
func (e *Emitter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Monitoring {
		return nil
	}
	if !e.facade.Supports(platform.CapStartMicMonitor) {
		return platform.NewPlatformError(platform.CapStartMicMonitor, e.facade.ProviderName())
	}

	gen := e.gen.Add(1)
	quit := make(chan struct{})
	id, err := e.facade.StartMicMonitor(e.callback(gen, quit))
	if err != nil {
		e.gen.Add(1)
		close(quit)
		return fmt.Errorf("start mic monitor: %w", err)
	}

	e.state = Monitoring
	e.monitorID = id
	e.quit = quit
	e.session = uuid.NewString()
	e.logger.Debug("mic monitoring started", zap.String(logging.KeySession, e.session))
	return nil
}

// Stop deregisters the native callback and waits, at most the stop grace,
// for an event being dispatched to finish. No event is delivered once Stop
// has returned. Stop is safe from any state; called from a listener it
// returns after the grace period.
func (e *Emitter) Stop() error {
	e.mu.Lock()
	if e.state == Idle {
		e.mu.Unlock()
		return nil
	}

	e.gen.Add(1)
	e.stoppedAt = e.now()
	close(e.quit)
	e.quit = nil
	session := e.session
	e.session = ""
	e.state = Idle
	err := e.facade.StopMicMonitor(e.monitorID)
	e.monitorID = 0
	e.mu.Unlock()

	timer := time.NewTimer(e.grace)
	defer timer.Stop()
	select {
	case e.dispatch <- struct{}{}:
		<-e.dispatch
	case <-timer.C:
		e.logger.Debug("stop grace elapsed with dispatch in flight", zap.String(logging.KeySession, session))
	}

	e.logger.Debug("mic monitoring stopped", zap.String(logging.KeySession, session))
	if err != nil {
		return fmt.Errorf("stop mic monitor: %w", err)
	}
	return nil
}

func (e *Emitter) callback(gen uint64, quit <-chan struct{}) platform.MonitorCallback {
	return func(active bool, err *models.MonitorError) {
		at := e.now()

		select {
		case e.dispatch <- struct{}{}:
		case <-quit:
			e.drop(at)
			return
		}
		defer func() { <-e.dispatch }()

		if e.gen.Load() != gen {
			e.drop(at)
			return
		}
		e.deliver(gen, classify(active, err, at), quit)
	}
}

func (e *Emitter) drop(at time.Time) {
	e.dropped.Add(1)
	e.logger.Debug("late monitor callback dropped", zap.Time("fired_at", at))
}

// classify maps one callback firing to exactly one event.
func classify(active bool, err *models.MonitorError, at time.Time) models.MonitorEvent {
	switch {
	case err == nil:
		return models.StatusEvent(active, at)
	case err.IsInfo():
		return models.InfoEvent(err, at)
	default:
		return models.ErrorEvent(err, at)
	}
}

// deliver hands ev to listeners, then subscriptions. It stops early if a
// listener stopped the session.
func (e *Emitter) deliver(gen uint64, ev models.MonitorEvent, quit <-chan struct{}) {
	e.subMu.Lock()
	listeners := make([]Listener, len(e.listeners))
	for i, l := range e.listeners {
		listeners[i] = l.fn
	}
	subs := make([]*Subscription, len(e.subs))
	copy(subs, e.subs)
	e.subMu.Unlock()

	for _, fn := range listeners {
		if e.gen.Load() != gen {
			return
		}
		fn(ev)
	}
	for _, sub := range subs {
		if e.gen.Load() != gen {
			return
		}
		sub.send(ev, quit)
	}
}

// On adds a listener and returns a function that removes it.
func (e *Emitter) On(fn Listener) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			for i, l := range e.listeners {
				if l.id == id {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (e *Emitter) removeSubscription(s *Subscription) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for i, sub := range e.subs {
		if sub == s {
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			return
		}
	}
}
