package platform

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/breeze-rmm/micwatch/pkg/models"
	"go.uber.org/zap"
)

// probeFunc samples microphone activity once.
type probeFunc func() (active bool, err *models.MonitorError)

// threadSetup prepares the polling goroutine's OS thread (e.g. COM) and
// returns its teardown.
type threadSetup func() (teardown func(), err *models.MonitorError)

// registration tracks what one caller has been told so far.
type registration struct {
	cb       MonitorCallback
	reported bool
	last     bool
	lastErr  *models.MonitorError
}

type delivery struct {
	cb     MonitorCallback
	active bool
	err    *models.MonitorError
}

// pollMonitor turns a sampling probe into change-driven callback streams.
// One poll loop serves every registration; it runs while at least one
// registration exists. Each registration gets the state once when it joins,
// then only changes. Errors are reported when they differ from the last one
// that registration was given.
type pollMonitor struct {
	probe    probeFunc
	setup    threadSetup
	interval time.Duration
	logger   *zap.Logger
	kick     chan struct{}

	mu     sync.Mutex
	nextID MonitorID
	regs   map[MonitorID]*registration
	cancel context.CancelFunc
}

func newPollMonitor(probe probeFunc, setup threadSetup, opts Options) *pollMonitor {
	opts = opts.withDefaults()
	return &pollMonitor{
		probe:    probe,
		setup:    setup,
		interval: opts.PollInterval,
		logger:   opts.Logger,
		kick:     make(chan struct{}, 1),
		regs:     make(map[MonitorID]*registration),
	}
}

// Start adds a registration and returns its id. Other registrations are
// left untouched.
func (m *pollMonitor) Start(cb MonitorCallback) (MonitorID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.regs[id] = &registration{cb: cb}

	if m.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		go m.run(ctx)
	} else {
		// Sample now so the newcomer gets its initial report promptly.
		select {
		case m.kick <- struct{}{}:
		default:
		}
	}
	m.logger.Debug("mic monitor registration added", zap.Uint64("registration", uint64(id)), zap.Int("registrations", len(m.regs)))
	return id, nil
}

// Stop removes one registration without waiting for the poll goroutine, so
// it is safe to call from inside the callback. One in-flight firing may
// still arrive. The loop ends with the last registration. Unknown ids are
// ignored.
func (m *pollMonitor) Stop(id MonitorID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.regs, id)
	if len(m.regs) == 0 && m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	return nil
}

func (m *pollMonitor) run(ctx context.Context) {
	if m.setup != nil {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		teardown, err := m.setup()
		if err != nil {
			m.fail(ctx, err)
			return
		}
		defer teardown()
	}

	check := func() {
		active, err := m.probe()
		for _, d := range m.deliveries(ctx, active, err) {
			d.cb(d.active, d.err)
		}
	}

	check()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		case <-m.kick:
			check()
		}
	}
}

// deliveries applies one sample to every registration and returns the
// callbacks due. Callbacks run outside the lock.
func (m *pollMonitor) deliveries(ctx context.Context, active bool, err *models.MonitorError) []delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	var out []delivery
	for _, r := range m.regs {
		if err != nil {
			if r.lastErr == nil || *r.lastErr != *err {
				r.lastErr = err
				r.reported = false
				out = append(out, delivery{cb: r.cb, err: err})
			}
			continue
		}
		r.lastErr = nil
		if !r.reported || active != r.last {
			r.reported = true
			r.last = active
			out = append(out, delivery{cb: r.cb, active: active})
		}
	}
	if err != nil && len(out) > 0 {
		m.logger.Debug("mic probe error", zap.Int("code", err.Code), zap.String("domain", err.Domain), zap.String("message", err.Message))
	}
	return out
}

// fail reports a thread setup error to current registrations and lets the
// next Start begin a fresh loop.
func (m *pollMonitor) fail(ctx context.Context, err *models.MonitorError) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.cancel()
	m.cancel = nil
	cbs := make([]MonitorCallback, 0, len(m.regs))
	for _, r := range m.regs {
		r.lastErr = err
		r.reported = false
		cbs = append(cbs, r.cb)
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(false, err)
	}
}
