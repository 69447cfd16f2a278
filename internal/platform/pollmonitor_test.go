package platform

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/breeze-rmm/micwatch/pkg/models"
)

type firing struct {
	active bool
	err    *models.MonitorError
}

// scriptedProbe replays a fixed sequence of samples, repeating the last one.
type scriptedProbe struct {
	mu      sync.Mutex
	samples []firing
	calls   int
}

func (s *scriptedProbe) probe() (bool, *models.MonitorError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.samples) {
		i = len(s.samples) - 1
	}
	s.calls++
	return s.samples[i].active, s.samples[i].err
}

func (s *scriptedProbe) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func collect(t *testing.T, ch <-chan firing, n int) []firing {
	t.Helper()
	out := make([]firing, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case f := <-ch:
			out = append(out, f)
		case <-timeout:
			t.Fatalf("received %d firings, want %d: %+v", len(out), n, out)
		}
	}
	return out
}

func testOptions() Options {
	return Options{PollInterval: 5 * time.Millisecond}
}

func TestPollMonitorReportsChangesOnly(t *testing.T) {
	sp := &scriptedProbe{samples: []firing{
		{active: false}, {active: false}, {active: true}, {active: true}, {active: false},
	}}
	m := newPollMonitor(sp.probe, nil, testOptions())

	ch := make(chan firing, 16)
	id, err := m.Start(func(active bool, err *models.MonitorError) { ch <- firing{active, err} })
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(id)

	got := collect(t, ch, 3)
	want := []bool{false, true, false}
	for i, f := range got {
		if f.err != nil || f.active != want[i] {
			t.Errorf("firing %d = %+v, want active=%v", i, f, want[i])
		}
	}

	// The probe keeps returning false; nothing more should be reported.
	for sp.callCount() < len(sp.samples)+3 {
		time.Sleep(time.Millisecond)
	}
	select {
	case f := <-ch:
		t.Errorf("unexpected firing after steady state: %+v", f)
	default:
	}
}

func TestPollMonitorErrorDedup(t *testing.T) {
	info := models.NewInfoError("No active capture devices")
	hard := &models.MonitorError{Code: 5, Domain: models.EnumerationDomain, Message: "Failed to create device enumerator"}
	sp := &scriptedProbe{samples: []firing{
		{err: info}, {err: info}, {err: hard}, {err: hard}, {active: false},
	}}
	m := newPollMonitor(sp.probe, nil, testOptions())

	ch := make(chan firing, 16)
	id, _ := m.Start(func(active bool, err *models.MonitorError) { ch <- firing{active, err} })
	defer m.Stop(id)

	got := collect(t, ch, 3)
	if got[0].err == nil || !got[0].err.IsInfo() {
		t.Errorf("first firing = %+v, want info error", got[0])
	}
	if got[1].err == nil || got[1].err.Code != 5 {
		t.Errorf("second firing = %+v, want hard error", got[1])
	}
	// A recovered status is reported even though active did not change.
	if got[2].err != nil || got[2].active {
		t.Errorf("third firing = %+v, want inactive status", got[2])
	}
}

func TestPollMonitorStopHaltsFirings(t *testing.T) {
	var (
		mu     sync.Mutex
		toggle bool
	)
	probe := func() (bool, *models.MonitorError) {
		mu.Lock()
		defer mu.Unlock()
		toggle = !toggle
		return toggle, nil
	}
	m := newPollMonitor(probe, nil, testOptions())

	ch := make(chan firing, 1024)
	id, _ := m.Start(func(active bool, err *models.MonitorError) { ch <- firing{active, err} })
	collect(t, ch, 2)

	if err := m.Stop(id); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := m.Stop(id); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	// Allow one in-flight firing, then expect silence.
	time.Sleep(20 * time.Millisecond)
	for len(ch) > 0 {
		<-ch
	}
	time.Sleep(30 * time.Millisecond)
	if n := len(ch); n != 0 {
		t.Errorf("%d firings after Stop", n)
	}
}

func TestPollMonitorThreadSetup(t *testing.T) {
	var torn = make(chan struct{})
	setup := func() (func(), *models.MonitorError) {
		return func() { close(torn) }, nil
	}
	m := newPollMonitor(func() (bool, *models.MonitorError) { return true, nil }, setup, testOptions())

	ch := make(chan firing, 4)
	id, _ := m.Start(func(active bool, err *models.MonitorError) { ch <- firing{active, err} })
	got := collect(t, ch, 1)
	if !got[0].active {
		t.Errorf("firing = %+v, want active", got[0])
	}

	m.Stop(id)
	select {
	case <-torn:
	case <-time.After(2 * time.Second):
		t.Fatal("teardown did not run after Stop")
	}
}

func TestPollMonitorThreadSetupFailure(t *testing.T) {
	setupErr := &models.MonitorError{Code: -2147221008, Domain: models.EnumerationDomain, Message: "Failed to initialize COM"}
	var probed atomic.Bool
	m := newPollMonitor(func() (bool, *models.MonitorError) {
		probed.Store(true)
		return true, nil
	}, func() (func(), *models.MonitorError) { return nil, setupErr }, testOptions())

	ch := make(chan firing, 4)
	id, _ := m.Start(func(active bool, err *models.MonitorError) { ch <- firing{active, err} })
	defer m.Stop(id)

	got := collect(t, ch, 1)
	if got[0].err != setupErr {
		t.Errorf("firing = %+v, want setup error", got[0])
	}
	time.Sleep(20 * time.Millisecond)
	if probed.Load() {
		t.Error("probe ran after setup failure")
	}
}

// switchableMic flips its reading whenever set is called.
type switchableMic struct {
	mu     sync.Mutex
	active bool
}

func (p *switchableMic) read() (bool, *models.MonitorError) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active, nil
}

func (p *switchableMic) set(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

func TestPollMonitorRegistrationsAreIndependent(t *testing.T) {
	tp := &switchableMic{}
	m := newPollMonitor(tp.read, nil, testOptions())

	chA := make(chan firing, 16)
	chB := make(chan firing, 16)
	idA, _ := m.Start(func(active bool, err *models.MonitorError) { chA <- firing{active, err} })
	idB, _ := m.Start(func(active bool, err *models.MonitorError) { chB <- firing{active, err} })
	defer m.Stop(idB)
	if idA == idB {
		t.Fatalf("registrations share id %d", idA)
	}

	// Each registration gets its own initial report.
	if got := collect(t, chA, 1); got[0].active {
		t.Errorf("A initial = %+v, want inactive", got[0])
	}
	if got := collect(t, chB, 1); got[0].active {
		t.Errorf("B initial = %+v, want inactive", got[0])
	}

	tp.set(true)
	if got := collect(t, chA, 1); !got[0].active {
		t.Errorf("A after change = %+v, want active", got[0])
	}
	if got := collect(t, chB, 1); !got[0].active {
		t.Errorf("B after change = %+v, want active", got[0])
	}

	// Removing A leaves B's feed running.
	if err := m.Stop(idA); err != nil {
		t.Fatalf("Stop(A): %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	for len(chA) > 0 {
		<-chA
	}

	tp.set(false)
	if got := collect(t, chB, 1); got[0].active {
		t.Errorf("B after A stopped = %+v, want inactive", got[0])
	}
	time.Sleep(20 * time.Millisecond)
	if n := len(chA); n != 0 {
		t.Errorf("A received %d firings after Stop", n)
	}
}

func TestPollMonitorLateJoinerGetsInitialReport(t *testing.T) {
	tp := &switchableMic{active: true}
	m := newPollMonitor(tp.read, nil, Options{PollInterval: time.Hour})

	chA := make(chan firing, 4)
	idA, _ := m.Start(func(active bool, err *models.MonitorError) { chA <- firing{active, err} })
	defer m.Stop(idA)
	collect(t, chA, 1)

	// With an hour-long interval only the join itself can trigger a sample.
	chB := make(chan firing, 4)
	idB, _ := m.Start(func(active bool, err *models.MonitorError) { chB <- firing{active, err} })
	defer m.Stop(idB)
	if got := collect(t, chB, 1); !got[0].active {
		t.Errorf("late joiner initial = %+v, want active", got[0])
	}
	time.Sleep(10 * time.Millisecond)
	if n := len(chA); n != 0 {
		t.Errorf("existing registration re-notified %d times without a change", n)
	}
}

func TestPollMonitorRestartsAfterLastStop(t *testing.T) {
	tp := &switchableMic{}
	m := newPollMonitor(tp.read, nil, testOptions())

	ch := make(chan firing, 4)
	id, _ := m.Start(func(active bool, err *models.MonitorError) { ch <- firing{active, err} })
	collect(t, ch, 1)
	m.Stop(id)

	m.mu.Lock()
	running := m.cancel != nil
	m.mu.Unlock()
	if running {
		t.Fatal("poll loop still running with no registrations")
	}

	ch2 := make(chan firing, 4)
	id2, _ := m.Start(func(active bool, err *models.MonitorError) { ch2 <- firing{active, err} })
	defer m.Stop(id2)
	collect(t, ch2, 1)
	if err := m.Stop(12345); err != nil {
		t.Errorf("Stop(unknown) = %v", err)
	}
}
