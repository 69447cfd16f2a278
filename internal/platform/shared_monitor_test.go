package platform_test

import (
	"sync"
	"testing"
	"time"

	"github.com/breeze-rmm/micwatch/internal/audiomon"
	"github.com/breeze-rmm/micwatch/internal/micstatus"
	"github.com/breeze-rmm/micwatch/internal/platform"
	"github.com/breeze-rmm/micwatch/pkg/models"
)

type micState struct {
	mu     sync.Mutex
	active bool
}

func (s *micState) read() (bool, *models.MonitorError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

func (s *micState) set(active bool) {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
}

func nextStatus(t *testing.T, sub *micstatus.Subscription, who string) models.MonitorEvent {
	t.Helper()
	select {
	case ev := <-sub.C():
		if ev.Kind != models.EventStatus {
			t.Fatalf("%s: got %s event, want status", who, ev.Kind)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: no event", who)
	}
	return models.MonitorEvent{}
}

func TestEmittersShareProviderIndependently(t *testing.T) {
	mic := &micState{}
	facade := audiomon.New(platform.NewPolledProvider(mic.read, platform.Options{PollInterval: 5 * time.Millisecond}))

	a := micstatus.New(facade, micstatus.WithStopGrace(20*time.Millisecond))
	b := micstatus.New(facade, micstatus.WithStopGrace(20*time.Millisecond))
	subA := a.Subscribe(16)
	subB := b.Subscribe(16)
	defer subA.Close()
	defer subB.Close()
	t.Cleanup(func() {
		a.Stop()
		b.Stop()
	})

	if err := a.Start(); err != nil {
		t.Fatalf("A.Start: %v", err)
	}
	if err := b.Start(); err != nil {
		t.Fatalf("B.Start: %v", err)
	}
	if ev := nextStatus(t, subA, "A initial"); ev.Active {
		t.Errorf("A initial active = true")
	}
	if ev := nextStatus(t, subB, "B initial"); ev.Active {
		t.Errorf("B initial active = true")
	}

	mic.set(true)
	if ev := nextStatus(t, subA, "A after change"); !ev.Active {
		t.Error("A missed the change while both were monitoring")
	}
	if ev := nextStatus(t, subB, "B after change"); !ev.Active {
		t.Error("B missed the change while both were monitoring")
	}

	if err := a.Stop(); err != nil {
		t.Fatalf("A.Stop: %v", err)
	}
	if b.State() != micstatus.Monitoring {
		t.Fatalf("B state after A.Stop = %s", b.State())
	}

	mic.set(false)
	if ev := nextStatus(t, subB, "B after A stopped"); ev.Active {
		t.Error("B reported active after the mic went idle")
	}
	select {
	case ev := <-subA.C():
		t.Errorf("A received %+v after Stop", ev)
	case <-time.After(20 * time.Millisecond):
	}
}
