package platform

import (
	"testing"
)

func TestCapabilityNamesRoundTrip(t *testing.T) {
	for _, c := range AllCapabilities {
		name := c.String()
		if name == "unknown" {
			t.Fatalf("capability %d has no name", c)
		}
		got, ok := ParseCapability(name)
		if !ok || got != c {
			t.Errorf("ParseCapability(%q) = %v, %v; want %v", name, got, ok, c)
		}
	}
	if _, ok := ParseCapability("record-audio"); ok {
		t.Error("ParseCapability accepted an unknown name")
	}
}

func TestCapabilitySetOperations(t *testing.T) {
	s := NewCapabilitySet(CapInputProcesses, CapActivateWindow)
	if !s.Has(CapInputProcesses) || !s.Has(CapActivateWindow) {
		t.Fatalf("set %s missing members", s)
	}
	if s.Has(CapStartMicMonitor) {
		t.Fatalf("set %s has unexpected member", s)
	}
	if s.Has(0) {
		t.Fatal("zero capability must never be a member")
	}

	grown := s.With(CapStartMicMonitor)
	if !grown.Has(CapStartMicMonitor) {
		t.Error("With did not add capability")
	}
	if s.Has(CapStartMicMonitor) {
		t.Error("With mutated the receiver")
	}

	shrunk := grown.Without(CapInputProcesses)
	if shrunk.Has(CapInputProcesses) {
		t.Error("Without did not remove capability")
	}
	if !grown.Has(CapInputProcesses) {
		t.Error("Without mutated the receiver")
	}
}

func TestCapabilitySetListOrder(t *testing.T) {
	s := NewCapabilitySet(CapActivateWindow, CapInputProcesses, CapRenderProcesses)
	got := s.List()
	want := []Capability{CapInputProcesses, CapRenderProcesses, CapActivateWindow}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if str := s.String(); str != "[activate-window enumerate-input-audio-processes enumerate-render-processes]" {
		t.Errorf("String() = %q", str)
	}
	if str := CapabilitySet(0).String(); str != "[]" {
		t.Errorf("empty String() = %q", str)
	}
}
