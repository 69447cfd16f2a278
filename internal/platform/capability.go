// Package platform resolves the audio capability provider for the running
// operating system. Native providers register themselves from build-tagged
// files; every other platform gets the Fallback provider.
package platform

import (
	"sort"
	"strings"
)

// Capability names a single operation a provider can offer.
type Capability uint16

const (
	CapInputProcesses Capability = 1 << iota
	CapInputProcessesWithResult
	CapOutputProcessesWithResult
	CapRenderProcesses
	CapStartMicMonitor
	CapStopMicMonitor
	CapActivateWindow
)

var capabilityNames = map[Capability]string{
	CapInputProcesses:            "enumerate-input-audio-processes",
	CapInputProcessesWithResult:  "enumerate-input-audio-processes-with-result",
	CapOutputProcessesWithResult: "enumerate-output-audio-processes-with-result",
	CapRenderProcesses:           "enumerate-render-processes",
	CapStartMicMonitor:           "start-mic-monitor",
	CapStopMicMonitor:            "stop-mic-monitor",
	CapActivateWindow:            "activate-window",
}

// AllCapabilities lists every known capability in declaration order.
var AllCapabilities = []Capability{
	CapInputProcesses,
	CapInputProcessesWithResult,
	CapOutputProcessesWithResult,
	CapRenderProcesses,
	CapStartMicMonitor,
	CapStopMicMonitor,
	CapActivateWindow,
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCapability looks up a capability by name.
func ParseCapability(name string) (Capability, bool) {
	for c, n := range capabilityNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}

// CapabilitySet is an immutable set of capabilities.
type CapabilitySet uint16

// NewCapabilitySet builds a set from individual capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= CapabilitySet(c)
	}
	return s
}

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	return c != 0 && s&CapabilitySet(c) == CapabilitySet(c)
}

// With returns a copy of the set including c.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | CapabilitySet(c)
}

// Without returns a copy of the set excluding c.
func (s CapabilitySet) Without(c Capability) CapabilitySet {
	return s &^ CapabilitySet(c)
}

// List returns the members in declaration order.
func (s CapabilitySet) List() []Capability {
	var out []Capability
	for _, c := range AllCapabilities {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Names returns the sorted member names.
func (s CapabilitySet) Names() []string {
	var names []string
	for _, c := range s.List() {
		names = append(names, c.String())
	}
	sort.Strings(names)
	return names
}

func (s CapabilitySet) String() string {
	return "[" + strings.Join(s.Names(), " ") + "]"
}
