package platform

import (
	"time"

	"github.com/breeze-rmm/micwatch/pkg/models"
	"go.uber.org/zap"
)

// MonitorCallback receives one native monitoring firing. err is nil for a
// plain status update.
type MonitorCallback func(active bool, err *models.MonitorError)

// Provider is a per-platform source of audio monitoring primitives. The
// operations it offers are discovered through the optional interfaces below.
type Provider interface {
	Name() string
	Native() bool
}

// InputLister enumerates processes consuming microphone audio. Both the
// legacy and the envelope entry points are served from it.
type InputLister interface {
	InputAudioProcesses() ([]string, error)
}

// OutputLister enumerates processes producing speaker audio.
type OutputLister interface {
	OutputAudioProcesses() ([]string, error)
}

// RenderLister enumerates render sessions with device detail.
type RenderLister interface {
	RenderProcesses() ([]models.RenderProcess, error)
}

// MonitorID identifies one callback registration with a MicMonitor.
type MonitorID uint64

// MicMonitor pushes microphone activity changes to callbacks. Any number of
// registrations may be active at once; StopMicMonitor removes only the one
// named by id and must not block on in-flight callbacks.
type MicMonitor interface {
	StartMicMonitor(cb MonitorCallback) (MonitorID, error)
	StopMicMonitor(id MonitorID) error
}

// WindowActivator brings the calling process' window to the front.
type WindowActivator interface {
	ActivateWindow() error
}

// Options configures native providers at resolution time.
type Options struct {
	PollInterval time.Duration
	Logger       *zap.Logger
}

// DefaultOptions returns the options used by Default().
func DefaultOptions() Options {
	return Options{
		PollInterval: 500 * time.Millisecond,
		Logger:       zap.NewNop(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.Logger == nil {
		o.Logger = def.Logger
	}
	return o
}

// CapabilitiesOf reports what p implements, regardless of whether it is native.
func CapabilitiesOf(p Provider) CapabilitySet {
	var s CapabilitySet
	if _, ok := p.(InputLister); ok {
		s = s.With(CapInputProcesses).With(CapInputProcessesWithResult)
	}
	if _, ok := p.(OutputLister); ok {
		s = s.With(CapOutputProcessesWithResult)
	}
	if _, ok := p.(RenderLister); ok {
		s = s.With(CapRenderProcesses)
	}
	if _, ok := p.(MicMonitor); ok {
		s = s.With(CapStartMicMonitor).With(CapStopMicMonitor)
	}
	if _, ok := p.(WindowActivator); ok {
		s = s.With(CapActivateWindow)
	}
	return s
}
