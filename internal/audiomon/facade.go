// Package audiomon is the single API surface over the resolved audio
// provider. Callers check Supports or Exposed rather than the platform to
// decide what they may call.
package audiomon

import (
	"github.com/breeze-rmm/micwatch/internal/platform"
	"github.com/breeze-rmm/micwatch/pkg/models"
	"go.uber.org/zap"
)

// nativeOnly capabilities are exposed only by native providers.
var nativeOnly = platform.NewCapabilitySet(
	platform.CapStartMicMonitor,
	platform.CapStopMicMonitor,
	platform.CapActivateWindow,
)

// Facade delegates to one provider. It holds no mutable state and performs
// no caching, so a single instance may be shared freely.
type Facade struct {
	provider platform.Provider
	caps     platform.CapabilitySet
	logger   *zap.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

// New builds a Facade over p.
func New(p platform.Provider, opts ...Option) *Facade {
	f := &Facade{
		provider: p,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}

	caps := platform.CapabilitiesOf(p)
	if !p.Native() {
		caps &^= nativeOnly
	}
	f.caps = caps
	f.logger = f.logger.With(zap.String("provider", p.Name()))
	return f
}

// Default builds a Facade over the process-wide provider.
func Default(opts ...Option) *Facade {
	return New(platform.Default(), opts...)
}

// ProviderName names the provider behind the façade.
func (f *Facade) ProviderName() string { return f.provider.Name() }

// Native reports whether the provider is a native one.
func (f *Facade) Native() bool { return f.provider.Native() }

// Capabilities returns the exposed capability set.
func (f *Facade) Capabilities() platform.CapabilitySet { return f.caps }

// Supports reports whether c is exposed.
func (f *Facade) Supports(c platform.Capability) bool { return f.caps.Has(c) }

// Exposed maps every known capability to whether it is exposed. Absent
// capabilities are present in the map as false.
func (f *Facade) Exposed() map[platform.Capability]bool {
	out := make(map[platform.Capability]bool, len(platform.AllCapabilities))
	for _, c := range platform.AllCapabilities {
		out[c] = f.caps.Has(c)
	}
	return out
}

func (f *Facade) unsupported(c platform.Capability) error {
	return platform.NewPlatformError(c, f.provider.Name())
}

// InputAudioProcesses returns descriptors of processes using the microphone.
// Failures are returned as errors; there is no in-band flag.
func (f *Facade) InputAudioProcesses() ([]string, error) {
	return f.snapshot(kindInput).Legacy()
}

// InputAudioProcessesWithResult returns the same enumeration as
// InputAudioProcesses wrapped in a ResultEnvelope.
func (f *Facade) InputAudioProcessesWithResult() models.ResultEnvelope {
	return f.snapshot(kindInputResult).Envelope()
}

// OutputAudioProcessesWithResult returns processes producing speaker audio.
func (f *Facade) OutputAudioProcessesWithResult() models.ResultEnvelope {
	return f.snapshot(kindOutputResult).Envelope()
}

// InputSnapshot runs one input enumeration whose legacy and envelope forms
// can both be read.
func (f *Facade) InputSnapshot() Snapshot {
	return f.snapshot(kindInput)
}

// RenderProcesses lists active render sessions with device detail.
func (f *Facade) RenderProcesses() ([]models.RenderProcess, error) {
	lister, ok := f.provider.(platform.RenderLister)
	if !ok || !f.Supports(platform.CapRenderProcesses) {
		return nil, f.unsupported(platform.CapRenderProcesses)
	}
	procs, err := lister.RenderProcesses()
	if err != nil {
		f.logger.Debug("render enumeration failed", zap.Error(err))
		return nil, err
	}
	if procs == nil {
		procs = []models.RenderProcess{}
	}
	return procs, nil
}

// StartMicMonitor registers cb with the native monitor. The returned id is
// passed to StopMicMonitor to remove this registration only.
func (f *Facade) StartMicMonitor(cb platform.MonitorCallback) (platform.MonitorID, error) {
	m, ok := f.provider.(platform.MicMonitor)
	if !ok || !f.Supports(platform.CapStartMicMonitor) {
		return 0, f.unsupported(platform.CapStartMicMonitor)
	}
	return m.StartMicMonitor(cb)
}

// StopMicMonitor removes the registration id from the native monitor.
func (f *Facade) StopMicMonitor(id platform.MonitorID) error {
	m, ok := f.provider.(platform.MicMonitor)
	if !ok || !f.Supports(platform.CapStopMicMonitor) {
		return f.unsupported(platform.CapStopMicMonitor)
	}
	return m.StopMicMonitor(id)
}

// ActivateWindow brings the calling process' window to the front.
func (f *Facade) ActivateWindow() error {
	a, ok := f.provider.(platform.WindowActivator)
	if !ok || !f.Supports(platform.CapActivateWindow) {
		return f.unsupported(platform.CapActivateWindow)
	}
	return a.ActivateWindow()
}
