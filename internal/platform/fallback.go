package platform

import "github.com/breeze-rmm/micwatch/pkg/models"

// FallbackName identifies the Fallback provider.
const FallbackName = "fallback"

// Fallback implements every capability with a neutral, side-effect-free
// response so callers never need platform checks to avoid failures.
type Fallback struct{}

// NewFallback returns the Fallback provider.
func NewFallback() *Fallback {
	return &Fallback{}
}

func (f *Fallback) Name() string { return FallbackName }

func (f *Fallback) Native() bool { return false }

// InputAudioProcesses returns two placeholder descriptors.
func (f *Fallback) InputAudioProcesses() ([]string, error) {
	return []string{"", ""}, nil
}

// OutputAudioProcesses returns an empty list.
func (f *Fallback) OutputAudioProcesses() ([]string, error) {
	return []string{}, nil
}

// RenderProcesses returns an empty list.
func (f *Fallback) RenderProcesses() ([]models.RenderProcess, error) {
	return []models.RenderProcess{}, nil
}

// StartMicMonitor is a no-op; the callback is never invoked.
func (f *Fallback) StartMicMonitor(MonitorCallback) (MonitorID, error) { return 0, nil }

// StopMicMonitor is a no-op.
func (f *Fallback) StopMicMonitor(MonitorID) error { return nil }

// ActivateWindow is a no-op.
func (f *Fallback) ActivateWindow() error { return nil }
