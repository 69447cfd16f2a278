//go:build darwin && cgo

package platform

import (
	"errors"

	"github.com/breeze-rmm/micwatch/pkg/models"
)

func init() {
	registerNative("darwin", newDarwinProvider)
}

// darwinProvider reads CoreAudio process objects. Without cgo darwin has no
// native provider and resolves to the fallback.
type darwinProvider struct {
	monitor *pollMonitor
}

func newDarwinProvider(opts Options) (Provider, error) {
	return &darwinProvider{
		monitor: newPollMonitor(probeMicrophone, nil, opts),
	}, nil
}

func (p *darwinProvider) Name() string { return "darwin" }

func (p *darwinProvider) Native() bool { return true }

// InputAudioProcesses returns bundle ids (or names) of processes running
// audio input.
func (p *darwinProvider) InputAudioProcesses() ([]string, error) {
	return p.descriptors(selRunningInput)
}

// OutputAudioProcesses returns bundle ids (or names) of processes running
// audio output.
func (p *darwinProvider) OutputAudioProcesses() ([]string, error) {
	return p.descriptors(selRunningOutput)
}

func (p *darwinProvider) descriptors(selector processFlag) ([]string, error) {
	procs, err := audioProcesses(selector)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(procs))
	for _, proc := range procs {
		out = append(out, proc.descriptor())
	}
	return out, nil
}

// RenderProcesses lists processes running output, attributed to the default
// output device.
func (p *darwinProvider) RenderProcesses() ([]models.RenderProcess, error) {
	procs, err := audioProcesses(selRunningOutput)
	if err != nil {
		return nil, err
	}
	device := defaultOutputName()
	out := make([]models.RenderProcess, 0, len(procs))
	for _, proc := range procs {
		out = append(out, models.RenderProcess{
			PID:    proc.pid,
			Name:   processName(proc.pid),
			Device: device,
			Active: true,
		})
	}
	return out, nil
}

func (p *darwinProvider) StartMicMonitor(cb MonitorCallback) (MonitorID, error) {
	return p.monitor.Start(cb)
}

func (p *darwinProvider) StopMicMonitor(id MonitorID) error {
	return p.monitor.Stop(id)
}

// ActivateWindow brings the current application to the front.
func (p *darwinProvider) ActivateWindow() error {
	if !activateCurrentApplication() {
		return errors.New("application could not be activated")
	}
	return nil
}
