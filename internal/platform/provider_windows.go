//go:build windows

package platform

import (
	"fmt"

	"github.com/breeze-rmm/micwatch/pkg/models"
	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	modUser32               = windows.NewLazySystemDLL("user32.dll")
	modKernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procSetForegroundWindow = modUser32.NewProc("SetForegroundWindow")
	procShowWindow          = modUser32.NewProc("ShowWindow")
	procGetConsoleWindow    = modKernel32.NewProc("GetConsoleWindow")
)

const swRestore = 9

func init() {
	registerNative("windows", newWindowsProvider)
}

// windowsProvider reads audio sessions through WASAPI (Core Audio COM).
type windowsProvider struct {
	monitor *pollMonitor
}

func newWindowsProvider(opts Options) (Provider, error) {
	if err := modOle32.Load(); err != nil {
		return nil, fmt.Errorf("ole32 unavailable: %w", err)
	}
	p := &windowsProvider{}
	p.monitor = newPollMonitor(probeCapture, comThreadSetup, opts)
	return p, nil
}

func (p *windowsProvider) Name() string { return "windows" }

func (p *windowsProvider) Native() bool { return true }

// InputAudioProcesses returns executable paths of processes holding an
// active capture session.
func (p *windowsProvider) InputAudioProcesses() ([]string, error) {
	var paths []string
	err := withCOM(func() error {
		var enumErr *models.EnumerationError
		paths, enumErr = captureProcesses()
		if enumErr != nil {
			return enumErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// OutputAudioProcesses returns executable paths of processes holding an
// active, unmuted render session.
func (p *windowsProvider) OutputAudioProcesses() ([]string, error) {
	renders, err := p.RenderProcesses()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(renders))
	for _, r := range renders {
		paths = append(paths, processPath(r.PID))
	}
	return paths, nil
}

// RenderProcesses lists active render sessions with their device names.
func (p *windowsProvider) RenderProcesses() ([]models.RenderProcess, error) {
	var renders []models.RenderProcess
	err := withCOM(func() error {
		var enumErr *models.EnumerationError
		renders, enumErr = renderSessions()
		if enumErr != nil {
			return enumErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if renders == nil {
		renders = []models.RenderProcess{}
	}
	return renders, nil
}

func (p *windowsProvider) StartMicMonitor(cb MonitorCallback) (MonitorID, error) {
	return p.monitor.Start(cb)
}

func (p *windowsProvider) StopMicMonitor(id MonitorID) error {
	return p.monitor.Stop(id)
}

// ActivateWindow restores and foregrounds the console window, if any.
func (p *windowsProvider) ActivateWindow() error {
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		return nil
	}
	procShowWindow.Call(hwnd, swRestore)
	if ret, _, err := procSetForegroundWindow.Call(hwnd); ret == 0 {
		return fmt.Errorf("SetForegroundWindow failed: %w", err)
	}
	return nil
}

func comThreadSetup() (func(), *models.MonitorError) {
	if err := comInit(); err != nil {
		return nil, &models.MonitorError{
			Code:    hresult(err),
			Domain:  models.EnumerationDomain,
			Message: "Failed to initialize COM",
		}
	}
	return ole.CoUninitialize, nil
}

// probeCapture runs on the monitor's COM thread.
func probeCapture() (bool, *models.MonitorError) {
	active, devices, err := captureActivity()
	if err != nil {
		return false, &models.MonitorError{Code: err.Code, Domain: err.Domain, Message: err.Message}
	}
	if devices == 0 {
		return false, models.NewInfoError("No active capture devices")
	}
	return active, nil
}
