package platform

import (
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
)

const unknownProcess = "Unknown"

// processPath resolves a PID to its executable path, falling back to the
// process name.
func processPath(pid int32) string {
	p, err := process.NewProcess(pid)
	if err != nil {
		return unknownProcess
	}
	if exe, err := p.Exe(); err == nil && exe != "" {
		return exe
	}
	if name, err := p.Name(); err == nil && name != "" {
		return name
	}
	return unknownProcess
}

// processName resolves a PID to the base name of its executable.
func processName(pid int32) string {
	p, err := process.NewProcess(pid)
	if err != nil {
		return unknownProcess
	}
	if name, err := p.Name(); err == nil && name != "" {
		return name
	}
	if exe, err := p.Exe(); err == nil && exe != "" {
		return filepath.Base(exe)
	}
	return unknownProcess
}
