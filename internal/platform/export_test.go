package platform

import "github.com/breeze-rmm/micwatch/pkg/models"

// polledProvider is a native provider whose monitor is the shared poll
// monitor driven by an arbitrary sampler.
type polledProvider struct {
	monitor *pollMonitor
}

// NewPolledProvider returns a native provider for tests in other packages.
func NewPolledProvider(sample func() (bool, *models.MonitorError), opts Options) Provider {
	return &polledProvider{monitor: newPollMonitor(sample, nil, opts)}
}

func (p *polledProvider) Name() string { return "polled" }
func (p *polledProvider) Native() bool { return true }

func (p *polledProvider) StartMicMonitor(cb MonitorCallback) (MonitorID, error) {
	return p.monitor.Start(cb)
}

func (p *polledProvider) StopMicMonitor(id MonitorID) error {
	return p.monitor.Stop(id)
}
