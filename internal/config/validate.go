package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validFormats = map[string]bool{
	"text": true,
	"json": true,
	"yaml": true,
}

const (
	minPollInterval = 50 * time.Millisecond
	maxPollInterval = time.Minute
	maxStopGrace    = 5 * time.Second
	maxEventBuffer  = 4096
)

// Validate checks the config for invalid values and returns all errors found.
// Values that would break the monitor are clamped to safe defaults.
func (c *Config) Validate() []error {
	var errs []error

	if c.PollInterval < minPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval %s is below minimum %s, clamping", c.PollInterval, minPollInterval))
		c.PollInterval = minPollInterval
	} else if c.PollInterval > maxPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval %s exceeds maximum %s, clamping", c.PollInterval, maxPollInterval))
		c.PollInterval = maxPollInterval
	}

	if c.StopGrace < 0 {
		errs = append(errs, fmt.Errorf("stop_grace %s is negative, clamping", c.StopGrace))
		c.StopGrace = 0
	} else if c.StopGrace > maxStopGrace {
		errs = append(errs, fmt.Errorf("stop_grace %s exceeds maximum %s, clamping", c.StopGrace, maxStopGrace))
		c.StopGrace = maxStopGrace
	}

	if c.EventBuffer < 1 {
		errs = append(errs, fmt.Errorf("event_buffer %d is below minimum 1, clamping", c.EventBuffer))
		c.EventBuffer = 1
	} else if c.EventBuffer > maxEventBuffer {
		errs = append(errs, fmt.Errorf("event_buffer %d exceeds maximum %d, clamping", c.EventBuffer, maxEventBuffer))
		c.EventBuffer = maxEventBuffer
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not recognized", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
		c.LogFormat = "text"
	}

	if !validFormats[strings.ToLower(c.OutputFormat)] {
		errs = append(errs, fmt.Errorf("output_format %q must be text, json or yaml", c.OutputFormat))
		c.OutputFormat = "text"
	}

	return errs
}
