package models

import (
	"errors"
	"fmt"
	"time"
)

// Error identity for informational (non-fatal) conditions reported through
// the monitoring callback, e.g. microphone permission not yet determined.
const (
	InfoErrorCode = 1
	ErrorDomain   = "com.MicrophoneUsageMonitor"
)

// EnumerationDomain is the domain attached to enumeration failures when the
// provider does not supply one.
const EnumerationDomain = "AudioProcessMonitor"

// CodeUnknown is used when an enumeration failure carries no native code.
const CodeUnknown = -1

// ResultEnvelope is the structured result of a process enumeration.
// Success implies Error, Code and Domain are nil. Failure implies an empty
// Processes slice and a non-empty Error.
type ResultEnvelope struct {
	Success   bool     `json:"success" yaml:"success"`
	Error     *string  `json:"error" yaml:"error"`
	Code      *int     `json:"code,omitempty" yaml:"code,omitempty"`
	Domain    *string  `json:"domain,omitempty" yaml:"domain,omitempty"`
	Processes []string `json:"processes" yaml:"processes"`
}

// SuccessEnvelope wraps processes in a successful envelope. A nil slice is
// replaced with an empty one so the envelope always encodes a list.
func SuccessEnvelope(processes []string) ResultEnvelope {
	if processes == nil {
		processes = []string{}
	}
	return ResultEnvelope{Success: true, Processes: processes}
}

// FailureEnvelope builds a failed envelope from an enumeration error.
func FailureEnvelope(e *EnumerationError) ResultEnvelope {
	msg := e.Message
	code := e.Code
	domain := e.Domain
	return ResultEnvelope{
		Success:   false,
		Error:     &msg,
		Code:      &code,
		Domain:    &domain,
		Processes: []string{},
	}
}

// Validate reports whether the envelope respects the success/error invariant.
func (r ResultEnvelope) Validate() error {
	if r.Success {
		if r.Error != nil || r.Code != nil || r.Domain != nil {
			return errors.New("successful envelope carries error fields")
		}
		if r.Processes == nil {
			return errors.New("successful envelope has nil processes")
		}
		return nil
	}
	if r.Error == nil || *r.Error == "" {
		return errors.New("failed envelope has empty error")
	}
	if len(r.Processes) != 0 {
		return errors.New("failed envelope carries processes")
	}
	return nil
}

// Err converts a failed envelope back into an *EnumerationError. It returns
// nil for successful envelopes.
func (r ResultEnvelope) Err() error {
	if r.Success {
		return nil
	}
	e := &EnumerationError{Code: CodeUnknown, Domain: EnumerationDomain}
	if r.Error != nil {
		e.Message = *r.Error
	}
	if r.Code != nil {
		e.Code = *r.Code
	}
	if r.Domain != nil {
		e.Domain = *r.Domain
	}
	return e
}

// EnumerationError is a provider-level failure to enumerate audio processes.
type EnumerationError struct {
	Code    int    `json:"code"`
	Domain  string `json:"domain"`
	Message string `json:"message"`
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("%s (%s code %d)", e.Message, e.Domain, e.Code)
}

// MonitorError accompanies a native monitoring callback firing.
type MonitorError struct {
	Code    int    `json:"code"`
	Domain  string `json:"domain"`
	Message string `json:"message"`
}

func (e *MonitorError) Error() string {
	return e.Message
}

// IsInfo reports whether the error carries the informational identity.
func (e *MonitorError) IsInfo() bool {
	return e != nil && e.Code == InfoErrorCode && e.Domain == ErrorDomain
}

// NewInfoError returns a MonitorError with the informational identity.
func NewInfoError(message string) *MonitorError {
	return &MonitorError{Code: InfoErrorCode, Domain: ErrorDomain, Message: message}
}

// RenderProcess is a process holding an active, unmuted render session.
type RenderProcess struct {
	PID    int32  `json:"pid" yaml:"pid"`
	Name   string `json:"name" yaml:"name"`
	Device string `json:"device" yaml:"device"`
	Active bool   `json:"active" yaml:"active"`
}

// EventKind tags a MonitorEvent.
type EventKind string

const (
	EventStatus EventKind = "status"
	EventInfo   EventKind = "info"
	EventError  EventKind = "error"
)

// MonitorEvent is one translated monitoring callback firing. Active is always
// encoded but only meaningful for status events; Message, Code and Domain
// apply to info and error.
type MonitorEvent struct {
	Kind    EventKind `json:"kind" yaml:"kind"`
	Active  bool      `json:"active" yaml:"active"`
	Message string    `json:"message,omitempty" yaml:"message,omitempty"`
	Code    int       `json:"code,omitempty" yaml:"code,omitempty"`
	Domain  string    `json:"domain,omitempty" yaml:"domain,omitempty"`
	At      time.Time `json:"at" yaml:"at"`
}

// StatusEvent reports microphone activity.
func StatusEvent(active bool, at time.Time) MonitorEvent {
	return MonitorEvent{Kind: EventStatus, Active: active, At: at}
}

// InfoEvent reports a benign condition.
func InfoEvent(err *MonitorError, at time.Time) MonitorEvent {
	return MonitorEvent{Kind: EventInfo, Message: err.Message, Code: err.Code, Domain: err.Domain, At: at}
}

// ErrorEvent reports a hard monitoring error.
func ErrorEvent(err *MonitorError, at time.Time) MonitorEvent {
	return MonitorEvent{Kind: EventError, Message: err.Message, Code: err.Code, Domain: err.Domain, At: at}
}
