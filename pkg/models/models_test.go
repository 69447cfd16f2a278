package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestSuccessEnvelopeNeverNil(t *testing.T) {
	env := SuccessEnvelope(nil)
	if env.Processes == nil {
		t.Fatal("expected non-nil processes")
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"success":true,"error":null,"processes":[]}` {
		t.Fatalf("unexpected encoding: %s", data)
	}
}

func TestFailureEnvelope(t *testing.T) {
	env := FailureEnvelope(&EnumerationError{Code: -2147221008, Domain: EnumerationDomain, Message: "Failed to initialize COM"})
	if env.Success {
		t.Fatal("expected failure")
	}
	if err := env.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if *env.Code != -2147221008 || *env.Domain != EnumerationDomain {
		t.Fatalf("unexpected code/domain: %d %s", *env.Code, *env.Domain)
	}

	var enumErr *EnumerationError
	if !errors.As(env.Err(), &enumErr) {
		t.Fatalf("Err() = %T, want *EnumerationError", env.Err())
	}
	if enumErr.Message != "Failed to initialize COM" {
		t.Fatalf("message = %q", enumErr.Message)
	}
}

func TestValidateRejectsBrokenEnvelopes(t *testing.T) {
	msg := "boom"
	empty := ""
	tests := []struct {
		name string
		env  ResultEnvelope
	}{
		{"success with error", ResultEnvelope{Success: true, Error: &msg, Processes: []string{}}},
		{"success with nil processes", ResultEnvelope{Success: true}},
		{"failure without error", ResultEnvelope{Success: false, Processes: []string{}}},
		{"failure with empty error", ResultEnvelope{Success: false, Error: &empty}},
		{"failure with processes", ResultEnvelope{Success: false, Error: &msg, Processes: []string{"a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.env.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestMonitorErrorIsInfo(t *testing.T) {
	tests := []struct {
		err  *MonitorError
		want bool
	}{
		{NewInfoError("permission pending"), true},
		{&MonitorError{Code: 1, Domain: "other"}, false},
		{&MonitorError{Code: 99, Domain: ErrorDomain}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := tt.err.IsInfo(); got != tt.want {
			t.Errorf("IsInfo(%+v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestEnumerationErrorMessage(t *testing.T) {
	err := &EnumerationError{Code: 5, Domain: "d", Message: "nope"}
	if !strings.Contains(err.Error(), "nope") || !strings.Contains(err.Error(), "code 5") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestInactiveStatusEventEncodesActive(t *testing.T) {
	ev := StatusEvent(false, time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"active":false`) {
		t.Errorf("json = %s, want explicit active=false", data)
	}
	if strings.Contains(string(data), `"message"`) {
		t.Errorf("json = %s, status event carries a message", data)
	}

	out, err := yaml.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"kind: status", "active: false", "at: "} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(string(out), "message") {
		t.Errorf("yaml carries empty message:\n%s", out)
	}
}
