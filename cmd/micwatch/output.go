package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/breeze-rmm/micwatch/pkg/models"
	"gopkg.in/yaml.v3"
)

// writeOutput encodes v as json or yaml, or calls text for any other format.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(w)
	}
}

type capabilityReport struct {
	Provider     string          `json:"provider" yaml:"provider"`
	Native       bool            `json:"native" yaml:"native"`
	Capabilities map[string]bool `json:"capabilities" yaml:"capabilities"`
}

func (r capabilityReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Provider: %s (native: %t)\n", r.Provider, r.Native)
	names := make([]string, 0, len(r.Capabilities))
	for name := range r.Capabilities {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		state := "not supported"
		if r.Capabilities[name] {
			state = "supported"
		}
		fmt.Fprintf(tw, "  %s\t%s\n", name, state)
	}
	return tw.Flush()
}

func listText(procs []string) func(io.Writer) error {
	return func(w io.Writer) error {
		if len(procs) == 0 {
			_, err := fmt.Fprintln(w, "No processes")
			return err
		}
		for _, p := range procs {
			if p == "" {
				p = "(unnamed)"
			}
			if _, err := fmt.Fprintln(w, p); err != nil {
				return err
			}
		}
		return nil
	}
}

func envelopeText(env models.ResultEnvelope) func(io.Writer) error {
	return func(w io.Writer) error {
		if !env.Success {
			_, err := fmt.Fprintf(w, "Failed: %v\n", env.Err())
			return err
		}
		return listText(env.Processes)(w)
	}
}

func renderText(procs []models.RenderProcess) func(io.Writer) error {
	return func(w io.Writer) error {
		if len(procs) == 0 {
			_, err := fmt.Fprintln(w, "No render sessions")
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PID\tNAME\tDEVICE")
		for _, p := range procs {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", p.PID, p.Name, p.Device)
		}
		return tw.Flush()
	}
}

// writeEvent prints one monitoring event. Structured formats emit one
// document per event so the stream can be consumed line by line.
func writeEvent(w io.Writer, format string, ev models.MonitorEvent) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(ev)
	case "yaml":
		if _, err := fmt.Fprintln(w, "---"); err != nil {
			return err
		}
		return writeOutput(w, format, ev, nil)
	}

	ts := ev.At.Format(time.RFC3339)
	var err error
	switch ev.Kind {
	case models.EventStatus:
		state := "inactive"
		if ev.Active {
			state = "active"
		}
		_, err = fmt.Fprintf(w, "%s  microphone %s\n", ts, state)
	default:
		_, err = fmt.Fprintf(w, "%s  %s: %s (%s code %d)\n", ts, ev.Kind, ev.Message, ev.Domain, ev.Code)
	}
	return err
}
