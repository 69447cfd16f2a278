package main

import (
	"fmt"

	"github.com/breeze-rmm/micwatch/internal/audiomon"
	"github.com/breeze-rmm/micwatch/internal/platform"
	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities [capability...]",
	Short: "Show the resolved provider and the operations it exposes",
	Long: `Show the resolved provider and the operations it exposes. Naming one or
more capabilities (e.g. start-mic-monitor) limits the report to them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := buildCapabilityReport(facade, args)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, report, report.writeText)
	},
}

// buildCapabilityReport reports every capability, or only the named ones.
func buildCapabilityReport(f *audiomon.Facade, names []string) (capabilityReport, error) {
	caps := platform.AllCapabilities
	if len(names) > 0 {
		caps = make([]platform.Capability, 0, len(names))
		for _, name := range names {
			c, ok := platform.ParseCapability(name)
			if !ok {
				return capabilityReport{}, fmt.Errorf("unknown capability %q", name)
			}
			caps = append(caps, c)
		}
	}

	report := capabilityReport{
		Provider:     f.ProviderName(),
		Native:       f.Native(),
		Capabilities: make(map[string]bool, len(caps)),
	}
	exposed := f.Exposed()
	for _, c := range caps {
		report.Capabilities[c.String()] = exposed[c]
	}
	return report, nil
}

var micCmd = &cobra.Command{
	Use:   "mic",
	Short: "List processes using the microphone",
	Long: `List processes using the microphone. By default a bare list is printed
and failures are reported as errors; --result prints the structured result.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withResult, _ := cmd.Flags().GetBool("result")
		snap := facade.InputSnapshot()
		if withResult {
			env := snap.Envelope()
			if err := writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, env, envelopeText(env)); err != nil {
				return err
			}
			return env.Err()
		}

		procs, err := snap.Legacy()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, procs, listText(procs))
	},
}

var speakersCmd = &cobra.Command{
	Use:   "speakers",
	Short: "List processes producing speaker audio",
	RunE: func(cmd *cobra.Command, args []string) error {
		env := facade.OutputAudioProcessesWithResult()
		if err := writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, env, envelopeText(env)); err != nil {
			return err
		}
		return env.Err()
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "List active render sessions with their output devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		procs, err := facade.RenderProcesses()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), cfg.OutputFormat, procs, renderText(procs))
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Bring this process' window to the front",
	RunE: func(cmd *cobra.Command, args []string) error {
		return facade.ActivateWindow()
	},
}

func init() {
	micCmd.Flags().Bool("result", false, "Print the structured result instead of a bare list")
}
