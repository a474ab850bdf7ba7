package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"captioner/internal/deps"
	"captioner/internal/preflight"
	"captioner/internal/services"
)

type checkReport struct {
	ConfigPath   string             `json:"config_path"`
	Backend      string             `json:"backend"`
	Dependencies []deps.Status      `json:"dependencies"`
	Preflight    []preflight.Result `json:"preflight"`
	Ready        bool               `json:"ready"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify external tools, directories and backend access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			report := checkReport{
				ConfigPath:   ctx.configPath,
				Backend:      cfg.Transcription.Backend,
				Dependencies: preflight.CheckSystemDeps(cfg),
				Preflight:    preflight.RunAll(cmd.Context(), cfg),
			}
			missing := deps.Missing(report.Dependencies)
			failed := preflight.Failed(report.Preflight)
			report.Ready = len(missing) == 0 && len(failed) == 0

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				printer := newStatusPrinter(out)
				fmt.Fprintf(out, "Config: %s\n", report.ConfigPath)
				fmt.Fprintf(out, "Backend: %s\n\n", report.Backend)
				printer.section("Dependencies")
				for _, status := range report.Dependencies {
					detail := status.Path
					if !status.Available {
						detail = status.Detail
					}
					printer.result(status.Name, passKind(status.Available, status.Optional), detail)
				}
				fmt.Fprintln(out)
				printer.section("Preflight")
				for _, result := range report.Preflight {
					printer.result(result.Name, passKind(result.Passed, false), result.Detail)
				}
			}

			if !report.Ready {
				return fmt.Errorf("%w: %d dependency and %d preflight check(s) failed", services.ErrConfiguration, len(missing), len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}
