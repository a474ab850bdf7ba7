package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"captioner/internal/media"
	"captioner/internal/services"
	"captioner/internal/srt"
)

type validateReport struct {
	Path         string   `json:"path"`
	MediaSeconds float64  `json:"media_seconds,omitempty"`
	Valid        bool     `json:"valid"`
	Issues       []string `json:"issues"`
}

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var mediaSeconds float64
	var mediaPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate <file.srt>...",
		Short: "Check SRT files for index gaps, overlaps and duration mismatches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mediaSeconds < 0 {
				return fmt.Errorf("%w: --media-seconds must be >= 0", services.ErrInvalidInput)
			}
			if path := strings.TrimSpace(mediaPath); path != "" {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				info, err := media.Inspect(cmd.Context(), ctx.rt.inspect, cfg.FFprobeBinary(), path)
				if err != nil {
					return services.Wrap(services.ErrMediaExtraction, "validate", "read media duration", path, err)
				}
				mediaSeconds = info.DurationSeconds()
			}

			reports := make([]validateReport, 0, len(args))
			invalid := 0
			for _, path := range args {
				issues := srt.ValidateFile(path, mediaSeconds)
				if issues == nil {
					issues = []string{}
				}
				report := validateReport{Path: path, MediaSeconds: mediaSeconds, Valid: len(issues) == 0, Issues: issues}
				if !report.Valid {
					invalid++
				}
				reports = append(reports, report)
			}

			if jsonOutput {
				if err := writeJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				printer := newStatusPrinter(cmd.OutOrStdout())
				for _, report := range reports {
					if report.Valid {
						printer.result(report.Path, statusOK, "")
						continue
					}
					printer.result(report.Path, statusError, fmt.Sprintf("%d issue(s)", len(report.Issues)))
					for _, issue := range report.Issues {
						printer.item(issue)
					}
				}
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d subtitle files failed validation", services.ErrInvalidInput, invalid, len(reports))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&mediaSeconds, "media-seconds", 0, "Media duration used to detect subtitles running past the end")
	cmd.Flags().StringVar(&mediaPath, "media", "", "Media file whose duration bounds the last cue (overrides --media-seconds)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}
