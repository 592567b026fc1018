package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidredact/internal/blobstore"
	"vidredact/internal/deps"
	"vidredact/internal/detect"
	"vidredact/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories, object storage and the detector",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			problems := 0

			printLines(out, renderSectionHeader("Dependencies", colorize)...)
			for _, status := range deps.CheckBinaries(cmd.Context(), deps.Requirements(cfg)) {
				kind, message := statusOK, status.Command
				if status.Version != "" {
					message = status.Version
				}
				if !status.Available {
					kind, message = statusError, status.Detail
					if status.Optional {
						kind = statusWarn
					} else {
						problems++
					}
				}
				printLines(out, renderStatusLine(status.Name, kind, message, colorize))
			}

			var targets preflight.Targets
			if !offline {
				targets.Detector = detect.NewHTTPClient(cfg.Detector.URL, cfg.DetectorTimeout())
				blobs, err := blobstore.NewMinio(cfg.Storage)
				if err != nil {
					printLines(out, renderStatusLine("Blob store", statusError, err.Error(), colorize))
					problems++
				} else {
					targets.Blobs = blobs
				}
			}

			printLines(out, "")
			printLines(out, renderSectionHeader("Environment", colorize)...)
			for _, result := range preflight.RunAll(cmd.Context(), cfg, targets) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				printLines(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if problems > 0 {
				return fmt.Errorf("%d check(s) failed", problems)
			}
			fmt.Fprintln(out, "\nAll checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the detector and object storage probes")
	return cmd
}
