package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/secakit/internal/application/assessment"
)

var sysinfoCmd = &cobra.Command{
	Use:   "sysinfo",
	Short: "Show platform, address, memory, disk and process figures for this host",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateOutputFormat(scanOutput)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssessment(cmd, "Collecting system info", func(ctx context.Context, svc *assessment.Service) (any, error) {
			return svc.SystemInfo(ctx)
		})
	},
}

func init() {
	sysinfoCmd.Flags().StringVar(&scanOutput, "output", formatText, "output format: text, json or yaml")
}
