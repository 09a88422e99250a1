package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/secakit/internal/application/assessment"
	"github.com/khanhnv2901/secakit/internal/checker"
	"github.com/khanhnv2901/secakit/internal/filescan"
	consts "github.com/khanhnv2901/secakit/internal/shared/constants"
)

var scanOutput string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single assessment and record it in history",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return validateOutputFormat(scanOutput)
	},
}

var scanPortsCmd = &cobra.Command{
	Use:   "ports <target>",
	Short: "Scan TCP ports (list, ranges or \"common\")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, _ := cmd.Flags().GetString("ports")
		return runAssessment(cmd, "Scanning ports on "+args[0], func(ctx context.Context, svc *assessment.Service) (any, error) {
			return svc.ScanPorts(ctx, args[0], ports)
		})
	},
}

var scanPingCmd = &cobra.Command{
	Use:   "ping <target>",
	Short: "Measure round-trip latency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		return runAssessment(cmd, "Pinging "+args[0], func(ctx context.Context, svc *assessment.Service) (any, error) {
			return svc.Ping(ctx, args[0], count)
		})
	},
}

var scanTraceCmd = &cobra.Command{
	Use:     "trace <target>",
	Aliases: []string{"traceroute"},
	Short:   "Discover the hops toward a host",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxHops, _ := cmd.Flags().GetInt("max-hops")
		return runAssessment(cmd, "Tracing route to "+args[0], func(ctx context.Context, svc *assessment.Service) (any, error) {
			return svc.Traceroute(ctx, args[0], maxHops)
		})
	},
}

var scanFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Score a local file for malware indicators",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		data, err := filescan.ReadLimited(f, viper.GetInt64(keyMaxUploadBytes))
		if err != nil {
			return err
		}
		return runAssessment(cmd, "Analyzing "+args[0], func(ctx context.Context, svc *assessment.Service) (any, error) {
			return svc.ScanFile(ctx, data, args[0])
		})
	},
}

var scanWebsiteCmd = &cobra.Command{
	Use:   "website <url>",
	Short: "Assess the security posture of a website",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssessment(cmd, "Checking "+args[0], func(ctx context.Context, svc *assessment.Service) (any, error) {
			return svc.CheckWebsite(ctx, args[0])
		})
	},
}

func init() {
	scanCmd.PersistentFlags().StringVar(&scanOutput, "output", formatText, "output format: text, json or yaml")

	scanPortsCmd.Flags().String("ports", "common",
		fmt.Sprintf("ports to scan, e.g. \"22,80,8000-8010\" or a preset (%s)", strings.Join(checker.PresetNames(), ", ")))
	scanPingCmd.Flags().Int("count", consts.DefaultPingCount, "number of echo probes (1-10)")
	scanTraceCmd.Flags().Int("max-hops", consts.MaxHops, "maximum TTL to probe (1-30)")

	scanCmd.AddCommand(scanPortsCmd, scanPingCmd, scanTraceCmd, scanFileCmd, scanWebsiteCmd)
}

type assessmentFunc func(ctx context.Context, svc *assessment.Service) (any, error)

// runAssessment builds the container, runs fn until done or interrupted and
// prints its result.
func runAssessment(cmd *cobra.Command, status string, fn assessmentFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errOut := cmd.ErrOrStderr(); isTerminal(errOut) {
		fmt.Fprintf(errOut, "%s %s...\n", colorInfo("→"), status)
	}

	container, err := newContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	result, err := fn(ctx, container.Service)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), scanOutput, result)
}

// isTerminal reports whether w is an interactive terminal. Status lines go
// only there so piped json and yaml stay clean.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
