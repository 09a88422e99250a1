package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

const (
	formatTable    = "table"
	formatMarkdown = "markdown"

	defaultHistoryLimit = 10
)

var historyCmd = &cobra.Command{
	Use:   "history <kind>",
	Short: "List recorded results, newest first",
	Long: `List recorded results of one kind, newest first.

Kinds: ports, ping, trace, file, website (or port_scan, traceroute, file_scan, website_check).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := history.ParseKind(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		if err := validateHistoryFormat(format); err != nil {
			return err
		}

		container, err := newContainer(cmd.Context())
		if err != nil {
			return err
		}
		defer container.Close()

		recs, err := container.Service.History(cmd.Context(), kind, limit)
		if err != nil {
			return err
		}
		return writeHistory(cmd.OutOrStdout(), format, kind, recs)
	},
}

func init() {
	historyCmd.Flags().Int("limit", defaultHistoryLimit, "maximum number of records")
	historyCmd.Flags().String("format", formatTable, "output format: table, json, yaml or markdown")
}

func validateHistoryFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML, formatMarkdown:
		return nil
	}
	return fmt.Errorf("unsupported history format %q (use table, json, yaml or markdown)", format)
}

// writeHistory renders records of one kind.
func writeHistory(w io.Writer, format string, kind history.Kind, recs []history.Record) error {
	switch format {
	case formatJSON:
		payloads := make([]json.RawMessage, 0, len(recs))
		for _, rec := range recs {
			payloads = append(payloads, rec.Payload)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payloads)
	case formatYAML:
		items := make([]any, 0, len(recs))
		for _, rec := range recs {
			var item any
			if err := rec.Decode(&item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return yaml.NewEncoder(w).Encode(items)
	}

	header, rows, err := historyRows(kind, recs)
	if err != nil {
		return err
	}
	if format == formatMarkdown {
		md := markdown.NewMarkdown(w)
		md.H2(fmt.Sprintf("%s history", kind))
		md.PlainText("")
		if len(rows) == 0 {
			md.PlainText("No records.")
			return md.Build()
		}
		md.Table(markdown.TableSet{Header: header, Rows: rows})
		return md.Build()
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No records.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// historyRows summarizes each record as one row.
func historyRows(kind history.Kind, recs []history.Record) ([]string, [][]string, error) {
	var header []string
	switch kind {
	case history.KindPortScan:
		header = []string{"Time", "Target", "IP", "Open", "Closed", "Duration"}
	case history.KindPing:
		header = []string{"Time", "Target", "Method", "Received", "Loss", "Avg"}
	case history.KindTraceroute:
		header = []string{"Time", "Target", "Reached", "Hops"}
	case history.KindFileScan:
		header = []string{"Time", "File", "Size", "Risk", "Indicators"}
	case history.KindWebsite:
		header = []string{"Time", "URL", "Status", "HTTPS", "Score"}
	default:
		return nil, nil, fmt.Errorf("no table layout for %q", kind)
	}

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row, err := historyRow(kind, rec)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, append([]string{formatTime(rec.Timestamp)}, row...))
	}
	return header, rows, nil
}

func historyRow(kind history.Kind, rec history.Record) ([]string, error) {
	switch kind {
	case history.KindPortScan:
		var r scan.PortScanResult
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		open := make([]string, 0, len(r.OpenPorts))
		for _, p := range r.OpenPorts {
			open = append(open, strconv.Itoa(p.Port))
		}
		return []string{r.Target, r.ResolvedIP, strings.Join(open, ","), strconv.Itoa(len(r.ClosedPorts)), fmt.Sprintf("%.2fs", r.ScanDuration)}, nil
	case history.KindPing:
		var r scan.PingResult
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		return []string{r.Target, string(r.Method), fmt.Sprintf("%d/%d", r.PacketsReceived, r.PacketsSent), fmt.Sprintf("%.0f%%", r.PacketLoss), formatMillis(r.ResponseTime)}, nil
	case history.KindTraceroute:
		var r scan.TracerouteResult
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		return []string{r.Target, strconv.FormatBool(r.Reached), strconv.Itoa(r.TotalHops)}, nil
	case history.KindFileScan:
		var r scan.FileScanResult
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		return []string{r.Filename, strconv.FormatInt(r.FileSize, 10), string(r.RiskLevel), strconv.Itoa(len(r.SuspiciousIndicators))}, nil
	default:
		var r scan.WebsiteScanResult
		if err := rec.Decode(&r); err != nil {
			return nil, err
		}
		return []string{r.URL, strconv.Itoa(r.StatusCode), strconv.FormatBool(r.HTTPSValid), strconv.Itoa(r.SecurityScore)}, nil
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
