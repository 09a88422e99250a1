package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

// Output formats for single results.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateOutputFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (use text, json or yaml)", format)
}

// writeResult renders one assessment result.
func writeResult(w io.Writer, format string, result any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeText(w, result)
		return nil
	}
}

func writeText(w io.Writer, result any) {
	switch r := result.(type) {
	case *scan.PortScanResult:
		writePortScan(w, r)
	case *scan.PingResult:
		writePing(w, r)
	case *scan.TracerouteResult:
		writeTraceroute(w, r)
	case *scan.FileScanResult:
		writeFileScan(w, r)
	case *scan.WebsiteScanResult:
		writeWebsite(w, r)
	case *scan.SystemInfo:
		writeSystemInfo(w, r)
	default:
		fmt.Fprintf(w, "%+v\n", result)
	}
}

func writePortScan(w io.Writer, r *scan.PortScanResult) {
	fmt.Fprintf(w, "%s %s (%s) in %.2fs\n", colorInfo("Port scan"), r.Target, r.ResolvedIP, r.ScanDuration)
	if len(r.OpenPorts) == 0 {
		fmt.Fprintln(w, "  no open ports")
	}
	for _, p := range r.OpenPorts {
		line := fmt.Sprintf("  %-6d %-8s %s", p.Port, colorSuccess(p.Status), p.Service)
		if p.Risk != "" {
			line += "  " + colorWarn(p.Risk)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  %d open, %d closed\n", len(r.OpenPorts), len(r.ClosedPorts))
}

func writePing(w io.Writer, r *scan.PingResult) {
	fmt.Fprintf(w, "%s %s (%s) via %s\n", colorInfo("Ping"), r.Target, r.ResolvedIP, r.Method)
	fmt.Fprintf(w, "  %d sent, %d received, %s loss\n",
		r.PacketsSent, r.PacketsReceived, lossColor(r.PacketLoss))
	if r.ResponseTime != nil {
		fmt.Fprintf(w, "  rtt avg %s", formatMillis(r.ResponseTime))
		if r.MinTime != nil && r.MaxTime != nil {
			fmt.Fprintf(w, " min %s max %s", formatMillis(r.MinTime), formatMillis(r.MaxTime))
		}
		fmt.Fprintln(w)
	}
}

func writeTraceroute(w io.Writer, r *scan.TracerouteResult) {
	fmt.Fprintf(w, "%s %s (%s), max %d hops\n", colorInfo("Traceroute"), r.Target, r.ResolvedIP, r.MaxHops)
	for _, h := range r.Hops {
		name := h.IP
		if h.Hostname != "" {
			name = fmt.Sprintf("%s (%s)", h.Hostname, h.IP)
		}
		fmt.Fprintf(w, "  %2d  %-40s %s\n", h.Hop, name, formatMillis(h.AvgTime))
	}
	status := colorWarn("not reached")
	if r.Reached {
		status = colorSuccess("reached")
	}
	fmt.Fprintf(w, "  %s after %d hops\n", status, r.TotalHops)
}

func writeFileScan(w io.Writer, r *scan.FileScanResult) {
	fmt.Fprintf(w, "%s %s (%d bytes, %s)\n", colorInfo("File scan"), r.Filename, r.FileSize, r.MimeType)
	fmt.Fprintf(w, "  sha256 %s\n", r.FileHash)
	fmt.Fprintf(w, "  risk   %s\n", formatRiskWithColor(r.RiskLevel))
	for _, ind := range r.SuspiciousIndicators {
		fmt.Fprintf(w, "  - %s\n", ind)
	}
	if r.VirusTotalResult != nil {
		s := r.VirusTotalResult.Attributes.Stats
		fmt.Fprintf(w, "  reputation: %d malicious, %d suspicious, %d clean, %d undetected\n",
			s.Malicious, s.Suspicious, s.Clean, s.Undetected)
		if r.VirusTotalResult.Permalink != "" {
			fmt.Fprintf(w, "  %s\n", r.VirusTotalResult.Permalink)
		}
	}
}

func writeSystemInfo(w io.Writer, r *scan.SystemInfo) {
	fmt.Fprintf(w, "%s %s (%s %s)\n", colorInfo("System"), r.Hostname, r.OSName, r.OSVersion)
	public := "unavailable"
	if r.PublicIP != nil {
		public = *r.PublicIP
	}
	fmt.Fprintf(w, "  local ip   %s\n", r.LocalIP)
	fmt.Fprintf(w, "  public ip  %s\n", public)
	fmt.Fprintf(w, "  ram        %.2f / %.2f GiB (%.1f%%)\n", r.RAMUsed, r.RAMTotal, r.RAMPercentage)
	fmt.Fprintf(w, "  disk       %.2f / %.2f GiB (%.1f%%), %.2f GiB free\n", r.DiskUsed, r.DiskTotal, r.DiskPercentage, r.DiskFree)
	fmt.Fprintf(w, "  uptime     %s\n", r.Uptime)
	if len(r.TopProcesses) > 0 {
		fmt.Fprintln(w, "  top processes by cpu:")
	}
	for _, p := range r.TopProcesses {
		fmt.Fprintf(w, "    %-7d %-24s %5.1f%% cpu %5.1f%% mem\n", p.PID, p.Name, p.CPUPercent, p.MemoryPercent)
	}
}

func writeWebsite(w io.Writer, r *scan.WebsiteScanResult) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("Website"), r.URL)
	if r.FinalURL != "" && r.FinalURL != r.URL {
		fmt.Fprintf(w, "  final url  %s\n", r.FinalURL)
	}
	fmt.Fprintf(w, "  status     %d\n", r.StatusCode)
	fmt.Fprintf(w, "  score      %s\n", formatScoreWithColor(r.SecurityScore))
	fmt.Fprintf(w, "  https      %s\n", formatBoolWithColor(r.HTTPSValid))
	if cert := r.SSLCertInfo; cert.Error == "" && cert.Subject != nil {
		fmt.Fprintf(w, "  cert       %s, expires %s (%s %s)\n", cert.Subject.CN, cert.NotAfter, cert.TLSVersion, cert.CipherSuite)
	}
	for _, h := range r.SecurityHeaders {
		fmt.Fprintf(w, "  %-27s %s\n", h.Name, formatBoolWithColor(h.Present))
	}
	for _, hop := range r.Redirects {
		fmt.Fprintf(w, "  redirect   %s\n", hop)
	}
	if r.SafeBrowsingResult != nil {
		if r.SafeBrowsingResult.Safe {
			fmt.Fprintf(w, "  threats    %s\n", colorSuccess("none reported"))
		}
		for _, t := range r.SafeBrowsingResult.Threats {
			fmt.Fprintf(w, "  threat     %s\n", colorError(t.ThreatType))
		}
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  %s %s\n", colorWarn("!"), warning)
	}
}

func formatMillis(v *float64) string {
	if v == nil {
		return "*"
	}
	return fmt.Sprintf("%.2fms", *v)
}

func lossColor(loss float64) string {
	text := strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", loss), "0"), ".") + "%"
	switch {
	case loss == 0:
		return colorSuccess(text)
	case loss >= 100:
		return colorError(text)
	default:
		return colorWarn(text)
	}
}
