package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

func sampleWebsite() *scan.WebsiteScanResult {
	return &scan.WebsiteScanResult{
		Meta:            scan.NewMeta(),
		URL:             "https://example.com/",
		FinalURL:        "https://www.example.com/",
		StatusCode:      200,
		HTTPSValid:      true,
		SSLCertInfo:     scan.CertInfo{Subject: &scan.CertName{CN: "www.example.com"}, NotAfter: "2027-01-01T00:00:00Z", TLSVersion: "TLS 1.3", Valid: true},
		SecurityHeaders: []scan.HeaderCheck{{Name: "Strict-Transport-Security", Present: true}},
		Redirects:       []string{"https://example.com/"},
		Warnings:        []string{"Missing Content-Security-Policy"},
		SecurityScore:   55,
	}
}

func TestWriteResultFormats(t *testing.T) {
	disableColor(t)
	result := sampleWebsite()

	var buf bytes.Buffer
	if err := writeResult(&buf, formatJSON, result); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded scan.WebsiteScanResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not decode: %v", err)
	}
	if decoded.SecurityScore != 55 || decoded.ID != result.ID {
		t.Fatalf("unexpected decoded result %+v", decoded)
	}

	buf.Reset()
	if err := writeResult(&buf, formatYAML, result); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &generic); err != nil {
		t.Fatalf("yaml output does not decode: %v", err)
	}
	if generic["security_score"] != 55 || generic["id"] != result.ID {
		t.Fatalf("unexpected yaml keys: %v", generic)
	}

	buf.Reset()
	if err := writeResult(&buf, formatText, result); err != nil {
		t.Fatalf("text: %v", err)
	}
	text := buf.String()
	for _, want := range []string{"https://www.example.com/", "55/100", "www.example.com", "Missing Content-Security-Policy"} {
		if !strings.Contains(text, want) {
			t.Fatalf("text output missing %q:\n%s", want, text)
		}
	}
}

func TestWriteTextForEveryResult(t *testing.T) {
	disableColor(t)
	avg := 1.5

	tests := []struct {
		name   string
		result any
		want   []string
	}{
		{
			name:   "ports",
			result: &scan.PortScanResult{Target: "localhost", ResolvedIP: "127.0.0.1", OpenPorts: []scan.OpenPort{{Port: 22, Service: "SSH", Status: "open"}}, ClosedPorts: []int{23}},
			want:   []string{"22", "SSH", "1 open, 1 closed"},
		},
		{
			name:   "ping without replies",
			result: &scan.PingResult{Target: "10.255.255.1", Method: scan.MethodTCP, PacketsSent: 4, PacketLoss: 100},
			want:   []string{"4 sent, 0 received, 100% loss"},
		},
		{
			name:   "traceroute",
			result: &scan.TracerouteResult{Target: "h", MaxHops: 3, Hops: []scan.Hop{{Hop: 1, IP: "10.0.0.1", AvgTime: &avg}, {Hop: 2, IP: scan.NoReplyIP}}, TotalHops: 2},
			want:   []string{"10.0.0.1", "1.50ms", "not reached after 2 hops"},
		},
		{
			name:   "file",
			result: &scan.FileScanResult{Filename: "a.exe", RiskLevel: scan.RiskHigh, SuspiciousIndicators: []string{"Dangerous file extension: .exe"}},
			want:   []string{"High Risk", "Dangerous file extension"},
		},
		{
			name: "system info",
			result: &scan.SystemInfo{Hostname: "scanner-01", OSName: "ubuntu", OSVersion: "24.04", LocalIP: "10.0.0.5",
				RAMUsed: 3.25, RAMTotal: 15.5, RAMPercentage: 21, Uptime: "2 days, 1:00:00",
				TopProcesses: []scan.ProcessUsage{{PID: 42, Name: "postgres", CPUPercent: 12.5}}},
			want: []string{"scanner-01", "public ip  unavailable", "3.25 / 15.50 GiB", "2 days, 1:00:00", "postgres", "12.5% cpu"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeText(&buf, tt.result)
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Fatalf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestValidateOutputFormat(t *testing.T) {
	for _, ok := range []string{"text", "json", "yaml"} {
		if err := validateOutputFormat(ok); err != nil {
			t.Fatalf("%s should be accepted: %v", ok, err)
		}
	}
	if err := validateOutputFormat("xml"); err == nil {
		t.Fatal("xml should be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	if isTerminal(&buf) {
		t.Fatal("a buffer is not a terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Fatal("a regular file is not a terminal")
	}
}
