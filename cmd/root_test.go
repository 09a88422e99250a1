package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanFileThenHistory(t *testing.T) {
	isolateHome(t)
	dataDir := t.TempDir()
	path := filepath.Join(t.TempDir(), "invoice.pdf.exe")
	if err := os.WriteFile(path, []byte("MZ not really a binary"), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	out, err := execute(t, "scan", "file", path, "--output", "json", "--data-dir", dataDir, "--history-backend", "file", "--log-level", "error")
	if err != nil {
		t.Fatalf("scan file: %v\n%s", err, out)
	}
	var result scan.FileScanResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("scan output is not JSON: %v\n%s", err, out)
	}
	if result.Filename != "invoice.pdf.exe" || result.RiskLevel != scan.RiskHigh {
		t.Fatalf("unexpected result %+v", result)
	}

	out, err = execute(t, "history", "file", "--format", "table", "--data-dir", dataDir, "--history-backend", "file", "--log-level", "error")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	if !strings.Contains(out, "invoice.pdf.exe") || !strings.Contains(out, "High Risk") {
		t.Fatalf("history does not list the scan:\n%s", out)
	}
}

func TestHistoryRejectsUnknownKind(t *testing.T) {
	isolateHome(t)
	if _, err := execute(t, "history", "dns", "--data-dir", t.TempDir(), "--log-level", "error"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestSysinfoCommand(t *testing.T) {
	isolateHome(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("198.51.100.4"))
	}))
	defer srv.Close()
	t.Setenv("SECAKIT_SYSINFO_PUBLIC_IP_URL", srv.URL)

	out, err := execute(t, "sysinfo", "--output", "json", "--history-backend", "memory", "--log-level", "error")
	if err != nil {
		t.Fatalf("sysinfo: %v\n%s", err, out)
	}
	var info scan.SystemInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("sysinfo output is not JSON: %v\n%s", err, out)
	}
	if info.Hostname == "" || info.RAMTotal <= 0 {
		t.Fatalf("incomplete snapshot %+v", info)
	}
	if info.PublicIP == nil || *info.PublicIP != "198.51.100.4" {
		t.Fatalf("unexpected public ip %v", info.PublicIP)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "secakit version dev") {
		t.Fatalf("unexpected version output %q", out)
	}
}
