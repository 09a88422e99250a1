package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/secakit/internal/domain/history"
	"github.com/khanhnv2901/secakit/internal/domain/scan"
)

func portRecords(t *testing.T) []history.Record {
	t.Helper()
	var recs []history.Record
	for i, target := range []string{"newer.example", "older.example"} {
		res := scan.PortScanResult{
			Meta:        scan.Meta{ID: target, Timestamp: time.Date(2026, 1, 2-i, 0, 0, 0, 0, time.UTC)},
			Target:      target,
			ResolvedIP:  "192.0.2.1",
			OpenPorts:   []scan.OpenPort{{Port: 80, Service: "HTTP", Status: "open"}, {Port: 443, Service: "HTTPS", Status: "open"}},
			ClosedPorts: []int{22},
		}
		rec, err := history.NewRecord(history.KindPortScan, res.Meta, res)
		if err != nil {
			t.Fatalf("NewRecord: %v", err)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestWriteHistoryTable(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHistory(&buf, formatTable, history.KindPortScan, portRecords(t)); err != nil {
		t.Fatalf("writeHistory: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got:\n%s", buf.String())
	}
	if !strings.Contains(lines[1], "newer.example") || !strings.Contains(lines[1], "80,443") {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}

func TestWriteHistoryMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := writeHistory(&buf, formatMarkdown, history.KindPortScan, portRecords(t)); err != nil {
		t.Fatalf("writeHistory: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "## port_scan history") {
		t.Fatalf("missing heading:\n%s", out)
	}
	if !strings.Contains(out, "|") || !strings.Contains(out, "older.example") {
		t.Fatalf("missing table:\n%s", out)
	}
}

func TestWriteHistoryJSONAndYAML(t *testing.T) {
	recs := portRecords(t)

	var buf bytes.Buffer
	if err := writeHistory(&buf, formatJSON, history.KindPortScan, recs); err != nil {
		t.Fatalf("json: %v", err)
	}
	var results []scan.PortScanResult
	if err := json.Unmarshal(buf.Bytes(), &results); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(results) != 2 || results[0].Target != "newer.example" {
		t.Fatalf("unexpected results %+v", results)
	}

	buf.Reset()
	if err := writeHistory(&buf, formatYAML, history.KindPortScan, recs); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !strings.Contains(buf.String(), "target: newer.example") {
		t.Fatalf("unexpected yaml:\n%s", buf.String())
	}
}

func TestWriteHistoryEmpty(t *testing.T) {
	for _, kind := range history.Kinds() {
		var buf bytes.Buffer
		if err := writeHistory(&buf, formatTable, kind, nil); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if strings.TrimSpace(buf.String()) != "No records." {
			t.Fatalf("%s: unexpected output %q", kind, buf.String())
		}
	}
}

func TestValidateHistoryFormat(t *testing.T) {
	if err := validateHistoryFormat("markdown"); err != nil {
		t.Fatalf("markdown should be accepted: %v", err)
	}
	if err := validateHistoryFormat("text"); err == nil {
		t.Fatal("text is not a history format")
	}
}
