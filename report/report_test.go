package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/weiihann/qpsweep/sweep"
)

func record(qp int, elapsed float64, fps float64, size int64, code int) sweep.Record {
	r := sweep.Record{QP: qp, ElapsedSec: elapsed, ReturnCode: code}
	if fps > 0 {
		r.FPS = &fps
	}
	if size >= 0 {
		r.SetSize(size)
	}

	return r
}

func TestSummaryAllSucceeded(t *testing.T) {
	records := []sweep.Record{
		record(1, 2.0, 40, 3*1024*1024, 0),
		record(2, 1.0, 80, 1024*1024, 0),
	}

	var buf bytes.Buffer
	if err := Summary(&buf, records); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "all produced output") {
		t.Error("expected 'all produced output' when nothing failed")
	}
	if !strings.Contains(output, "| 1 | 2.00s | 40.00 | 3 MB | 0 | 2.00x |") {
		t.Errorf("missing qp 1 row:\n%s", output)
	}
	if !strings.Contains(output, "| 2 | 1.00s | 80.00 | 1 MB | 0 | 1.00x |") {
		t.Errorf("missing qp 2 row:\n%s", output)
	}
}

func TestSummaryWithFailures(t *testing.T) {
	records := []sweep.Record{
		record(1, 0.5, 40, 2048, 0),
		record(2, 0.25, 0, -1, 3),
		record(3, 0.5, 42, 1024, 0),
	}

	var buf bytes.Buffer
	if err := Summary(&buf, records); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "1 FAILED") {
		t.Errorf("expected failure count:\n%s", output)
	}
	if !strings.Contains(output, "qp 2 (exit 3)") {
		t.Errorf("expected failing qp listed:\n%s", output)
	}
	if !strings.Contains(output, "| 2 | 250ms | - | - | 3 | - |") {
		t.Errorf("failed row should show absent fields:\n%s", output)
	}
}

func TestSummaryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Summary(&buf, nil); err == nil {
		t.Error("expected error for empty results")
	}
}

func TestGenerateJSON(t *testing.T) {
	records := []sweep.Record{
		record(1, 1.5, 42.5, 1024, 0),
		record(2, 0.5, 0, -1, 3),
	}

	var buf bytes.Buffer
	if err := GenerateJSON(&buf, records); err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	var parsed []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if len(parsed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(parsed))
	}
	if parsed[0]["fps"] != 42.5 {
		t.Errorf("fps = %v, want 42.5", parsed[0]["fps"])
	}

	for _, key := range []string{"fps", "size_bytes", "size_mb"} {
		v, ok := parsed[1][key]
		if !ok || v != nil {
			t.Errorf("%s = %v (present %v), want null", key, v, ok)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1073741824, "1 GB"},
	}

	for _, tt := range tests {
		got := formatBytes(&tt.input)
		if got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := formatBytes(nil); got != "-" {
		t.Errorf("formatBytes(nil) = %q, want -", got)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "0ms"},
		{0.5, "500ms"},
		{0.9994, "999ms"},
		{1, "1.00s"},
		{1.5, "1.50s"},
		{60, "60.00s"},
	}

	for _, tt := range tests {
		got := formatSeconds(tt.input)
		if got != tt.want {
			t.Errorf("formatSeconds(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
