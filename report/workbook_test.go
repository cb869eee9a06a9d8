package report

import (
	"archive/zip"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/weiihann/qpsweep/table"
)

const fullTable = `qp,elapsed_sec,fps,size_bytes,size_mb,return_code
1,0.5,40.5,2048,0.001953125,0
2,0.25,,,,3
3,0.5,41.5,1024,0.0009765625,0
`

func mustRead(t *testing.T, csv string) *table.Table {
	t.Helper()

	tbl, err := table.Read(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("read table: %v", err)
	}

	return tbl
}

func TestPlanCharts(t *testing.T) {
	tests := []struct {
		name           string
		csv            string
		wantSize       bool
		wantThroughput string
	}{
		{
			name:           "fps present",
			csv:            fullTable,
			wantSize:       true,
			wantThroughput: table.ColFPS,
		},
		{
			name:           "fps all absent falls back to elapsed",
			csv:            "qp,elapsed_sec,fps,size_mb\n1,0.5,,1\n2,0.6,,2\n",
			wantSize:       true,
			wantThroughput: table.ColElapsed,
		},
		{
			name:           "no fps column",
			csv:            "qp,elapsed_sec\n1,0.5\n",
			wantThroughput: table.ColElapsed,
		},
		{
			name:     "neither throughput column",
			csv:      "qp,size_mb\n1,2\n",
			wantSize: true,
		},
		{
			name: "no qp column",
			csv:  "elapsed_sec,fps,size_mb\n0.5,40,1\n",
		},
		{
			name: "no rows",
			csv:  "qp,elapsed_sec,fps,size_bytes,size_mb,return_code\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				gotSize       bool
				gotThroughput string
			)

			for _, c := range planCharts(mustRead(t, tt.csv)) {
				switch c.anchor {
				case sizeChartAnchor:
					gotSize = true
				case throughputChartAnchor:
					gotThroughput = c.yCol
				}
			}

			if gotSize != tt.wantSize {
				t.Errorf("size chart = %v, want %v", gotSize, tt.wantSize)
			}
			if gotThroughput != tt.wantThroughput {
				t.Errorf("throughput column = %q, want %q",
					gotThroughput, tt.wantThroughput)
			}
		})
	}
}

func newTestEmitter(t *testing.T, csv string) *Emitter {
	t.Helper()

	dir := t.TempDir()
	tablePath := filepath.Join(dir, "results.csv")

	if err := os.WriteFile(tablePath, []byte(csv), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}

	return &Emitter{
		TablePath: tablePath,
		OutPath:   filepath.Join(dir, "report", "qp_report.xlsx"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEmit(t *testing.T) {
	e := newTestEmitter(t, fullTable)

	outcome, err := e.Emit()
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if outcome.Rows != 3 || !outcome.SizeChart || outcome.ThroughputColumn != table.ColFPS {
		t.Errorf("outcome = %+v", outcome)
	}

	f, err := excelize.OpenFile(e.OutPath)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{DataSheet}, f.GetSheetList()); diff != "" {
		t.Errorf("sheets mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows(DataSheet)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}
	if diff := cmp.Diff(table.Columns(), rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	failed := rows[2]
	if failed[0] != "2" || failed[2] != "" || failed[3] != "" || failed[5] != "3" {
		t.Errorf("failed row = %q", failed)
	}

	width, err := f.GetColWidth(DataSheet, "A")
	if err != nil || width != 6 {
		t.Errorf("qp column width = %v (%v), want 6", width, err)
	}

	charts := chartXML(t, e.OutPath)
	if len(charts) != 2 {
		t.Fatalf("charts = %d, want 2", len(charts))
	}

	if !strings.Contains(charts["xl/charts/chart1.xml"], "Data!$E$2:$E$4") {
		t.Error("chart 1 should plot size_mb")
	}
	if !strings.Contains(charts["xl/charts/chart2.xml"], "Data!$C$2:$C$4") {
		t.Error("chart 2 should plot fps")
	}
}

func TestEmitFallsBackToElapsed(t *testing.T) {
	e := newTestEmitter(t, `qp,elapsed_sec,fps,size_bytes,size_mb,return_code
1,0.5,,2048,0.001953125,0
2,0.75,,1024,0.0009765625,0
`)

	outcome, err := e.Emit()
	if err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if outcome.ThroughputColumn != table.ColElapsed {
		t.Errorf("throughput column = %q, want %q",
			outcome.ThroughputColumn, table.ColElapsed)
	}

	charts := chartXML(t, e.OutPath)
	if !strings.Contains(charts["xl/charts/chart2.xml"], "Data!$B$2:$B$3") {
		t.Error("chart 2 should plot elapsed_sec")
	}
}

func TestEmitInputMissing(t *testing.T) {
	dir := t.TempDir()
	e := &Emitter{
		TablePath: filepath.Join(dir, "results.csv"),
		OutPath:   filepath.Join(dir, "out", "qp_report.xlsx"),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := e.Emit()
	if !errors.Is(err, table.ErrInputMissing) {
		t.Fatalf("err = %v, want ErrInputMissing", err)
	}

	if _, err := os.Stat(e.OutPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("no report should be written when the table is missing")
	}
	if _, err := os.Stat(filepath.Dir(e.OutPath)); !errors.Is(err, os.ErrNotExist) {
		t.Error("report dir should not be created when the table is missing")
	}
}

func TestEmitOverwrites(t *testing.T) {
	e := newTestEmitter(t, fullTable)

	if err := os.MkdirAll(filepath.Dir(e.OutPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(e.OutPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale report: %v", err)
	}

	if _, err := e.Emit(); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	f, err := excelize.OpenFile(e.OutPath)
	if err != nil {
		t.Fatalf("report was not replaced: %v", err)
	}
	f.Close()

	entries, err := os.ReadDir(filepath.Dir(e.OutPath))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

// chartXML returns the chart parts of the workbook at path, by name.
func chartXML(t *testing.T, path string) map[string]string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open workbook zip: %v", err)
	}
	defer zr.Close()

	charts := make(map[string]string)

	for _, zf := range zr.File {
		if !strings.HasPrefix(zf.Name, "xl/charts/chart") {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("open %s: %v", zf.Name, err)
		}

		data, err := io.ReadAll(rc)
		rc.Close()

		if err != nil {
			t.Fatalf("read %s: %v", zf.Name, err)
		}

		charts[zf.Name] = string(data)
	}

	return charts
}
