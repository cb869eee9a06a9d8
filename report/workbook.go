package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/weiihann/qpsweep/config"
	"github.com/weiihann/qpsweep/table"
)

// DataSheet is the name of the worksheet holding the results table.
const DataSheet = "Data"

const defaultColWidth = 12

var colWidths = map[string]float64{
	table.ColQP:         6,
	table.ColElapsed:    12,
	table.ColFPS:        10,
	table.ColSizeBytes:  12,
	table.ColSizeMB:     10,
	table.ColReturnCode: 12,
}

// Outcome describes what a generated workbook contains.
type Outcome struct {
	Path string
	Rows int

	// SizeChart is true when the qp vs size chart was added.
	SizeChart bool
	// ThroughputColumn is the column plotted by the second chart, or
	// empty if it was omitted.
	ThroughputColumn string
}

// Emitter turns a persisted results table into a workbook.
type Emitter struct {
	TablePath string
	OutPath   string
	Logger    *slog.Logger
}

// NewEmitter creates an Emitter reading and writing the paths in cfg.
func NewEmitter(cfg config.Config, logger *slog.Logger) *Emitter {
	return &Emitter{
		TablePath: cfg.ResultsCSV,
		OutPath:   cfg.ReportPath,
		Logger:    logger,
	}
}

// Emit reads the table and writes the workbook. A missing table fails
// with table.ErrInputMissing before anything is written. The workbook is
// staged in a temporary file and renamed into place, so a failure never
// leaves a partial report behind.
func (e *Emitter) Emit() (Outcome, error) {
	tbl, err := table.ReadFile(e.TablePath)
	if err != nil {
		return Outcome{}, err
	}

	f, outcome, err := Build(tbl)
	if err != nil {
		return Outcome{}, err
	}
	defer f.Close()

	if err := saveAtomic(f, e.OutPath); err != nil {
		return Outcome{}, err
	}

	outcome.Path = e.OutPath

	e.Logger.Info("report generated",
		slog.String("path", e.OutPath),
		slog.Int("rows", outcome.Rows),
		slog.Bool("size_chart", outcome.SizeChart),
		slog.String("throughput_chart", outcome.ThroughputColumn),
	)

	return outcome, nil
}

// Build lays out the data sheet and its charts in a new workbook.
func Build(tbl *table.Table) (*excelize.File, Outcome, error) {
	f := excelize.NewFile()

	outcome, err := build(f, tbl)
	if err != nil {
		f.Close()

		return nil, Outcome{}, err
	}

	return f, outcome, nil
}

func build(f *excelize.File, tbl *table.Table) (Outcome, error) {
	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return Outcome{}, fmt.Errorf("name sheet: %w", err)
	}

	if err := writeData(f, tbl); err != nil {
		return Outcome{}, err
	}

	outcome := Outcome{Rows: tbl.Len()}

	for _, c := range planCharts(tbl) {
		if err := addChart(f, tbl, c); err != nil {
			return Outcome{}, fmt.Errorf("add chart %q: %w", c.title, err)
		}

		switch c.anchor {
		case sizeChartAnchor:
			outcome.SizeChart = true
		case throughputChartAnchor:
			outcome.ThroughputColumn = c.yCol
		}
	}

	return outcome, nil
}

func writeData(f *excelize.File, tbl *table.Table) error {
	numeric := make(map[int][]*float64)

	for _, name := range table.NumericColumns() {
		col, ok := tbl.Column(name)
		if !ok {
			continue
		}

		numeric[col], _ = tbl.Numeric(name)
	}

	header := make([]interface{}, len(tbl.Header))
	for i, name := range tbl.Header {
		header[i] = name
	}

	if err := f.SetSheetRow(DataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range tbl.Rows {
		for c, text := range row {
			var value interface{} = text

			if vals, ok := numeric[c]; ok {
				if vals[r] == nil {
					// Leave the cell blank so charts show a gap.
					continue
				}

				value = *vals[r]
			}

			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}

			if err := f.SetCellValue(DataSheet, cell, value); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	return formatSheet(f, tbl.Header)
}

func formatSheet(f *excelize.File, header []string) error {
	if len(header) == 0 {
		return nil
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"D9E1F2"},
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "8EA9DB", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(DataSheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, name := range header {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}

		width, ok := colWidths[name]
		if !ok {
			width = defaultColWidth
		}

		if err := f.SetColWidth(DataSheet, col, col, width); err != nil {
			return fmt.Errorf("width of %s: %w", name, err)
		}
	}

	return nil
}

// saveAtomic writes f to a temporary file next to path and renames it
// into place.
func saveAtomic(f *excelize.File, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.xlsx")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := f.Write(tmp); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move report into place: %w", err)
	}

	return nil
}
