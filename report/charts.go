package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/weiihann/qpsweep/table"
)

const (
	sizeChartAnchor       = "H2"
	throughputChartAnchor = "H20"
	chartScale            = 1.35
)

type chartSpec struct {
	title  string
	xTitle string
	yTitle string
	xCol   string
	yCol   string
	anchor string
}

// planCharts decides which charts the table supports. The size chart
// needs both its columns. The throughput chart plots fps when at least
// one run reported it and falls back to elapsed time otherwise.
func planCharts(tbl *table.Table) []chartSpec {
	if tbl.Len() == 0 || !tbl.Has(table.ColQP) {
		return nil
	}

	var charts []chartSpec

	if tbl.Has(table.ColSizeMB) {
		charts = append(charts, chartSpec{
			title:  "QP vs Output Size",
			xTitle: "QP",
			yTitle: "Output size (MB)",
			xCol:   table.ColQP,
			yCol:   table.ColSizeMB,
			anchor: sizeChartAnchor,
		})
	}

	switch {
	case tbl.Count(table.ColFPS) > 0:
		charts = append(charts, chartSpec{
			title:  "QP vs Encoding Speed (FPS)",
			xTitle: "QP",
			yTitle: "FPS",
			xCol:   table.ColQP,
			yCol:   table.ColFPS,
			anchor: throughputChartAnchor,
		})
	case tbl.Has(table.ColElapsed):
		charts = append(charts, chartSpec{
			title:  "QP vs Encoding Time",
			xTitle: "QP",
			yTitle: "Time (sec)",
			xCol:   table.ColQP,
			yCol:   table.ColElapsed,
			anchor: throughputChartAnchor,
		})
	}

	return charts
}

func addChart(f *excelize.File, tbl *table.Table, c chartSpec) error {
	xIdx, ok := tbl.Column(c.xCol)
	if !ok {
		return fmt.Errorf("column %s not found", c.xCol)
	}

	yIdx, ok := tbl.Column(c.yCol)
	if !ok {
		return fmt.Errorf("column %s not found", c.yCol)
	}

	lastRow := tbl.Len() + 1

	categories, err := columnRange(xIdx, 2, lastRow)
	if err != nil {
		return err
	}

	values, err := columnRange(yIdx, 2, lastRow)
	if err != nil {
		return err
	}

	name, err := excelize.CoordinatesToCellName(yIdx+1, 1, true)
	if err != nil {
		return err
	}

	return f.AddChart(DataSheet, c.anchor, &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       DataSheet + "!" + name,
			Categories: categories,
			Values:     values,
			Marker:     excelize.ChartMarker{Symbol: "circle"},
		}},
		Title: []excelize.RichTextRun{{Text: c.title}},
		XAxis: excelize.ChartAxis{
			Title: []excelize.RichTextRun{{Text: c.xTitle}},
		},
		YAxis: excelize.ChartAxis{
			Title:          []excelize.RichTextRun{{Text: c.yTitle}},
			MajorGridLines: true,
		},
		Legend:       excelize.ChartLegend{Position: "bottom"},
		ShowBlanksAs: "gap",
		Format: excelize.GraphicOptions{
			ScaleX: chartScale,
			ScaleY: chartScale,
		},
	})
}

// columnRange returns an absolute reference such as Data!$A$2:$A$52 for
// a zero-based column index.
func columnRange(col, firstRow, lastRow int) (string, error) {
	first, err := excelize.CoordinatesToCellName(col+1, firstRow, true)
	if err != nil {
		return "", err
	}

	last, err := excelize.CoordinatesToCellName(col+1, lastRow, true)
	if err != nil {
		return "", err
	}

	return DataSheet + "!" + first + ":" + last, nil
}
