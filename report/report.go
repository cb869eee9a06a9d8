// Package report renders sweep results: a console summary table, a JSON
// dump, and the spreadsheet workbook with charts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/weiihann/qpsweep/sweep"
)

// Summary writes a markdown table of the sweep to w.
func Summary(w io.Writer, records []sweep.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("no results to report")
	}

	fastest := findFastest(records)

	fmt.Fprintln(w, "## Sweep Results")
	fmt.Fprintln(w)

	var failed []string

	for _, r := range records {
		if r.Failed() {
			failed = append(failed, fmt.Sprintf("%d (exit %d)", r.QP, r.ReturnCode))
		}
	}

	if len(failed) == 0 {
		fmt.Fprintf(w, "Runs: %d, **all produced output**\n", len(records))
	} else {
		fmt.Fprintf(w, "Runs: %d, **%d FAILED**: qp %s\n",
			len(records), len(failed), strings.Join(failed, ", "))
	}

	fmt.Fprintln(w)

	fmt.Fprintln(w, "| QP | Elapsed | FPS | Size | Exit | Slowdown |")
	fmt.Fprintln(w, "|----|---------|-----|------|------|----------|")

	for _, r := range records {
		slowdown := "-"
		if fastest > 0 && !r.Failed() {
			slowdown = fmt.Sprintf("%.2fx", r.ElapsedSec/fastest)
		}

		fmt.Fprintf(w, "| %d | %s | %s | %s | %d | %s |\n",
			r.QP,
			formatSeconds(r.ElapsedSec),
			formatFPS(r.FPS),
			formatBytes(r.SizeBytes),
			r.ReturnCode,
			slowdown,
		)
	}

	return nil
}

// GenerateJSON writes records as JSON to w. Absent fields are null.
func GenerateJSON(w io.Writer, records []sweep.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(records)
}

// findFastest returns the shortest elapsed time among runs that
// produced output, or 0 if none did.
func findFastest(records []sweep.Record) float64 {
	fastest := math.Inf(1)
	for _, r := range records {
		if !r.Failed() && r.ElapsedSec > 0 && r.ElapsedSec < fastest {
			fastest = r.ElapsedSec
		}
	}

	if math.IsInf(fastest, 1) {
		return 0
	}

	return fastest
}

func formatSeconds(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%dms", int64(math.Round(sec*1000)))
	}

	return fmt.Sprintf("%.2fs", sec)
}

func formatFPS(fps *float64) string {
	if fps == nil {
		return "-"
	}

	return fmt.Sprintf("%.2f", *fps)
}

func formatBytes(b *int64) string {
	if b == nil {
		return "-"
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(*b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return formatted + " " + units[unit]
}
