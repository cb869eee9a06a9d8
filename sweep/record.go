// Package sweep drives an external encoder across a range of quality
// settings and records timing, throughput and output size per setting.
package sweep

import "strconv"

// Record holds the measurements of one encoder invocation. Optional
// fields are nil when the encoder did not report or produce them.
type Record struct {
	QP         int      `json:"qp"`
	ElapsedSec float64  `json:"elapsed_sec"`
	FPS        *float64 `json:"fps"`
	SizeBytes  *int64   `json:"size_bytes"`
	SizeMB     *float64 `json:"size_mb"`
	ReturnCode int      `json:"return_code"`
}

// SetSize records the output size. SizeMB is always derived here so the
// two fields never disagree.
func (r *Record) SetSize(n int64) {
	mb := float64(n) / (1 << 20)
	r.SizeBytes = &n
	r.SizeMB = &mb
}

// Failed reports whether the invocation exited non-zero or left no output.
func (r Record) Failed() bool {
	return r.ReturnCode != 0 || r.SizeBytes == nil
}

// Cells renders r in persisted column order. Absent fields are empty.
func (r Record) Cells() []string {
	return []string{
		strconv.Itoa(r.QP),
		formatFloat(&r.ElapsedSec),
		formatFloat(r.FPS),
		formatInt(r.SizeBytes),
		formatFloat(r.SizeMB),
		strconv.Itoa(r.ReturnCode),
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatInt(*v, 10)
}
