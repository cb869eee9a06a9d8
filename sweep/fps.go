package sweep

import (
	"regexp"
	"strconv"
	"strings"
)

// x264 output formatting varies between builds; only the summary line's
// fps figure is needed.
var reEncodedFPS = regexp.MustCompile(
	`(?i)encoded\s+\d+\s+frames.*?([\d.]+)\s+fps`)

// ParseFPS extracts the throughput from an encoder log. It reports false
// when no summary line is present or its figure is not a number.
func ParseFPS(log string) (float64, bool) {
	m := reEncodedFPS.FindStringSubmatch(log)
	if m == nil {
		return 0, false
	}

	fps, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	return fps, true
}

// tailLines returns the last n lines of s.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, "\n")
}
