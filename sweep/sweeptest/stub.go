// Package sweeptest provides a stub encoder for tests. The stub is the
// test binary itself, re-executed with an environment marker; call Main
// from TestMain so re-executed processes act as the encoder.
package sweeptest

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
)

const (
	envStub   = "QPSWEEP_STUB_ENCODER"
	envFail   = "QPSWEEP_STUB_FAIL_QPS"
	envNoFPS  = "QPSWEEP_STUB_NOFPS_QPS"
	envNoFile = "QPSWEEP_STUB_NOFILE_QPS"
)

// FailExitCode is the status the stub exits with for failing settings.
const FailExitCode = 3

// Options selects which quality settings misbehave.
type Options struct {
	// FailQPs exit with FailExitCode and write no output.
	FailQPs []int
	// NoFPSQPs succeed but print no summary line.
	NoFPSQPs []int
	// NoFileQPs exit 0 and print a summary but write no output.
	NoFileQPs []int
}

// Main runs the stub and exits if this process was launched as one.
func Main() {
	if os.Getenv(envStub) == "" {
		return
	}

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// Enable makes invocations of the test binary behave as the stub for the
// rest of t and returns the path to use as the encoder executable.
func Enable(t testing.TB, opts Options) string {
	t.Helper()

	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("locate test binary: %v", err)
	}

	t.Setenv(envStub, "1")
	t.Setenv(envFail, joinInts(opts.FailQPs))
	t.Setenv(envNoFPS, joinInts(opts.NoFPSQPs))
	t.Setenv(envNoFile, joinInts(opts.NoFileQPs))

	return exe
}

// FPS is the throughput the stub reports for qp.
func FPS(qp int) float64 {
	return 40 + float64(qp)/2
}

// OutputSize is the number of bytes the stub writes for qp.
func OutputSize(qp int) int64 {
	return int64(52-qp) * 4096
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		qp      = -1
		outPath string
	)

	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "--qp":
			qp, _ = strconv.Atoi(args[i+1])
		case "-o":
			outPath = args[i+1]
		}
	}

	if qp < 0 || outPath == "" {
		fmt.Fprintln(stderr, "stub [error]: missing --qp or -o")

		return 2
	}

	fmt.Fprintf(stderr, "stub [info]: qp %d -> %s\n", qp, outPath)

	if listed(envFail, qp) {
		fmt.Fprintf(stderr, "stub [error]: could not open input file for qp %d\n", qp)

		return FailExitCode
	}

	if !listed(envNoFile, qp) {
		data := make([]byte, OutputSize(qp))
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			fmt.Fprintf(stderr, "stub [error]: %v\n", err)

			return 1
		}
	}

	if !listed(envNoFPS, qp) {
		fmt.Fprintf(stderr, "encoded 300 frames, %.2f fps, 812.44 kb/s\n", FPS(qp))
	}

	fmt.Fprintln(stdout, "done")

	return 0
}

func listed(env string, qp int) bool {
	for _, f := range strings.Split(os.Getenv(env), ",") {
		if n, err := strconv.Atoi(f); err == nil && n == qp {
			return true
		}
	}

	return false
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}

	return strings.Join(parts, ",")
}
