package sweep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/weiihann/qpsweep/config"
	"github.com/weiihann/qpsweep/table"
)

// diagTailLines bounds how much encoder log an anomaly diagnostic prints.
const diagTailLines = 20

// Runner launches the encoder once per quality setting and collects
// the resulting records.
type Runner struct {
	Config config.Config
	Logger *slog.Logger

	// Diag receives the log tail of anomalous invocations.
	Diag io.Writer
}

// NewRunner creates a Runner. cfg must already be resolved to absolute
// paths. Every log record carries a fresh sweep id.
func NewRunner(cfg config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		Config: cfg,
		Logger: logger.With(slog.String("sweep_id", uuid.NewString())),
		Diag:   os.Stderr,
	}
}

// RunSweep runs the encoder for every qp in [start, end] in ascending
// order, then persists all records to the configured results table.
// Encoder failures are recorded and never stop the sweep. An error is
// returned only for launch failures, cancellation, or a failed write;
// the records collected up to that point are returned with it.
func (r *Runner) RunSweep(ctx context.Context, start, end int) ([]Record, error) {
	records := make([]Record, 0, max(0, end-start+1))

	for qp := start; qp <= end; qp++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		r.Logger.InfoContext(ctx, "running encoder", slog.Int("qp", qp))

		rec, err := r.RunOnce(ctx, qp)
		if err != nil {
			return records, fmt.Errorf("qp %d: %w", qp, err)
		}

		records = append(records, rec)
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Cells()
	}

	if err := table.WriteFile(r.Config.ResultsCSV, rows); err != nil {
		return records, fmt.Errorf("persist results: %w", err)
	}

	r.Logger.InfoContext(ctx, "results saved",
		slog.String("path", r.Config.ResultsCSV),
		slog.Int("records", len(records)),
	)

	return records, nil
}

// RunOnce executes the encoder for a single qp and measures it.
func (r *Runner) RunOnce(ctx context.Context, qp int) (Record, error) {
	if r.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.Timeout)
		defer cancel()
	}

	outPath := OutputPath(r.Config.OutputDir, qp)

	// A stale artifact from an earlier run must not be mistaken for output.
	if err := os.Remove(outPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Record{}, fmt.Errorf("remove stale output %s: %w", outPath, err)
	}

	cmdCfg := WrapCommand(r.Config.Wrapper, r.Config.Encoder)
	args := append(cmdCfg.ExtraArgs, EncoderArgs(r.Config, qp, outPath)...)

	cmd := exec.CommandContext(ctx, cmdCfg.Binary, args...)
	cmd.Dir = r.Config.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Logger.DebugContext(ctx, "starting encoder",
		slog.String("binary", cmdCfg.Binary),
		slog.Any("args", args),
	)

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	rec := Record{
		QP:         qp,
		ElapsedSec: math.Round(elapsed.Seconds()*1e4) / 1e4,
	}

	if runErr != nil {
		var exitErr *exec.ExitError

		switch {
		case errors.As(runErr, &exitErr):
			rec.ReturnCode = exitErr.ExitCode()
		case errors.Is(runErr, context.DeadlineExceeded):
			// Interrupted by the timeout without a failure status.
			rec.ReturnCode = -1
		default:
			return Record{}, fmt.Errorf("launch encoder: %w", runErr)
		}
	}

	// x264 writes progress to stderr and little to stdout; scan both.
	log := stderr.String() + "\n" + stdout.String()

	fps, fpsOK := ParseFPS(log)
	if fpsOK {
		rec.FPS = &fps
	}

	info, statErr := os.Stat(outPath)
	exists := statErr == nil && info.Mode().IsRegular()

	if exists {
		rec.SetSize(info.Size())
	}

	r.Logger.DebugContext(ctx, "encoder finished",
		slog.Int("qp", qp),
		slog.Duration("wall_time", elapsed),
		slog.Int("return_code", rec.ReturnCode),
	)

	if rec.ReturnCode != 0 || !exists || !fpsOK {
		r.diagnose(ctx, rec, outPath, exists, fpsOK, log)
	}

	return rec, nil
}

func (r *Runner) diagnose(
	ctx context.Context,
	rec Record,
	outPath string,
	exists, fpsOK bool,
	log string,
) {
	r.Logger.WarnContext(ctx, "encoder anomaly",
		slog.Int("qp", rec.QP),
		slog.Int("return_code", rec.ReturnCode),
		slog.String("expected_output", outPath),
		slog.Bool("output_exists", exists),
		slog.Bool("fps_found", fpsOK),
	)

	if r.Diag == nil {
		return
	}

	fmt.Fprintf(r.Diag, "\n--- DEBUG QP=%d ---\n", rec.QP)
	fmt.Fprintf(r.Diag, "Return code: %d\n", rec.ReturnCode)
	fmt.Fprintf(r.Diag, "Expected output: %s\n", outPath)
	fmt.Fprintf(r.Diag, "Output exists: %t\n", exists)
	fmt.Fprintln(r.Diag, "Last lines of encoder log:")
	fmt.Fprintln(r.Diag, tailLines(log, diagTailLines))
	fmt.Fprint(r.Diag, "--- END DEBUG ---\n\n")
}
