// Package main provides the CLI entry point for qpsweep, which sweeps an
// encoder's quantizer setting and reports throughput and output size.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/qpsweep/config"
	"github.com/weiihann/qpsweep/media"
	"github.com/weiihann/qpsweep/report"
	"github.com/weiihann/qpsweep/sweep"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("qpsweep failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "qpsweep",
		Short: "Encoder quantizer sweep and report tool",
		Long: `Qpsweep runs an x264-style encoder once per quantizer value in a
range, measures wall time, throughput and output size for each run, and
renders the results into a spreadsheet with charts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(
		newSweepCmd(logger),
		newReportCmd(logger),
		newRunCmd(logger),
		newGenInputCmd(logger),
	)

	return root
}

func newSweepCmd(logger *slog.Logger) *cobra.Command {
	var (
		flags      configFlags
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the encoder across the quantizer range",
		Long: `Invoke the encoder once per quantizer value and save one row per
run to the results table. Failing runs are recorded, never skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			return runSweep(cmd.Context(), logger, cmd, cfg, outputJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Print results as JSON instead of a table")

	return cmd
}

func newReportCmd(logger *slog.Logger) *cobra.Command {
	var flags configFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the results table into a spreadsheet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			return runReport(logger, cfg)
		},
	}

	flags.register(cmd)

	return cmd
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		flags      configFlags
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sweep, then render the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}

			if err := runSweep(cmd.Context(), logger, cmd, cfg, outputJSON); err != nil {
				return err
			}

			return runReport(logger, cfg)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&outputJSON, "json", false,
		"Print results as JSON instead of a table")

	return cmd
}

func newGenInputCmd(logger *slog.Logger) *cobra.Command {
	var (
		out     string
		res     string
		frames  int
		pattern string
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "gen-input",
		Short: "Generate a synthetic raw I420 clip to sweep against",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolution, err := media.ParseResolution(res)
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			return generateInput(cmd.Context(), logger, out, media.Config{
				Resolution: resolution,
				Frames:     frames,
				Pattern:    pattern,
				Seed:       seed,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&out, "out", "foreman-cif.yuv",
		"Path of the clip to write")
	flags.StringVar(&res, "res", "352x288",
		"Frame size as WxH")
	flags.IntVar(&frames, "frames", 300,
		"Number of frames")
	flags.StringVar(&pattern, "pattern", "noise",
		"Frame content: noise, gradient, bars")
	flags.Int64Var(&seed, "seed", 0,
		"Random seed (0 = use current time)")

	return cmd
}

func runSweep(
	ctx context.Context,
	logger *slog.Logger,
	cmd *cobra.Command,
	cfg config.Config,
	outputJSON bool,
) error {
	logger.InfoContext(ctx, "starting sweep",
		slog.String("encoder", cfg.Encoder),
		slog.String("input", cfg.Input),
		slog.String("input_res", cfg.InputRes),
		slog.Int("start", cfg.Start),
		slog.Int("end", cfg.End),
	)

	if err := sweep.Preflight(cfg); err != nil {
		return fmt.Errorf("preflight: %w", err)
	}

	runner := sweep.NewRunner(cfg, logger)
	runner.Diag = cmd.ErrOrStderr()

	records, err := runner.RunSweep(ctx, cfg.Start, cfg.End)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	if len(records) > 0 {
		if err := printResults(cmd.OutOrStdout(), records, outputJSON); err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "sweep complete",
		slog.String("results", cfg.ResultsCSV),
	)

	return nil
}

func printResults(w io.Writer, records []sweep.Record, outputJSON bool) error {
	if outputJSON {
		if err := report.GenerateJSON(w, records); err != nil {
			return fmt.Errorf("generate JSON results: %w", err)
		}

		return nil
	}

	if err := report.Summary(w, records); err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}

	return nil
}

func runReport(logger *slog.Logger, cfg config.Config) error {
	outcome, err := report.NewEmitter(cfg, logger).Emit()
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	logger.Info("Excel report generated", slog.String("path", outcome.Path))

	return nil
}

func generateInput(
	ctx context.Context,
	logger *slog.Logger,
	out string,
	cfg media.Config,
) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("create clip dir: %w", err)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create clip: %w", err)
	}

	summary, err := media.NewGenerator(cfg).Generate(f)
	if err != nil {
		f.Close()
		os.Remove(out)

		return fmt.Errorf("generate: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close clip: %w", err)
	}

	logger.InfoContext(ctx, "clip generated",
		slog.String("path", out),
		slog.String("resolution", cfg.Resolution.String()),
		slog.Int("frames", summary.Frames),
		slog.Int64("bytes", summary.TotalBytes),
		slog.Int64("seed", cfg.Seed),
	)

	return nil
}
