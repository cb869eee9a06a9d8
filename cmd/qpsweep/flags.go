package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/weiihann/qpsweep/config"
)

// configFlags binds the shared configuration flags of a command. Values
// come from the defaults, then the --config file, then any flag the user
// set explicitly.
type configFlags struct {
	file   string
	values config.Config
}

func (f *configFlags) register(cmd *cobra.Command) {
	def := config.Default()
	v := &f.values

	flags := cmd.Flags()
	flags.StringVar(&f.file, "config", "",
		"YAML config file (flags override its values)")
	flags.StringVar(&v.Encoder, "encoder", def.Encoder,
		"Encoder executable path or name on PATH")
	flags.StringVar(&v.Wrapper, "wrapper", "",
		"Launcher to run the encoder through (e.g. wine)")
	flags.StringVar(&v.WorkDir, "work-dir", "",
		"Encoder working directory (default: encoder's directory)")
	flags.StringArrayVar(&v.ExtraArgs, "extra-arg", nil,
		"Extra encoder argument, repeatable")
	flags.StringVar(&v.Input, "input", def.Input,
		"Raw input clip")
	flags.StringVar(&v.InputRes, "input-res", def.InputRes,
		"Input resolution as WxH")
	flags.StringVar(&v.InputCSP, "input-csp", def.InputCSP,
		"Input pixel format")
	flags.IntVar(&v.Frames, "frames", 0,
		"Frames to encode (0 = all)")
	flags.IntVar(&v.Start, "start", def.Start,
		"First quantizer value")
	flags.IntVar(&v.End, "end", def.End,
		"Last quantizer value (inclusive)")
	flags.DurationVar(&v.Timeout, "timeout", 0,
		"Per-run timeout (0 = none)")
	flags.StringVar(&v.OutputDir, "output-dir", def.OutputDir,
		"Directory for encoded artifacts")
	flags.StringVar(&v.ResultsCSV, "results", def.ResultsCSV,
		"Results table path")
	flags.StringVar(&v.ReportPath, "report", def.ReportPath,
		"Spreadsheet report path")
}

// load builds the validated, path-resolved configuration for cmd.
func (f *configFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if f.file != "" {
		var err error

		cfg, err = config.Load(f.file)
		if err != nil {
			return cfg, err
		}
	}

	cmd.Flags().Visit(func(fl *pflag.Flag) {
		f.apply(&cfg, fl.Name)
	})

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg.Resolve()
}

// apply copies the value of one explicitly set flag onto cfg.
func (f *configFlags) apply(cfg *config.Config, name string) {
	v := f.values

	switch name {
	case "encoder":
		cfg.Encoder = v.Encoder
	case "wrapper":
		cfg.Wrapper = v.Wrapper
	case "work-dir":
		cfg.WorkDir = v.WorkDir
	case "extra-arg":
		cfg.ExtraArgs = v.ExtraArgs
	case "input":
		cfg.Input = v.Input
	case "input-res":
		cfg.InputRes = v.InputRes
	case "input-csp":
		cfg.InputCSP = v.InputCSP
	case "frames":
		cfg.Frames = v.Frames
	case "start":
		cfg.Start = v.Start
	case "end":
		cfg.End = v.End
	case "timeout":
		cfg.Timeout = v.Timeout
	case "output-dir":
		cfg.OutputDir = v.OutputDir
	case "results":
		cfg.ResultsCSV = v.ResultsCSV
	case "report":
		cfg.ReportPath = v.ReportPath
	}
}
