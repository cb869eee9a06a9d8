// Package config holds the sweep configuration: defaults, YAML loading,
// validation, and resolution of every path to absolute form.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/qpsweep/media"
)

// Config is the full configuration surface of a sweep and its report.
// It is built once and passed by value to the driver and the emitter.
type Config struct {
	// Encoder invocation.
	Encoder   string   `yaml:"encoder"`   // Path or name of the encoder executable.
	Wrapper   string   `yaml:"wrapper"`   // Optional launcher, e.g. "wine".
	WorkDir   string   `yaml:"workDir"`   // Default: directory containing Encoder.
	ExtraArgs []string `yaml:"extraArgs"` // Appended before the output flag.

	// Input media.
	Input    string `yaml:"input"`
	InputRes string `yaml:"inputRes"` // "WxH".
	InputCSP string `yaml:"inputCsp"` // Default: "i420".
	Frames   int    `yaml:"frames"`   // 0 encodes the whole input.

	// Sweep range, inclusive.
	Start int `yaml:"start"`
	End   int `yaml:"end"`

	// Timeout bounds a single invocation. Zero disables it.
	Timeout time.Duration `yaml:"timeout"`

	// Outputs.
	OutputDir  string `yaml:"outputDir"`
	ResultsCSV string `yaml:"resultsCsv"`
	ReportPath string `yaml:"report"`
}

// Default returns the configuration of the reference x264 CIF sweep.
func Default() Config {
	return Config{
		Encoder:    "x264",
		Input:      "foreman-cif.yuv",
		InputRes:   "352x288",
		InputCSP:   "i420",
		Start:      1,
		End:        51,
		OutputDir:  "outputs",
		ResultsCSV: filepath.Join("results", "results.csv"),
		ReportPath: filepath.Join("results", "qp_report.xlsx"),
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file
// keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports every invalid setting, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Encoder == "" {
		errs = append(errs, errors.New("encoder path is empty"))
	}
	if c.Input == "" {
		errs = append(errs, errors.New("input path is empty"))
	}
	if _, err := media.ParseResolution(c.InputRes); err != nil {
		errs = append(errs, fmt.Errorf("input resolution: %w", err))
	}
	if c.Start > c.End {
		errs = append(errs, fmt.Errorf(
			"sweep start %d is greater than end %d", c.Start, c.End,
		))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames must be >= 0, got %d", c.Frames))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must be >= 0, got %s", c.Timeout))
	}
	if c.OutputDir == "" || c.ResultsCSV == "" || c.ReportPath == "" {
		errs = append(errs, errors.New("output dir, results table and report paths are required"))
	}

	return errors.Join(errs...)
}

// Resolve returns a copy of c with every path made absolute, so the
// encoder's own working directory cannot change what they point at.
// A bare encoder name is looked up on PATH first.
func (c Config) Resolve() (Config, error) {
	out := c

	enc, err := resolveExecutable(c.Encoder)
	if err != nil {
		return c, err
	}

	out.Encoder = enc

	for _, p := range []*string{
		&out.Input, &out.OutputDir, &out.ResultsCSV, &out.ReportPath,
	} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return c, fmt.Errorf("resolve %s: %w", *p, err)
		}

		*p = abs
	}

	if out.WorkDir == "" {
		out.WorkDir = filepath.Dir(out.Encoder)
	} else {
		out.WorkDir, err = filepath.Abs(out.WorkDir)
		if err != nil {
			return c, fmt.Errorf("resolve work dir: %w", err)
		}
	}

	return out, nil
}

// Count returns the number of values in the sweep range.
func (c Config) Count() int {
	if c.End < c.Start {
		return 0
	}

	return c.End - c.Start + 1
}

func resolveExecutable(name string) (string, error) {
	if filepath.Base(name) == name {
		if found, err := exec.LookPath(name); err == nil {
			return filepath.Abs(found)
		}
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("resolve encoder %s: %w", name, err)
	}

	return abs, nil
}
