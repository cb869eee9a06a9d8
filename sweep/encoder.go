package sweep

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/weiihann/qpsweep/config"
)

// Setup failures. They abort a sweep before any encoder is launched.
var (
	ErrEncoderNotFound = errors.New("encoder executable not found")
	ErrInputNotFound   = errors.New("input media not found")
	ErrDirCreate       = errors.New("cannot create directory")
)

// OutputPath returns the artifact path for one quality setting. Each
// setting gets its own file so repeated runs never collide.
func OutputPath(outputDir string, qp int) string {
	return filepath.Join(outputDir, fmt.Sprintf("out_qp%02d.264", qp))
}

// EncoderArgs builds the x264-style argument list for one invocation.
func EncoderArgs(cfg config.Config, qp int, outPath string) []string {
	args := make([]string, 0, 12+len(cfg.ExtraArgs))
	args = append(args,
		"--qp", strconv.Itoa(qp),
		"--input-res", cfg.InputRes,
		"--input-csp", cfg.InputCSP,
	)

	if cfg.Frames > 0 {
		args = append(args, "--frames", strconv.Itoa(cfg.Frames))
	}

	args = append(args, cfg.ExtraArgs...)
	args = append(args, "-o", outPath, cfg.Input)

	return args
}

// CommandConfig holds the resolved command and the arguments that
// precede the encoder's own.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
}

// WrapCommand returns the exec configuration needed to launch the
// encoder. Without a wrapper this is just the encoder path; with one
// (e.g. wine for a Windows build) the encoder becomes its first argument.
func WrapCommand(wrapper, encoder string) CommandConfig {
	if wrapper == "" {
		return CommandConfig{Binary: encoder}
	}

	return CommandConfig{
		Binary:    wrapper,
		ExtraArgs: []string{encoder},
	}
}

// Preflight verifies the environment a sweep depends on. cfg must
// already be resolved to absolute paths.
func Preflight(cfg config.Config) error {
	info, err := os.Stat(cfg.Encoder)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrEncoderNotFound, cfg.Encoder)
	}

	if cfg.Wrapper != "" {
		if _, err := exec.LookPath(cfg.Wrapper); err != nil {
			return fmt.Errorf("%w: wrapper %s", ErrEncoderNotFound, cfg.Wrapper)
		}
	}

	info, err = os.Stat(cfg.Input)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInputNotFound, cfg.Input)
	}

	for _, dir := range []string{cfg.OutputDir, filepath.Dir(cfg.ResultsCSV)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDirCreate, dir, err)
		}
	}

	return nil
}
