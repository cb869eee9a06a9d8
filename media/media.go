// Package media generates deterministic raw I420 clips for encoder sweeps
// and parses the "WxH" resolution descriptors the encoder expects.
package media

import (
	"fmt"
	"io"
	mrand "math/rand"
	"strconv"
	"strings"
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int
	Height int
}

// String formats r the way the encoder's --input-res flag expects.
func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// FrameSize returns the byte size of one I420 frame: a full-size luma
// plane followed by two quarter-size chroma planes.
func (r Resolution) FrameSize() int {
	return r.Width*r.Height + 2*(r.Width/2)*(r.Height/2)
}

// ParseResolution parses "WxH". Both dimensions must be positive and even,
// since I420 subsamples chroma by two in each direction.
func ParseResolution(s string) (Resolution, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Resolution{}, fmt.Errorf("resolution %q: want WxH", s)
	}

	width, err := strconv.Atoi(w)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution %q: width: %w", s, err)
	}

	height, err := strconv.Atoi(h)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution %q: height: %w", s, err)
	}

	if width <= 0 || height <= 0 {
		return Resolution{}, fmt.Errorf("resolution %q: dimensions must be positive", s)
	}

	if width%2 != 0 || height%2 != 0 {
		return Resolution{}, fmt.Errorf("resolution %q: dimensions must be even", s)
	}

	return Resolution{Width: width, Height: height}, nil
}

// Summary contains statistics about the generated clip.
type Summary struct {
	Frames     int
	FrameBytes int
	TotalBytes int64
}

// Config controls clip generation parameters.
type Config struct {
	Resolution Resolution
	Frames     int
	Pattern    string
	Seed       int64
}

// Generator produces deterministic clips from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator from the given Config.
func NewGenerator(cfg Config) *Generator {
	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate writes the raw clip to w and returns a Summary.
func (g *Generator) Generate(w io.Writer) (Summary, error) {
	res := g.cfg.Resolution
	if res.Width <= 0 || res.Height <= 0 {
		return Summary{}, fmt.Errorf("invalid resolution %s", res)
	}

	summary := Summary{FrameBytes: res.FrameSize()}
	frame := make([]byte, summary.FrameBytes)

	for i := 0; i < g.cfg.Frames; i++ {
		g.fill(frame, i)

		n, err := w.Write(frame)
		summary.TotalBytes += int64(n)

		if err != nil {
			return summary, fmt.Errorf("write frame %d: %w", i, err)
		}

		summary.Frames++
	}

	return summary, nil
}

func (g *Generator) fill(frame []byte, index int) {
	res := g.cfg.Resolution
	lumaSize := res.Width * res.Height
	luma, chroma := frame[:lumaSize], frame[lumaSize:]

	switch g.cfg.Pattern {
	case "gradient":
		// Diagonal ramp that scrolls one pixel per frame.
		for y := 0; y < res.Height; y++ {
			for x := 0; x < res.Width; x++ {
				luma[y*res.Width+x] = byte(x + y + index)
			}
		}

		for i := range chroma {
			chroma[i] = 128
		}

	case "bars":
		levels := [...]byte{235, 210, 170, 145, 106, 81, 41, 16}
		barWidth := max(1, res.Width/len(levels))

		for y := 0; y < res.Height; y++ {
			for x := 0; x < res.Width; x++ {
				bar := min(x/barWidth, len(levels)-1)
				luma[y*res.Width+x] = levels[bar]
			}
		}

		for i := range chroma {
			chroma[i] = byte(g.rng.Intn(16) + 120)
		}

	default:
		// Fall back to noise if unknown pattern.
		g.rng.Read(frame)
	}
}
