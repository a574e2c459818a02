package spritemill

import (
	"fmt"
	"time"

	"github.com/haldre/spritemill/dither"
	"github.com/haldre/spritemill/pixel"
	"github.com/haldre/spritemill/quant"
	"github.com/haldre/spritemill/resize"
)

// Stage names the pipeline step an error originated from.
type Stage string

const (
	StageValidate Stage = "validate"
	StageAdjust   Stage = "adjust"
	StageResize   Stage = "resize"
	StageQuantize Stage = "quantize"
	StageDither   Stage = "dither"
)

// StageError wraps a stage failure. The pipeline performs no retries; the
// first error is terminal for the invocation and retry policy belongs to the
// caller.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("spritemill: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Timing records how long each stage of a pipeline run took.
type Timing struct {
	Adjust   time.Duration
	Resize   time.Duration
	Quantize time.Duration
	Dither   time.Duration
	Total    time.Duration
}

// Result is the output of one pipeline invocation: the processed buffer, the
// palette it is restricted to, the per-pixel palette indices and timings.
type Result struct {
	Buffer   pixel.Buffer
	Palette  pixel.Palette
	IndexMap []int
	Timing   Timing
}

// Process runs the linear pipeline over a single buffer:
// validate, adjust (optional), resize, quantize, dither (optional).
// The input buffer is never modified; every stage hands a fresh buffer to the
// next.
func Process(b pixel.Buffer, opts Options) (*Result, error) {
	start := time.Now()

	if err := b.Validate(); err != nil {
		return nil, &StageError{StageValidate, err}
	}
	if err := opts.Validate(); err != nil {
		return nil, &StageError{StageValidate, err}
	}

	var timing Timing
	cur := b

	if opts.Adjust != nil && !opts.Adjust.zero() {
		t := time.Now()
		adjusted, err := opts.Adjust.Apply(cur)
		if err != nil {
			return nil, &StageError{StageAdjust, err}
		}
		cur = adjusted
		timing.Adjust = time.Since(t)
	}

	t := time.Now()
	resized, err := resize.Resize(cur, opts.Width, opts.Height, opts.Scaling, opts.PreserveAspectRatio)
	if err != nil {
		return nil, &StageError{StageResize, err}
	}
	cur = resized
	timing.Resize = time.Since(t)

	t = time.Now()
	palette, indexMap, err := quant.Quantize(cur, opts.ColorLimit, opts.QuantMethod, opts.PreserveTransparency)
	if err != nil {
		return nil, &StageError{StageQuantize, err}
	}
	timing.Quantize = time.Since(t)

	var out pixel.Buffer
	if opts.Dithering {
		t = time.Now()
		out, err = dither.FloydSteinberg(cur, palette, nil, opts.PreserveTransparency)
		if err != nil {
			return nil, &StageError{StageDither, err}
		}
		indexMap = reindex(out, palette, opts.PreserveTransparency)
		timing.Dither = time.Since(t)
	} else {
		out = render(cur, palette, indexMap)
	}

	timing.Total = time.Since(start)
	return &Result{
		Buffer:   out,
		Palette:  palette,
		IndexMap: indexMap,
		Timing:   timing,
	}, nil
}

// render materialises a buffer from a palette and index map, keeping the
// source alpha for transparent pixels mapped to a reserved entry.
func render(b pixel.Buffer, palette pixel.Palette, indexMap []int) pixel.Buffer {
	out := pixel.Buffer{
		Width:  b.Width,
		Height: b.Height,
		Pix:    make([]uint8, len(b.Pix)),
	}
	for i, pi := 0, 0; i < len(indexMap); i, pi = i+1, pi+4 {
		c := palette[indexMap[i]]
		out.Pix[pi+0] = c.R
		out.Pix[pi+1] = c.G
		out.Pix[pi+2] = c.B
		out.Pix[pi+3] = c.A
	}
	return out
}

// reindex rebuilds the index map after dithering, whose output pixels are all
// palette entries already.
func reindex(b pixel.Buffer, palette pixel.Palette, preserveTransparency bool) []int {
	transparentIdx := palette.Index(pixel.Transparent)
	idx := make([]int, b.Width*b.Height)
	for i, pi := 0, 0; pi < len(b.Pix); i, pi = i+1, pi+4 {
		if preserveTransparency && b.Pix[pi+3] == 0 && transparentIdx >= 0 {
			idx[i] = transparentIdx
			continue
		}
		c := pixel.Color{R: b.Pix[pi], G: b.Pix[pi+1], B: b.Pix[pi+2], A: 0xff}
		v := palette.NearestOpaque(c)
		if v < 0 {
			v = palette.Nearest(c)
		}
		idx[i] = v
	}
	return idx
}
