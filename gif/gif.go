/*
Package gif assembles already-quantized frames into an animated GIF89a byte
stream: logical screen descriptor, global or per-frame color tables, graphic
control extensions carrying delay and transparency, LZW-compressed image data
and the 0x3B trailer.

Frames are not re-quantized here. Every frame must already be restricted to at
most 256 colors and share the dimensions of the first frame.
*/
package gif

import (
	"bytes"
	"fmt"
	"io"

	"github.com/haldre/spritemill/pixel"
)

// Frame is one animation frame: a quantized buffer and its display duration.
// Palette may be nil, in which case it is derived from the buffer in
// first-appearance raster order.
type Frame struct {
	Buffer  pixel.Buffer
	DelayMs int
	Palette pixel.Palette
}

// plan is a frame resolved to palette indices, ready to encode.
type plan struct {
	indices        []uint8
	palette        pixel.Palette
	transparentIdx int
	delayCS        uint16
}

// Assemble encodes frames into a complete GIF byte stream. loop requests
// infinite looping via the Netscape application extension; without it the
// animation plays once.
func Assemble(frames []Frame, loop bool) ([]byte, error) {
	var b bytes.Buffer
	if err := Encode(&b, frames, loop); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// Encode writes frames to w as an animated GIF.
func Encode(w io.Writer, frames []Frame, loop bool) error {
	plans, width, height, err := resolve(frames)
	if err != nil {
		return err
	}

	e := &encoder{w: w}
	return e.encodeAll(plans, width, height, loop)
}

// resolve validates the frame list and turns each frame into an index plan.
// The first frame's dimensions are authoritative; mismatches are a hard
// failure, never an implicit resize.
func resolve(frames []Frame) ([]plan, int, int, error) {
	if len(frames) == 0 {
		return nil, 0, 0, fmt.Errorf("%w: no frames", pixel.ErrInvalidParameters)
	}

	width, height := frames[0].Buffer.Width, frames[0].Buffer.Height
	if width > 0xffff || height > 0xffff {
		return nil, 0, 0, fmt.Errorf("%w: %dx%d exceeds the GIF size limit", pixel.ErrInvalidParameters, width, height)
	}

	plans := make([]plan, len(frames))
	for i, f := range frames {
		if err := f.Buffer.Validate(); err != nil {
			return nil, 0, 0, err
		}
		if f.Buffer.Width != width || f.Buffer.Height != height {
			return nil, 0, 0, fmt.Errorf("%w: frame %d is %dx%d, want %dx%d",
				pixel.ErrInvalidParameters, i, f.Buffer.Width, f.Buffer.Height, width, height)
		}

		p, err := resolveFrame(f)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("frame %d: %w", i, err)
		}
		plans[i] = p
	}
	return plans, width, height, nil
}

func resolveFrame(f Frame) (plan, error) {
	palette := f.Palette
	if palette == nil {
		var err error
		if palette, err = derivePalette(f.Buffer); err != nil {
			return plan{}, err
		}
	}
	if len(palette) < 1 || len(palette) > pixel.MaxPaletteSize {
		return plan{}, fmt.Errorf("%w: palette of %d colors", pixel.ErrInvalidParameters, len(palette))
	}

	transparentIdx := -1
	lookup := make(map[uint32]int, len(palette))
	for i, c := range palette {
		if !c.Opaque() {
			if transparentIdx < 0 {
				transparentIdx = i
			}
			continue
		}
		key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		if _, ok := lookup[key]; !ok {
			lookup[key] = i
		}
	}

	b := f.Buffer
	indices := make([]uint8, b.Width*b.Height)
	for i, pi := 0, 0; pi < len(b.Pix); i, pi = i+1, pi+4 {
		if b.Pix[pi+3] == 0 {
			if transparentIdx < 0 {
				if len(palette) >= pixel.MaxPaletteSize {
					return plan{}, fmt.Errorf("%w: no room for a transparent entry", pixel.ErrEncodingFailure)
				}
				palette = append(palette, pixel.Transparent)
				transparentIdx = len(palette) - 1
			}
			indices[i] = uint8(transparentIdx)
			continue
		}
		key := uint32(b.Pix[pi])<<16 | uint32(b.Pix[pi+1])<<8 | uint32(b.Pix[pi+2])
		v, ok := lookup[key]
		if !ok {
			return plan{}, fmt.Errorf("%w: pixel %d uses a color missing from the palette", pixel.ErrEncodingFailure, i)
		}
		indices[i] = uint8(v)
	}

	return plan{
		indices:        indices,
		palette:        palette,
		transparentIdx: transparentIdx,
		delayCS:        delayToCentiseconds(f.DelayMs),
	}, nil
}

// derivePalette collects the frame's distinct colors in first-appearance
// raster order. Fully transparent pixels collapse to the reserved
// transparent entry regardless of their RGB channels.
func derivePalette(b pixel.Buffer) (pixel.Palette, error) {
	var palette pixel.Palette
	seen := make(map[pixel.Color]struct{})
	for i := 0; i < len(b.Pix); i += 4 {
		c := pixel.Color{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
		if c.A == 0 {
			c = pixel.Transparent
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		palette = append(palette, c)
		if len(palette) > pixel.MaxPaletteSize {
			return nil, fmt.Errorf("%w: frame has more than %d distinct colors",
				pixel.ErrInvalidParameters, pixel.MaxPaletteSize)
		}
	}
	return palette, nil
}

// delayToCentiseconds converts milliseconds to the GIF's native timing unit,
// rounding to the nearest centisecond with a floor of 1 so no frame ever
// renders "as fast as possible".
func delayToCentiseconds(ms int) uint16 {
	if ms < 0 {
		ms = 0
	}
	cs := (ms + 5) / 10
	if cs < 1 {
		cs = 1
	}
	if cs > 0xffff {
		cs = 0xffff
	}
	return uint16(cs)
}

// samePalette reports whether every plan can share one global color table.
func samePalette(plans []plan) bool {
	first := plans[0]
	for _, p := range plans[1:] {
		if len(p.palette) != len(first.palette) || p.transparentIdx != first.transparentIdx {
			return false
		}
		for i, c := range p.palette {
			if first.palette[i] != c {
				return false
			}
		}
	}
	return true
}
