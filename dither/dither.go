/*
Package dither spreads quantization error across neighbouring pixels using
Floyd-Steinberg error diffusion, simulating intermediate colors with a
restricted palette.
*/
package dither

import (
	"fmt"

	"github.com/haldre/spritemill/pixel"
)

// NearestFunc resolves a color to a palette index. It must honour the palette
// tie-break rule: lowest index wins on equal distance.
type NearestFunc func(pixel.Color) int

// Floyd-Steinberg kernel: fractions of the quantization error pushed to the
// right, below-left, below and below-right neighbours.
var kernel = [4]struct {
	dx, dy int
	weight float32
}{
	{1, 0, 7.0 / 16},
	{-1, 1, 3.0 / 16},
	{0, 1, 5.0 / 16},
	{1, 1, 1.0 / 16},
}

// FloydSteinberg dithers buffer b against the given palette and returns a new
// buffer whose pixels are all palette entries. nearest may be nil, in which
// case the palette's own lookup is used.
//
// Pixels are visited in raster order. Error accumulates in a float working
// copy so a pixel's lookup value reflects diffusion from earlier pixels but
// is only ever resolved once. When preserveTransparency is set, fully
// transparent pixels pass through unchanged and neither emit nor absorb
// error.
func FloydSteinberg(b pixel.Buffer, palette pixel.Palette, nearest NearestFunc, preserveTransparency bool) (pixel.Buffer, error) {
	if err := b.Validate(); err != nil {
		return pixel.Buffer{}, err
	}
	if len(palette) == 0 {
		return pixel.Buffer{}, fmt.Errorf("%w: empty palette", pixel.ErrInvalidParameters)
	}
	if nearest == nil {
		nearest = func(c pixel.Color) int {
			if i := palette.NearestOpaque(c); i >= 0 {
				return i
			}
			return palette.Nearest(c)
		}
	}

	// Working copy of the RGB channels; diffusion never touches alpha.
	work := make([]float32, b.Width*b.Height*3)
	for i, wi := 0, 0; i < len(b.Pix); i, wi = i+4, wi+3 {
		work[wi] = float32(b.Pix[i])
		work[wi+1] = float32(b.Pix[i+1])
		work[wi+2] = float32(b.Pix[i+2])
	}

	out := b.Clone()
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			if preserveTransparency && b.At(x, y).A == 0 {
				continue
			}

			wi := (y*b.Width + x) * 3
			c := pixel.Color{
				R: clampChannel(work[wi]),
				G: clampChannel(work[wi+1]),
				B: clampChannel(work[wi+2]),
				A: b.At(x, y).A,
			}

			chosen := palette[nearest(c)]
			out.Set(x, y, pixel.Color{R: chosen.R, G: chosen.G, B: chosen.B, A: c.A})

			errR := float32(c.R) - float32(chosen.R)
			errG := float32(c.G) - float32(chosen.G)
			errB := float32(c.B) - float32(chosen.B)

			for _, k := range kernel {
				nx, ny := x+k.dx, y+k.dy
				if nx < 0 || nx >= b.Width || ny < 0 || ny >= b.Height {
					continue
				}
				if preserveTransparency && b.At(nx, ny).A == 0 {
					continue
				}
				ni := (ny*b.Width + nx) * 3
				work[ni] += errR * k.weight
				work[ni+1] += errG * k.weight
				work[ni+2] += errB * k.weight
			}
		}
	}
	return out, nil
}

func clampChannel(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
