package quant

import (
	"fmt"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/haldre/spritemill/pixel"
)

// kmeansSampleCap bounds the number of observations handed to the clusterer;
// sampling is by fixed stride so the same buffer always yields the same set.
const kmeansSampleCap = 4096

// ExtractPalette discovers a palette of at most maxColors without producing
// an index map. The input buffer is never modified.
func ExtractPalette(b pixel.Buffer, maxColors int, method Method) (pixel.Palette, error) {
	palette, _, err := Quantize(b, maxColors, method, false)
	if err != nil {
		return nil, err
	}
	return palette, nil
}

// Dominant returns the single most representative color of the buffer.
func Dominant(b pixel.Buffer) (pixel.Color, error) {
	if err := b.Validate(); err != nil {
		return pixel.Color{}, err
	}
	c := dominantcolor.Find(b.ToRGBA())
	return pixel.Color{R: c.R, G: c.G, B: c.B, A: 0xff}, nil
}

// KMeansPalette clusters the buffer's colors into k groups and returns the
// cluster centers, ordered dark to light. Unlike Quantize it is an analysis
// aid: cluster seeding is randomised, so results are representative rather
// than reproducible.
func KMeansPalette(b pixel.Buffer, k int) (pixel.Palette, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if k < 2 || k > pixel.MaxPaletteSize {
		return nil, fmt.Errorf("%w: cluster count %d", pixel.ErrInvalidParameters, k)
	}

	total := b.Width * b.Height
	stride := 1
	if total > kmeansSampleCap {
		stride = total / kmeansSampleCap
	}
	var obs clusters.Observations
	for i := 0; i < total; i += stride {
		pi := i * 4
		obs = append(obs, clusters.Coordinates{
			float64(b.Pix[pi]) / 255,
			float64(b.Pix[pi+1]) / 255,
			float64(b.Pix[pi+2]) / 255,
		})
	}
	if len(obs) < k {
		return nil, fmt.Errorf("%w: %d observations for %d clusters", pixel.ErrInvalidParameters, len(obs), k)
	}

	km := kmeans.New()
	cs, err := km.Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("quant: kmeans: %w", err)
	}

	out := make([]pixel.Color, 0, len(cs))
	for _, c := range cs {
		center := c.Center
		if len(center) < 3 {
			continue
		}
		out = append(out, pixel.Color{
			R: clamp255(center[0] * 255),
			G: clamp255(center[1] * 255),
			B: clamp255(center[2] * 255),
			A: 0xff,
		})
	}
	palette, err := pixel.NewPalette(out...)
	if err != nil {
		return nil, err
	}
	return palette.SortedByLuminance(), nil
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
