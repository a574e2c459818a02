package quant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldre/spritemill/pixel"
)

var (
	red   = pixel.Color{R: 0xff, A: 0xff}
	green = pixel.Color{G: 0xff, A: 0xff}
	blue  = pixel.Color{B: 0xff, A: 0xff}
)

// makeBuffer fills a buffer with the given colors in raster order.
func makeBuffer(t *testing.T, width, height int, colors ...pixel.Color) pixel.Buffer {
	t.Helper()
	require.Len(t, colors, width*height)

	b, err := pixel.NewBuffer(width, height)
	require.NoError(t, err)
	for i, c := range colors {
		b.Set(i%width, i/width, c)
	}
	return b
}

// noiseBuffer generates a deterministic pseudo-random buffer.
func noiseBuffer(t *testing.T, width, height int) pixel.Buffer {
	t.Helper()

	b, err := pixel.NewBuffer(width, height)
	require.NoError(t, err)
	seed := uint32(0x2545f491)
	for i := 0; i < len(b.Pix); i += 4 {
		seed = seed*1664525 + 1013904223
		b.Pix[i] = uint8(seed >> 24)
		b.Pix[i+1] = uint8(seed >> 16)
		b.Pix[i+2] = uint8(seed >> 8)
		b.Pix[i+3] = 0xff
	}
	return b
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("median-cut")
	require.NoError(t, err)
	assert.Equal(t, MedianCut, m)
	assert.Equal(t, "median-cut", m.String())

	m, err = ParseMethod("wu")
	require.NoError(t, err)
	assert.Equal(t, Wu, m)
	assert.Equal(t, "wu", m.String())

	_, err = ParseMethod("octree")
	assert.ErrorIs(t, err, pixel.ErrInvalidParameters)
}

func TestQuantizeInvalidParameters(t *testing.T) {
	b := makeBuffer(t, 1, 1, red)

	_, _, err := Quantize(b, 0, MedianCut, true)
	assert.ErrorIs(t, err, pixel.ErrInvalidParameters)

	_, _, err = Quantize(b, pixel.MaxPaletteSize+1, MedianCut, true)
	assert.ErrorIs(t, err, pixel.ErrInvalidParameters)

	_, _, err = Quantize(b, 16, Method(9), true)
	assert.ErrorIs(t, err, pixel.ErrInvalidParameters)

	_, _, err = Quantize(pixel.Buffer{Width: 2, Height: 2, Pix: make([]uint8, 8)}, 16, MedianCut, true)
	assert.ErrorIs(t, err, pixel.ErrUnsupportedInput)
}

func TestQuantizeTwoColors(t *testing.T) {
	for _, method := range []Method{MedianCut, Wu} {
		t.Run(method.String(), func(t *testing.T) {
			b := makeBuffer(t, 2, 2, red, red, blue, green)

			palette, idx, err := Quantize(b, 2, method, true)
			require.NoError(t, err)
			require.Len(t, palette, 2)
			require.Len(t, idx, 4)

			// The two red pixels dominate and survive exactly; blue and green
			// collapse into one averaged entry.
			assert.Equal(t, idx[0], idx[1])
			assert.Equal(t, red, palette[idx[0]])
			assert.Equal(t, idx[2], idx[3])
			assert.NotEqual(t, idx[0], idx[2])
		})
	}
}

func TestQuantizeSingleEntryMean(t *testing.T) {
	b := makeBuffer(t, 2, 2, red, red, blue, green)

	palette, idx, err := Quantize(b, 1, MedianCut, true)
	require.NoError(t, err)
	require.Len(t, palette, 1)

	// Population-weighted mean of two reds, one blue, one green.
	assert.Equal(t, pixel.Color{R: 128, G: 64, B: 64, A: 0xff}, palette[0])
	for _, i := range idx {
		assert.Equal(t, 0, i)
	}
}

func TestQuantizePaletteBound(t *testing.T) {
	b := noiseBuffer(t, 16, 16)

	for _, method := range []Method{MedianCut, Wu} {
		t.Run(method.String(), func(t *testing.T) {
			palette, idx, err := Quantize(b, 8, method, true)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(palette), 8)
			require.Len(t, idx, 16*16)
			for _, i := range idx {
				assert.GreaterOrEqual(t, i, 0)
				assert.Less(t, i, len(palette))
			}
		})
	}
}

func TestQuantizeFewerColorsThanLimit(t *testing.T) {
	b := makeBuffer(t, 3, 1, red, green, blue)

	for _, method := range []Method{MedianCut, Wu} {
		t.Run(method.String(), func(t *testing.T) {
			palette, idx, err := Quantize(b, 16, method, true)
			require.NoError(t, err)
			assert.ElementsMatch(t, pixel.Palette{red, green, blue}, palette)
			for i, want := range []pixel.Color{red, green, blue} {
				assert.Equal(t, want, palette[idx[i]])
			}
		})
	}
}

func TestQuantizeDeterministic(t *testing.T) {
	for _, method := range []Method{MedianCut, Wu} {
		t.Run(method.String(), func(t *testing.T) {
			p1, i1, err := Quantize(noiseBuffer(t, 24, 24), 16, method, true)
			require.NoError(t, err)
			p2, i2, err := Quantize(noiseBuffer(t, 24, 24), 16, method, true)
			require.NoError(t, err)

			assert.Equal(t, p1, p2)
			assert.Equal(t, i1, i2)
		})
	}
}

// renderIndexed materialises a buffer from a quantization result.
func renderIndexed(b pixel.Buffer, palette pixel.Palette, idx []int) pixel.Buffer {
	out := b.Clone()
	for i, v := range idx {
		out.Set(i%b.Width, i/b.Width, palette[v])
	}
	return out
}

func TestQuantizeIdempotent(t *testing.T) {
	for _, method := range []Method{MedianCut, Wu} {
		t.Run(method.String(), func(t *testing.T) {
			b := noiseBuffer(t, 16, 16)

			p1, i1, err := Quantize(b, 8, method, true)
			require.NoError(t, err)
			first := renderIndexed(b, p1, i1)

			p2, i2, err := Quantize(first, 8, method, true)
			require.NoError(t, err)
			second := renderIndexed(first, p2, i2)

			assert.Equal(t, first.Pix, second.Pix)
		})
	}
}

func TestQuantizeDoesNotMutateInput(t *testing.T) {
	b := noiseBuffer(t, 8, 8)
	orig := b.Clone()

	_, _, err := Quantize(b, 4, MedianCut, true)
	require.NoError(t, err)
	assert.Equal(t, orig.Pix, b.Pix)
}

func TestQuantizeTransparency(t *testing.T) {
	clear := pixel.Color{R: 0x40, G: 0x40, B: 0x40, A: 0}
	b := makeBuffer(t, 2, 2, red, clear, blue, green)

	palette, idx, err := Quantize(b, 4, MedianCut, true)
	require.NoError(t, err)
	require.Len(t, palette, 4)

	// The reserved entry sits at the end of the palette.
	assert.Equal(t, pixel.Transparent, palette[len(palette)-1])
	assert.Equal(t, len(palette)-1, idx[1])

	// Opaque pixels never land on the reserved entry.
	for _, i := range []int{0, 2, 3} {
		assert.True(t, palette[idx[i]].Opaque())
	}
}

func TestQuantizeTransparencyCountsAgainstLimit(t *testing.T) {
	clear := pixel.Color{A: 0}
	b := makeBuffer(t, 2, 2, red, clear, blue, green)

	palette, _, err := Quantize(b, 2, MedianCut, true)
	require.NoError(t, err)
	require.Len(t, palette, 2)

	// One slot goes to the reserved entry, leaving one for all opaque colors.
	assert.True(t, palette[0].Opaque())
	assert.Equal(t, pixel.Transparent, palette[1])
}

func TestQuantizeTransparencyDisabled(t *testing.T) {
	clear := pixel.Color{R: 0x40, G: 0x40, B: 0x40, A: 0}
	b := makeBuffer(t, 2, 2, red, clear, blue, green)

	palette, _, err := Quantize(b, 4, MedianCut, false)
	require.NoError(t, err)

	// The transparent pixel's RGB joins the population as an opaque color.
	for _, c := range palette {
		assert.True(t, c.Opaque())
	}
	assert.Contains(t, palette, pixel.Color{R: 0x40, G: 0x40, B: 0x40, A: 0xff})
}

func TestQuantizeSingleEntryWithTransparency(t *testing.T) {
	clear := pixel.Color{A: 0}
	b := makeBuffer(t, 2, 2, red, clear, blue, green)

	// A one-entry budget has no room for the reserved transparent slot when
	// opaque colors exist; the limit wins.
	palette, _, err := Quantize(b, 1, MedianCut, true)
	require.NoError(t, err)
	require.Len(t, palette, 1)
	assert.True(t, palette[0].Opaque())
}

func TestQuantizeFullyTransparentBuffer(t *testing.T) {
	b, err := pixel.NewBuffer(2, 2)
	require.NoError(t, err)

	palette, idx, err := Quantize(b, 4, MedianCut, true)
	require.NoError(t, err)
	require.Len(t, palette, 1)
	assert.Equal(t, pixel.Transparent, palette[0])
	assert.Equal(t, []int{0, 0, 0, 0}, idx)
}
