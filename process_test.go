package spritemill

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldre/spritemill/pixel"
	"github.com/haldre/spritemill/quant"
	"github.com/haldre/spritemill/resize"
)

var (
	red   = pixel.Color{R: 0xff, A: 0xff}
	green = pixel.Color{G: 0xff, A: 0xff}
	blue  = pixel.Color{B: 0xff, A: 0xff}
	white = pixel.Color{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

func solidBuffer(t *testing.T, width, height int, c pixel.Color) pixel.Buffer {
	t.Helper()

	b, err := pixel.NewBuffer(width, height)
	require.NoError(t, err)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.Set(x, y, c)
		}
	}
	return b
}

// quadrantBuffer is an 8x8 sprite with a different color per quadrant.
func quadrantBuffer(t *testing.T) pixel.Buffer {
	t.Helper()

	b, err := pixel.NewBuffer(8, 8)
	require.NoError(t, err)
	quadrants := [2][2]pixel.Color{{red, green}, {blue, white}}
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			b.Set(x, y, quadrants[y/4][x/4])
		}
	}
	return b
}

func TestProcess(t *testing.T) {
	b := quadrantBuffer(t)

	r, err := Process(b, DefaultOptions(4, 4))
	require.NoError(t, err)

	assert.Equal(t, 4, r.Buffer.Width)
	assert.Equal(t, 4, r.Buffer.Height)
	require.Len(t, r.IndexMap, 16)

	// Four distinct colors against a 16 color budget survive exactly.
	assert.ElementsMatch(t, pixel.Palette{red, green, blue, white}, r.Palette)
	assert.Equal(t, red, r.Buffer.At(0, 0))
	assert.Equal(t, white, r.Buffer.At(3, 3))
}

func TestProcessDeterministic(t *testing.T) {
	opts := DefaultOptions(4, 4)
	opts.ColorLimit = 3

	r1, err := Process(quadrantBuffer(t), opts)
	require.NoError(t, err)
	r2, err := Process(quadrantBuffer(t), opts)
	require.NoError(t, err)

	assert.Equal(t, r1.Buffer.Pix, r2.Buffer.Pix)
	assert.Equal(t, r1.Palette, r2.Palette)
	assert.Equal(t, r1.IndexMap, r2.IndexMap)
}

func TestProcessBufferMatchesIndexMap(t *testing.T) {
	r, err := Process(quadrantBuffer(t), DefaultOptions(8, 8))
	require.NoError(t, err)

	for i, idx := range r.IndexMap {
		want := r.Palette[idx]
		assert.Equal(t, want, r.Buffer.At(i%8, i/8), "pixel %d", i)
	}
}

func TestProcessDithering(t *testing.T) {
	opts := DefaultOptions(8, 8)
	opts.ColorLimit = 2
	opts.Dithering = true

	r, err := Process(quadrantBuffer(t), opts)
	require.NoError(t, err)

	for i, idx := range r.IndexMap {
		c := r.Buffer.At(i%8, i/8)
		assert.NotEqual(t, -1, r.Palette.Index(c), "pixel %d", i)
		assert.Equal(t, r.Palette[idx], c, "pixel %d", i)
	}
}

func TestProcessPreservesTransparency(t *testing.T) {
	b := quadrantBuffer(t)
	b.Set(0, 0, pixel.Color{A: 0})

	r, err := Process(b, DefaultOptions(8, 8))
	require.NoError(t, err)

	assert.Equal(t, uint8(0), r.Buffer.At(0, 0).A)
	transparentIdx := r.Palette.Index(pixel.Transparent)
	require.NotEqual(t, -1, transparentIdx)
	assert.Equal(t, transparentIdx, r.IndexMap[0])
}

func TestProcessAdjustments(t *testing.T) {
	opts := DefaultOptions(8, 8)
	opts.Adjust = &Adjustments{Brightness: 20, Contrast: 10}

	r, err := Process(quadrantBuffer(t), opts)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Buffer.Width)
	assert.LessOrEqual(t, len(r.Palette), 16)
}

func TestProcessInputUnmodified(t *testing.T) {
	b := quadrantBuffer(t)
	orig := b.Clone()

	opts := DefaultOptions(4, 4)
	opts.Dithering = true
	opts.ColorLimit = 2
	_, err := Process(b, opts)
	require.NoError(t, err)
	assert.Equal(t, orig.Pix, b.Pix)
}

func TestProcessStageErrors(t *testing.T) {
	tables := []struct {
		name   string
		buffer pixel.Buffer
		opts   Options
		stage  Stage
		cause  error
	}{
		{
			"bad buffer",
			pixel.Buffer{Width: 2, Height: 2, Pix: make([]uint8, 4)},
			DefaultOptions(2, 2),
			StageValidate,
			pixel.ErrUnsupportedInput,
		},
		{
			"bad color limit",
			solidBuffer(t, 2, 2, red),
			Options{Width: 2, Height: 2, ColorLimit: 1},
			StageValidate,
			pixel.ErrInvalidParameters,
		},
		{
			"bad target size",
			solidBuffer(t, 2, 2, red),
			Options{Width: 0, Height: 2, ColorLimit: 16},
			StageValidate,
			pixel.ErrInvalidParameters,
		},
	}

	for _, table := range tables {
		t.Run(table.name, func(t *testing.T) {
			_, err := Process(table.buffer, table.opts)
			require.Error(t, err)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, table.stage, se.Stage)
			assert.ErrorIs(t, err, table.cause)
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := DefaultOptions(4, 4)
	assert.NoError(t, opts.Validate())
	assert.Equal(t, 16, opts.ColorLimit)
	assert.Equal(t, quant.MedianCut, opts.QuantMethod)
	assert.Equal(t, resize.Nearest, opts.Scaling)
	assert.True(t, opts.PreserveTransparency)

	opts.ColorLimit = 257
	assert.ErrorIs(t, opts.Validate(), pixel.ErrInvalidParameters)

	opts = DefaultOptions(0, 4)
	assert.ErrorIs(t, opts.Validate(), pixel.ErrInvalidParameters)
}
