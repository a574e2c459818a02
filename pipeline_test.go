package spritemill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldre/spritemill/pixel"
)

func TestProcessAllPreservesOrder(t *testing.T) {
	colors := []pixel.Color{
		red, green, blue, white,
		{R: 0x80, A: 0xff},
		{G: 0x80, A: 0xff},
	}
	buffers := make([]pixel.Buffer, len(colors))
	for i, c := range colors {
		buffers[i] = solidBuffer(t, 4, 4, c)
	}

	results, err := ProcessAll(context.Background(), buffers, DefaultOptions(4, 4))
	require.NoError(t, err)
	require.Len(t, results, len(colors))

	for i, c := range colors {
		require.NotNil(t, results[i])
		require.Len(t, results[i].Palette, 1)
		assert.Equal(t, c, results[i].Palette[0], "frame %d", i)
	}
}

func TestProcessAllMatchesProcess(t *testing.T) {
	buffers := []pixel.Buffer{quadrantBuffer(t), quadrantBuffer(t)}
	opts := DefaultOptions(4, 4)
	opts.ColorLimit = 3

	batch, err := ProcessAll(context.Background(), buffers, opts)
	require.NoError(t, err)

	single, err := Process(quadrantBuffer(t), opts)
	require.NoError(t, err)

	for i, r := range batch {
		assert.Equal(t, single.Buffer.Pix, r.Buffer.Pix, "frame %d", i)
		assert.Equal(t, single.Palette, r.Palette, "frame %d", i)
		assert.Equal(t, single.IndexMap, r.IndexMap, "frame %d", i)
	}
}

func TestProcessAllEmpty(t *testing.T) {
	_, err := ProcessAll(context.Background(), nil, DefaultOptions(4, 4))
	assert.Error(t, err)
}

func TestProcessAllPropagatesFailure(t *testing.T) {
	buffers := []pixel.Buffer{
		solidBuffer(t, 4, 4, red),
		{Width: 4, Height: 4, Pix: make([]uint8, 8)},
	}

	_, err := ProcessAll(context.Background(), buffers, DefaultOptions(4, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, pixel.ErrUnsupportedInput)
}

func TestProcessAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buffers := make([]pixel.Buffer, 64)
	for i := range buffers {
		buffers[i] = solidBuffer(t, 1, 1, red)
	}

	_, err := ProcessAll(ctx, buffers, DefaultOptions(1, 1))
	assert.Error(t, err)
}
