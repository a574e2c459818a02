package spritemill

import (
	"bytes"
	stdgif "image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldre/spritemill/gif"
	"github.com/haldre/spritemill/pixel"
)

func TestFramesFromResults(t *testing.T) {
	results := []*Result{
		{Buffer: solidBuffer(t, 2, 2, red), Palette: pixel.Palette{red}},
		{Buffer: solidBuffer(t, 2, 2, blue), Palette: pixel.Palette{blue}},
	}

	frames := FramesFromResults(results, 80)
	require.Len(t, frames, 2)
	for i, f := range frames {
		assert.Equal(t, results[i].Buffer, f.Buffer)
		assert.Equal(t, results[i].Palette, f.Palette)
		assert.Equal(t, 80, f.DelayMs)
	}
}

func TestAssembleAnimationClampsDelay(t *testing.T) {
	frames := []gif.Frame{
		{Buffer: solidBuffer(t, 2, 2, red), DelayMs: 10},
		{Buffer: solidBuffer(t, 2, 2, blue), DelayMs: 10},
	}

	data, err := AssembleAnimation(frames, true)
	require.NoError(t, err)

	g, err := stdgif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	// 10ms clamps to the 50ms pipeline floor, encoded as 5cs.
	assert.Equal(t, []int{5, 5}, g.Delay)
	assert.Equal(t, 0, g.LoopCount)

	// The encoder itself only enforces the format's 1cs floor.
	raw, err := gif.Assemble(frames, true)
	require.NoError(t, err)
	g, err = stdgif.DecodeAll(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, g.Delay)
}

func TestAssembleAnimationKeepsSlowDelays(t *testing.T) {
	frames := []gif.Frame{
		{Buffer: solidBuffer(t, 2, 2, red), DelayMs: 200},
	}

	data, err := AssembleAnimation(frames, false)
	require.NoError(t, err)

	g, err := stdgif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []int{20}, g.Delay)
	assert.Equal(t, -1, g.LoopCount)

	// The caller's frame slice is left alone.
	assert.Equal(t, 200, frames[0].DelayMs)
}
