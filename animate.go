package spritemill

import (
	"github.com/haldre/spritemill/gif"
)

// MinFrameDelayMs is the shortest frame duration the pipeline will encode.
// Anything faster is clamped before assembly; this is a presentation policy,
// not a caller contract violation, and is separate from the GIF format's own
// one-centisecond floor.
const MinFrameDelayMs = 50

// FramesFromResults pairs processed frames with a uniform delay.
func FramesFromResults(results []*Result, delayMs int) []gif.Frame {
	frames := make([]gif.Frame, len(results))
	for i, r := range results {
		frames[i] = gif.Frame{
			Buffer:  r.Buffer,
			DelayMs: delayMs,
			Palette: r.Palette,
		}
	}
	return frames
}

// AssembleAnimation clamps frame delays to MinFrameDelayMs and encodes the
// frames as an animated GIF.
func AssembleAnimation(frames []gif.Frame, loop bool) ([]byte, error) {
	clamped := make([]gif.Frame, len(frames))
	for i, f := range frames {
		if f.DelayMs < MinFrameDelayMs {
			f.DelayMs = MinFrameDelayMs
		}
		clamped[i] = f
	}
	return gif.Assemble(clamped, loop)
}
