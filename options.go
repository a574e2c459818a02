package spritemill

import (
	"fmt"

	"github.com/haldre/spritemill/pixel"
	"github.com/haldre/spritemill/quant"
	"github.com/haldre/spritemill/resize"
)

// Options configures one pipeline invocation. It is a value type: the
// pipeline never mutates it mid-run.
type Options struct {
	// Width and Height are the output dimensions.
	Width  int
	Height int

	// ColorLimit bounds the palette size, within [2, 256].
	ColorLimit int

	// QuantMethod selects Median Cut or Wu.
	QuantMethod quant.Method

	// Dithering enables Floyd-Steinberg error diffusion after quantization.
	Dithering bool

	// PreserveTransparency keeps fully transparent pixels out of the palette
	// population and maps them to a reserved transparent entry.
	PreserveTransparency bool

	// Scaling selects the resize kernel.
	Scaling resize.Method

	// PreserveAspectRatio letterboxes to the exact target size instead of
	// stretching.
	PreserveAspectRatio bool

	// Adjust, when non-nil, applies tonal adjustments before resizing.
	// Intended for photographic or AI-generated inputs.
	Adjust *Adjustments
}

// DefaultOptions returns pixel-art friendly settings for the given output
// size: 16 colors, median cut, nearest-neighbour scaling, no dithering.
func DefaultOptions(width, height int) Options {
	return Options{
		Width:                width,
		Height:               height,
		ColorLimit:           16,
		QuantMethod:          quant.MedianCut,
		Scaling:              resize.Nearest,
		PreserveTransparency: true,
	}
}

// Validate checks the option ranges shared by every pipeline stage.
func (o Options) Validate() error {
	if o.Width < 1 || o.Height < 1 {
		return fmt.Errorf("%w: %dx%d target", pixel.ErrInvalidParameters, o.Width, o.Height)
	}
	if o.ColorLimit < 2 || o.ColorLimit > pixel.MaxPaletteSize {
		return fmt.Errorf("%w: color limit %d", pixel.ErrInvalidParameters, o.ColorLimit)
	}
	return nil
}
