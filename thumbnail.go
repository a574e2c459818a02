package spritemill

import (
	"fmt"

	"github.com/haldre/spritemill/pixel"
	"github.com/haldre/spritemill/quant"
	"github.com/haldre/spritemill/resize"
)

// ThumbnailColorLimit is the fixed palette size used for thumbnails, which
// favour speed and byte size over gradient fidelity.
const ThumbnailColorLimit = 16

// Thumbnail scales the buffer with nearest-neighbour so its longer dimension
// equals maxSize, then quantizes with dithering off. The result never exceeds
// maxSize in either dimension.
func Thumbnail(b pixel.Buffer, maxSize int) (*Result, error) {
	if err := b.Validate(); err != nil {
		return nil, &StageError{StageValidate, err}
	}
	if maxSize < 1 {
		return nil, &StageError{StageValidate, fmt.Errorf("%w: thumbnail size %d", pixel.ErrInvalidParameters, maxSize)}
	}

	w, h := resize.FitDimensions(b.Width, b.Height, maxSize, maxSize)
	return Process(b, Options{
		Width:                w,
		Height:               h,
		ColorLimit:           ThumbnailColorLimit,
		QuantMethod:          quant.MedianCut,
		Scaling:              resize.Nearest,
		PreserveTransparency: true,
	})
}
