package spritemill

import (
	"image"

	"github.com/disintegration/gift"

	"github.com/haldre/spritemill/pixel"
)

// Adjustments are optional tonal corrections applied before resizing,
// typically to photographic or AI-generated inputs whose contrast and
// saturation need boosting before the palette collapses.
type Adjustments struct {
	// Brightness, Contrast and Saturation are percentages in [-100, 100];
	// zero leaves the channel untouched.
	Brightness float32
	Contrast   float32
	Saturation float32

	// Sharpen is the unsharp mask amount; zero disables it.
	Sharpen float32
}

func (a Adjustments) zero() bool {
	return a == Adjustments{}
}

// Apply returns an adjusted copy of the buffer.
func (a Adjustments) Apply(b pixel.Buffer) (pixel.Buffer, error) {
	if err := b.Validate(); err != nil {
		return pixel.Buffer{}, err
	}
	if a.zero() {
		return b.Clone(), nil
	}

	g := gift.New()
	if a.Brightness != 0 {
		g.Add(gift.Brightness(a.Brightness))
	}
	if a.Contrast != 0 {
		g.Add(gift.Contrast(a.Contrast))
	}
	if a.Saturation != 0 {
		g.Add(gift.Saturation(a.Saturation))
	}
	if a.Sharpen > 0 {
		g.Add(gift.UnsharpMask(1.0, a.Sharpen, 0.05))
	}

	src := b.ToRGBA()
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return pixel.FromImage(dst), nil
}
