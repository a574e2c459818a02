/*
Package resize scales RGBA buffers. Nearest-neighbour is the default: it is
the only method that preserves the hard pixel edges pixel art depends on.
Bicubic and Lanczos3 are available for photographic or AI-generated inputs
that are downscaled before quantization.
*/
package resize

import (
	"fmt"

	nfnt "github.com/nfnt/resize"

	"github.com/haldre/spritemill/pixel"
)

// Method selects the scaling kernel.
type Method int

const (
	// Nearest maps output (x, y) to source (floor(x*srcW/dstW),
	// floor(y*srcH/dstH)) with no interpolation.
	Nearest Method = iota
	// Cubic is a bicubic interpolation kernel.
	Cubic
	// Lanczos3 is a three-lobed Lanczos interpolation kernel.
	Lanczos3
)

func (m Method) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Cubic:
		return "cubic"
	case Lanczos3:
		return "lanczos3"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts the wire names "nearest", "cubic" and "lanczos3".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "nearest":
		return Nearest, nil
	case "cubic":
		return Cubic, nil
	case "lanczos3":
		return Lanczos3, nil
	}
	return 0, fmt.Errorf("%w: unknown scaling method %q", pixel.ErrInvalidParameters, s)
}

// Resize scales b to exactly width by height. When preserveAspectRatio is set
// and the target does not match the source aspect ratio, the scaled image is
// centred on a transparent canvas of the exact target size.
func Resize(b pixel.Buffer, width, height int, method Method, preserveAspectRatio bool) (pixel.Buffer, error) {
	if err := b.Validate(); err != nil {
		return pixel.Buffer{}, err
	}
	if width < 1 || height < 1 {
		return pixel.Buffer{}, fmt.Errorf("%w: %dx%d target", pixel.ErrInvalidParameters, width, height)
	}

	if !preserveAspectRatio {
		return scale(b, width, height, method)
	}

	fitW, fitH := FitDimensions(b.Width, b.Height, width, height)
	scaled, err := scale(b, fitW, fitH, method)
	if err != nil {
		return pixel.Buffer{}, err
	}
	if fitW == width && fitH == height {
		return scaled, nil
	}
	return letterbox(scaled, width, height), nil
}

// FitDimensions returns the largest dimensions with the same aspect ratio as
// srcW by srcH that fit within maxW by maxH. Both results are at least 1.
func FitDimensions(srcW, srcH, maxW, maxH int) (int, int) {
	w := maxW
	h := srcH * maxW / srcW
	if h > maxH {
		h = maxH
		w = srcW * maxH / srcH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

func scale(b pixel.Buffer, width, height int, method Method) (pixel.Buffer, error) {
	if width == b.Width && height == b.Height {
		return b.Clone(), nil
	}

	switch method {
	case Nearest:
		return nearest(b, width, height), nil
	case Cubic:
		return pixel.FromImage(nfnt.Resize(uint(width), uint(height), b.ToRGBA(), nfnt.Bicubic)), nil
	case Lanczos3:
		return pixel.FromImage(nfnt.Resize(uint(width), uint(height), b.ToRGBA(), nfnt.Lanczos3)), nil
	}
	return pixel.Buffer{}, fmt.Errorf("%w: scaling method %d", pixel.ErrInvalidParameters, int(method))
}

func nearest(b pixel.Buffer, width, height int) pixel.Buffer {
	out := pixel.Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
	for y := 0; y < height; y++ {
		sy := y * b.Height / height
		for x := 0; x < width; x++ {
			sx := x * b.Width / width
			out.Set(x, y, b.At(sx, sy))
		}
	}
	return out
}

// letterbox centres b on a transparent width by height canvas.
func letterbox(b pixel.Buffer, width, height int) pixel.Buffer {
	out := pixel.Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
	ox := (width - b.Width) / 2
	oy := (height - b.Height) / 2
	for y := 0; y < b.Height; y++ {
		src := y * b.Width * 4
		dst := ((y+oy)*width + ox) * 4
		copy(out.Pix[dst:dst+b.Width*4], b.Pix[src:src+b.Width*4])
	}
	return out
}
