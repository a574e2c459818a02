/*
Package pixel provides the raw RGBA buffer, color and palette types shared by
every stage of the spritemill processing pipeline.

A Buffer is always exactly width*height*4 bytes of interleaved 8-bit RGBA.
Buffers that do not satisfy this are rejected outright rather than truncated
or padded. Stages never mutate a caller's buffer; every transform returns a
freshly allocated one.
*/
package pixel

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidParameters is returned for out-of-range arguments such as a
	// color limit outside [2, 256] or an empty frame list.
	ErrInvalidParameters = errors.New("pixel: invalid parameters")

	// ErrUnsupportedInput is returned when a buffer's data length does not
	// match its declared dimensions.
	ErrUnsupportedInput = errors.New("pixel: buffer does not match declared dimensions")

	// ErrEncodingFailure is returned when an internal invariant is violated
	// while building an output byte stream.
	ErrEncodingFailure = errors.New("pixel: encoding failure")
)

// Color is an 8-bit RGBA color. Equality is exact channel equality.
type Color struct {
	R, G, B, A uint8
}

// Transparent is the reserved fully transparent color.
var Transparent = Color{}

// Opaque reports whether the color has any coverage at all.
func (c Color) Opaque() bool {
	return c.A != 0
}

// Buffer is a width by height RGBA image with 8 bits per channel.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewBuffer returns a zeroed (fully transparent) buffer of the given size.
func NewBuffer(width, height int) (Buffer, error) {
	if width < 1 || height < 1 {
		return Buffer{}, fmt.Errorf("%w: %dx%d buffer", ErrInvalidParameters, width, height)
	}
	return Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// Validate checks the buffer dimension invariant.
func (b Buffer) Validate() error {
	if b.Width < 1 || b.Height < 1 {
		return fmt.Errorf("%w: %dx%d buffer", ErrInvalidParameters, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*4 {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrUnsupportedInput, len(b.Pix), b.Width*b.Height*4)
	}
	return nil
}

// Clone returns a deep copy of the buffer.
func (b Buffer) Clone() Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// At returns the color at (x, y). The caller is responsible for bounds.
func (b Buffer) At(x, y int) Color {
	i := (y*b.Width + x) * 4
	return Color{b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]}
}

// Set writes the color at (x, y). The caller is responsible for bounds.
func (b Buffer) Set(x, y int, c Color) {
	i := (y*b.Width + x) * 4
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = c.R, c.G, c.B, c.A
}

// FromImage copies an image.Image into a new Buffer.
func FromImage(m image.Image) Buffer {
	r := m.Bounds()
	b := Buffer{
		Width:  r.Dx(),
		Height: r.Dy(),
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
	}
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, ca := m.At(x, y).RGBA()
			b.Pix[i+0] = uint8(cr >> 8)
			b.Pix[i+1] = uint8(cg >> 8)
			b.Pix[i+2] = uint8(cb >> 8)
			b.Pix[i+3] = uint8(ca >> 8)
			i += 4
		}
	}
	return b
}

// ToRGBA copies the buffer into a stdlib *image.RGBA anchored at (0, 0).
func (b Buffer) ToRGBA() *image.RGBA {
	m := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(m.Pix, b.Pix)
	return m
}
