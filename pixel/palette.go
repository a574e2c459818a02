package pixel

import (
	"fmt"
	"image/color"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// MaxPaletteSize is the largest palette any stage will produce or accept.
const MaxPaletteSize = 256

// Palette is an ordered, deduplicated sequence of colors. Insertion order is
// significant: nearest-color lookups resolve exact distance ties in favour of
// the lowest index.
type Palette []Color

// NewPalette builds a palette from the given colors, dropping exact
// duplicates while preserving first-appearance order.
func NewPalette(colors ...Color) (Palette, error) {
	p := make(Palette, 0, len(colors))
	seen := make(map[Color]struct{}, len(colors))
	for _, c := range colors {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		p = append(p, c)
	}
	if len(p) < 1 || len(p) > MaxPaletteSize {
		return nil, fmt.Errorf("%w: palette of %d colors", ErrInvalidParameters, len(p))
	}
	return p, nil
}

// Index returns the position of an exactly matching color, or -1.
func (p Palette) Index(c Color) int {
	for i, e := range p {
		if e == c {
			return i
		}
	}
	return -1
}

func sqDist(a, b Color) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Nearest returns the index of the entry with the smallest squared Euclidean
// RGB distance to c. Alpha is ignored. Exact ties resolve to the lowest
// index. An empty palette returns -1.
func (p Palette) Nearest(c Color) int {
	best, bestDist := -1, int(1)<<31-1
	for i, e := range p {
		if d := sqDist(e, c); d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

// NearestOpaque is Nearest restricted to entries with nonzero alpha, so that
// opaque pixels are never matched to a reserved transparent entry.
func (p Palette) NearestOpaque(c Color) int {
	best, bestDist := -1, int(1)<<31-1
	for i, e := range p {
		if !e.Opaque() {
			continue
		}
		if d := sqDist(e, c); d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return best
}

// SortedByLuminance returns a copy of the palette ordered dark to light using
// CIE Lab lightness. Fully transparent entries sort first. Useful for
// presenting extracted palettes; lookup tie-break order is unaffected since
// the receiver is not modified.
func (p Palette) SortedByLuminance() Palette {
	dup := append(Palette(nil), p...)
	lum := func(c Color) float64 {
		if !c.Opaque() {
			return -1
		}
		l, _, _ := colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}.Lab()
		return l
	}
	sort.SliceStable(dup, func(i, j int) bool {
		return lum(dup[i]) < lum(dup[j])
	})
	return dup
}

// ToColorPalette converts to a stdlib color.Palette.
func (p Palette) ToColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	}
	return out
}
