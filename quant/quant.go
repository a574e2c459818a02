/*
Package quant reduces the color set of an RGBA buffer to a bounded palette.

Two interchangeable algorithms are provided over the same "color box" arena:
Median Cut, which repeatedly splits the most populous box at the median of its
longest channel, and Wu, which selects and splits boxes to minimise the total
within-box variance. Both are deterministic: identical input always produces
an identical palette and index map.
*/
package quant

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/haldre/spritemill/pixel"
)

// Method selects the quantization algorithm.
type Method int

const (
	// MedianCut splits the most populous box at the median of its longest
	// channel axis.
	MedianCut Method = iota
	// Wu splits so as to minimise the increase in total within-box variance.
	Wu
)

func (m Method) String() string {
	switch m {
	case MedianCut:
		return "median-cut"
	case Wu:
		return "wu"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts the wire names "median-cut" and "wu".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "median-cut":
		return MedianCut, nil
	case "wu":
		return Wu, nil
	}
	return 0, fmt.Errorf("%w: unknown quantization method %q", pixel.ErrInvalidParameters, s)
}

// entry is one distinct opaque color and its pixel population.
type entry struct {
	c pixel.Color
	n int
}

// box is a half-open range into a shared, shuffled entry arena. Splitting a
// box reorders entries within its range and never touches any other box.
type box struct {
	lo, hi int
}

func (b box) splittable() bool {
	return b.hi-b.lo >= 2
}

func channel(c pixel.Color, ch int) uint8 {
	switch ch {
	case 0:
		return c.R
	case 1:
		return c.G
	}
	return c.B
}

func packed(c pixel.Color) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Quantize reduces buffer b to at most limit colors and assigns every pixel
// the index of its nearest palette entry (squared RGB distance, lowest index
// on ties). limit must be within [1, 256]; a limit of 1 collapses the buffer
// to the mean of its pixels. Pipeline callers enforce the stricter [2, 256]
// range through Options.
//
// When preserveTransparency is set, fully transparent pixels are excluded
// from the color population and mapped to a reserved transparent entry
// appended to the palette; the reserved entry counts against limit.
func Quantize(b pixel.Buffer, limit int, method Method, preserveTransparency bool) (pixel.Palette, []int, error) {
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}
	if limit < 1 || limit > pixel.MaxPaletteSize {
		return nil, nil, fmt.Errorf("%w: color limit %d", pixel.ErrInvalidParameters, limit)
	}
	if method != MedianCut && method != Wu {
		return nil, nil, fmt.Errorf("%w: quantization method %d", pixel.ErrInvalidParameters, int(method))
	}

	entries, transparent := histogram(b, preserveTransparency)
	// A single-entry budget cannot spare the reserved slot unless nothing
	// opaque competes for it.
	hasTransparent := preserveTransparency && transparent > 0 &&
		(limit > 1 || len(entries) == 0)

	var opaque []pixel.Color
	if len(entries) > 0 {
		budget := limit
		if hasTransparent {
			budget--
		}
		var boxes []box
		switch method {
		case MedianCut:
			boxes = medianCut(entries, budget)
		case Wu:
			boxes = wuCut(entries, budget)
		}
		opaque = representatives(entries, boxes)
	}

	if hasTransparent {
		opaque = append(opaque, pixel.Transparent)
	}
	palette, err := pixel.NewPalette(opaque...)
	if err != nil {
		return nil, nil, err
	}

	return palette, indexPixels(b, palette, hasTransparent, preserveTransparency), nil
}

// histogram gathers the distinct color population in a deterministic order
// (ascending packed RGB). Alpha is dropped; colors are tracked fully opaque.
func histogram(b pixel.Buffer, preserveTransparency bool) ([]entry, int) {
	counts := make(map[uint32]int)
	transparent := 0
	for i := 0; i < len(b.Pix); i += 4 {
		if preserveTransparency && b.Pix[i+3] == 0 {
			transparent++
			continue
		}
		counts[uint32(b.Pix[i])<<16|uint32(b.Pix[i+1])<<8|uint32(b.Pix[i+2])]++
	}

	keys := make([]uint32, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	entries := make([]entry, len(keys))
	for i, k := range keys {
		entries[i] = entry{
			c: pixel.Color{R: uint8(k >> 16), G: uint8(k >> 8), B: uint8(k), A: 0xff},
			n: counts[k],
		}
	}
	return entries, transparent
}

func population(entries []entry, b box) int {
	n := 0
	for _, e := range entries[b.lo:b.hi] {
		n += e.n
	}
	return n
}

// ranges returns the per-channel min/max over the box members.
func ranges(entries []entry, b box) (lo, hi [3]uint8) {
	lo = [3]uint8{0xff, 0xff, 0xff}
	for _, e := range entries[b.lo:b.hi] {
		for ch := 0; ch < 3; ch++ {
			v := channel(e.c, ch)
			if v < lo[ch] {
				lo[ch] = v
			}
			if v > hi[ch] {
				hi[ch] = v
			}
		}
	}
	return lo, hi
}

func widestAxis(entries []entry, b box) (axis, width int) {
	lo, hi := ranges(entries, b)
	for ch := 0; ch < 3; ch++ {
		if w := int(hi[ch]) - int(lo[ch]); w > width {
			axis, width = ch, w
		}
	}
	return axis, width
}

// sortBox orders the box members by the given channel, breaking value ties by
// packed RGB so repeated runs shuffle identically.
func sortBox(entries []entry, b box, ch int) {
	s := entries[b.lo:b.hi]
	sort.Slice(s, func(i, j int) bool {
		vi, vj := channel(s[i].c, ch), channel(s[j].c, ch)
		if vi != vj {
			return vi < vj
		}
		return packed(s[i].c) < packed(s[j].c)
	})
}

// medianCut grows the arena until it holds target boxes or nothing can split.
// Box selection is by pixel population, with the widest channel range as the
// tie-break; the split lands at the population median of the widest channel.
func medianCut(entries []entry, target int) []box {
	boxes := []box{{0, len(entries)}}
	for len(boxes) < target {
		bi := -1
		bestPop, bestWidth := -1, -1
		for i, b := range boxes {
			if !b.splittable() {
				continue
			}
			pop := population(entries, b)
			_, width := widestAxis(entries, b)
			if pop > bestPop || (pop == bestPop && width > bestWidth) {
				bi, bestPop, bestWidth = i, pop, width
			}
		}
		if bi < 0 {
			break
		}

		b := boxes[bi]
		axis, _ := widestAxis(entries, b)
		sortBox(entries, b, axis)
		cut := medianCutPoint(entries, b)
		boxes[bi] = box{b.lo, cut}
		boxes = append(boxes, box{cut, b.hi})
	}
	return boxes
}

// medianCutPoint finds the first position where the cumulative population
// reaches half of the box total, clamped so both halves are non-empty.
func medianCutPoint(entries []entry, b box) int {
	total := population(entries, b)
	cum := 0
	cut := b.lo + 1
	for i := b.lo; i < b.hi; i++ {
		cum += entries[i].n
		if cum*2 >= total {
			cut = i + 1
			break
		}
	}
	if cut <= b.lo {
		cut = b.lo + 1
	}
	if cut >= b.hi {
		cut = b.hi - 1
	}
	return cut
}

// boxVariance is the population-weighted channel variance summed over RGB,
// used to pick the next box to split under the Wu criterion.
func boxVariance(entries []entry, b box) float64 {
	n := b.hi - b.lo
	vals := make([]float64, n)
	weights := make([]float64, n)
	total := 0.0
	for ch := 0; ch < 3; ch++ {
		for i, e := range entries[b.lo:b.hi] {
			vals[i] = float64(channel(e.c, ch))
			weights[i] = float64(e.n)
		}
		total += stat.Variance(vals, weights)
	}
	return total
}

// sse is the sum over RGB of squared deviations from the population-weighted
// mean for entries[lo:hi], computed from the supplied prefix moments.
func sse(cnt, sum, sumsq []float64, lo, hi, base int) float64 {
	n := cnt[hi-base] - cnt[lo-base]
	if n == 0 {
		return 0
	}
	total := 0.0
	for ch := 0; ch < 3; ch++ {
		s := sum[ch*(len(cnt))+hi-base] - sum[ch*(len(cnt))+lo-base]
		sq := sumsq[ch*(len(cnt))+hi-base] - sumsq[ch*(len(cnt))+lo-base]
		total += sq - s*s/n
	}
	return total
}

// wuCut shares the Median Cut arena and termination rule but chooses the box
// with the greatest variance and the axis/position whose split minimises the
// combined squared error of the two halves.
func wuCut(entries []entry, target int) []box {
	boxes := []box{{0, len(entries)}}
	for len(boxes) < target {
		bi := -1
		bestVar := -1.0
		for i, b := range boxes {
			if !b.splittable() {
				continue
			}
			if v := boxVariance(entries, b); v > bestVar {
				bi, bestVar = i, v
			}
		}
		if bi < 0 {
			break
		}

		b := boxes[bi]
		axis, cut := minVarianceSplit(entries, b)
		sortBox(entries, b, axis)
		boxes[bi] = box{b.lo, cut}
		boxes = append(boxes, box{cut, b.hi})
	}
	return boxes
}

// minVarianceSplit scans every cut position along every axis and returns the
// pair with the smallest combined squared error. Ties resolve to the lower
// axis and the lower cut, keeping the result reproducible.
func minVarianceSplit(entries []entry, b box) (axis, cut int) {
	n := b.hi - b.lo
	cnt := make([]float64, n+1)
	sum := make([]float64, 3*(n+1))
	sumsq := make([]float64, 3*(n+1))

	bestSSE := -1.0
	axis, cut = 0, b.lo+1
	for ch := 0; ch < 3; ch++ {
		sortBox(entries, b, ch)
		for i := 0; i < n; i++ {
			e := entries[b.lo+i]
			w := float64(e.n)
			cnt[i+1] = cnt[i] + w
			for c := 0; c < 3; c++ {
				v := float64(channel(e.c, c))
				sum[c*(n+1)+i+1] = sum[c*(n+1)+i] + w*v
				sumsq[c*(n+1)+i+1] = sumsq[c*(n+1)+i] + w*v*v
			}
		}
		for k := b.lo + 1; k < b.hi; k++ {
			s := sse(cnt, sum, sumsq, b.lo, k, b.lo) + sse(cnt, sum, sumsq, k, b.hi, b.lo)
			if bestSSE < 0 || s < bestSSE {
				bestSSE, axis, cut = s, ch, k
			}
		}
	}
	return axis, cut
}

// representatives reduces each box to the population-weighted mean of its
// member colors.
func representatives(entries []entry, boxes []box) []pixel.Color {
	out := make([]pixel.Color, 0, len(boxes))
	for _, b := range boxes {
		var sum [3]int
		n := 0
		for _, e := range entries[b.lo:b.hi] {
			sum[0] += int(e.c.R) * e.n
			sum[1] += int(e.c.G) * e.n
			sum[2] += int(e.c.B) * e.n
			n += e.n
		}
		if n == 0 {
			continue
		}
		out = append(out, pixel.Color{
			R: uint8((sum[0] + n/2) / n),
			G: uint8((sum[1] + n/2) / n),
			B: uint8((sum[2] + n/2) / n),
			A: 0xff,
		})
	}
	return out
}

// indexPixels maps every pixel to its nearest palette entry. Lookups are
// memoised per distinct color; the cache cannot change the result, only skip
// repeated scans.
func indexPixels(b pixel.Buffer, palette pixel.Palette, hasTransparent, preserveTransparency bool) []int {
	idx := make([]int, b.Width*b.Height)
	cache := make(map[uint32]int)
	transparentIdx := len(palette) - 1

	for i, pi := 0, 0; pi < len(b.Pix); i, pi = i+1, pi+4 {
		if preserveTransparency && b.Pix[pi+3] == 0 && hasTransparent {
			idx[i] = transparentIdx
			continue
		}
		key := uint32(b.Pix[pi])<<16 | uint32(b.Pix[pi+1])<<8 | uint32(b.Pix[pi+2])
		v, ok := cache[key]
		if !ok {
			c := pixel.Color{R: b.Pix[pi], G: b.Pix[pi+1], B: b.Pix[pi+2], A: 0xff}
			v = palette.NearestOpaque(c)
			if v < 0 {
				v = palette.Nearest(c)
			}
			cache[key] = v
		}
		idx[i] = v
	}
	return idx
}
