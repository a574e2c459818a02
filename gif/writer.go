package gif

import (
	"compress/lzw"
	"io"
)

const (
	headerGIF89a = "GIF89a"

	sExtension       = 0x21
	sImageDescriptor = 0x2c
	sTrailer         = 0x3b

	eGraphicControl = 0xf9
	eApplication    = 0xff

	// Every frame restores to background before the next one is drawn, so
	// transparent regions never accumulate remnants of earlier frames.
	disposalBackground = 2
)

type encoder struct {
	w io.Writer

	// Scratch buffer, large enough for a full 256 entry color table.
	buf [1024]byte
}

func (e *encoder) write(p []byte) error {
	_, err := e.w.Write(p)
	return err
}

func (e *encoder) writeByte(b byte) error {
	e.buf[0] = b
	return e.write(e.buf[:1])
}

// Little-endian.
func putUint16(b []byte, v uint16) {
	b[0] = uint8(v)
	b[1] = uint8(v >> 8)
}

// tableBits returns the smallest power p, at least 1, with 1<<p >= n. The
// encoded color table holds exactly 1<<p entries, padded with black.
func tableBits(n int) uint {
	p := uint(1)
	for 1<<p < n {
		p++
	}
	return p
}

func (e *encoder) encodeAll(plans []plan, width, height int, loop bool) error {
	global := samePalette(plans)

	if _, err := io.WriteString(e.w, headerGIF89a); err != nil {
		return err
	}
	if err := e.writeScreenDescriptor(width, height, plans[0], global); err != nil {
		return err
	}
	if global {
		if err := e.writeColorTable(plans[0]); err != nil {
			return err
		}
	}
	if loop {
		if err := e.writeLoopExtension(); err != nil {
			return err
		}
	}
	for i := range plans {
		if err := e.writeFrame(&plans[i], width, height, global); err != nil {
			return err
		}
	}
	return e.writeByte(sTrailer)
}

func (e *encoder) writeScreenDescriptor(width, height int, first plan, global bool) error {
	putUint16(e.buf[0:2], uint16(width))
	putUint16(e.buf[2:4], uint16(height))
	if global {
		e.buf[4] = 0x80 | 0x70 | uint8(tableBits(len(first.palette))-1)
	} else {
		e.buf[4] = 0x00
	}
	e.buf[5] = 0x00 // Background color index.
	e.buf[6] = 0x00 // Pixel aspect ratio.
	return e.write(e.buf[:7])
}

func (e *encoder) writeColorTable(p plan) error {
	size := 1 << tableBits(len(p.palette))
	for i := 0; i < size; i++ {
		if i < len(p.palette) {
			c := p.palette[i]
			e.buf[3*i+0] = c.R
			e.buf[3*i+1] = c.G
			e.buf[3*i+2] = c.B
		} else {
			// Pad with black.
			e.buf[3*i+0] = 0x00
			e.buf[3*i+1] = 0x00
			e.buf[3*i+2] = 0x00
		}
	}
	return e.write(e.buf[:3*size])
}

// writeLoopExtension emits the Netscape application extension requesting
// infinite looping.
func (e *encoder) writeLoopExtension() error {
	e.buf[0] = sExtension
	e.buf[1] = eApplication
	e.buf[2] = 0x0b
	if err := e.write(e.buf[:3]); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, "NETSCAPE2.0"); err != nil {
		return err
	}
	e.buf[0] = 0x03          // Sub-block size.
	e.buf[1] = 0x01          // Loop sub-block index.
	putUint16(e.buf[2:4], 0) // Zero means loop forever.
	e.buf[4] = 0x00          // Block terminator.
	return e.write(e.buf[:5])
}

func (e *encoder) writeFrame(p *plan, width, height int, global bool) error {
	if err := e.writeGraphicControl(p); err != nil {
		return err
	}
	if err := e.writeImageDescriptor(p, width, height, global); err != nil {
		return err
	}
	if !global {
		if err := e.writeColorTable(*p); err != nil {
			return err
		}
	}
	return e.writeImageData(p)
}

func (e *encoder) writeGraphicControl(p *plan) error {
	e.buf[0] = sExtension
	e.buf[1] = eGraphicControl
	e.buf[2] = 0x04
	e.buf[3] = disposalBackground << 2
	if p.transparentIdx >= 0 {
		e.buf[3] |= 0x01
	}
	putUint16(e.buf[4:6], p.delayCS)
	if p.transparentIdx >= 0 {
		e.buf[6] = uint8(p.transparentIdx)
	} else {
		e.buf[6] = 0x00
	}
	e.buf[7] = 0x00
	return e.write(e.buf[:8])
}

func (e *encoder) writeImageDescriptor(p *plan, width, height int, global bool) error {
	e.buf[0] = sImageDescriptor
	putUint16(e.buf[1:3], 0)
	putUint16(e.buf[3:5], 0)
	putUint16(e.buf[5:7], uint16(width))
	putUint16(e.buf[7:9], uint16(height))
	if global {
		e.buf[9] = 0x00
	} else {
		e.buf[9] = 0x80 | uint8(tableBits(len(p.palette))-1)
	}
	return e.write(e.buf[:10])
}

func (e *encoder) writeImageData(p *plan) error {
	litWidth := int(tableBits(len(p.palette)))
	if litWidth < 2 {
		litWidth = 2
	}
	if err := e.writeByte(uint8(litWidth)); err != nil {
		return err
	}

	lzww := lzw.NewWriter(&blockWriter{e: e}, lzw.LSB, litWidth)
	if _, err := lzww.Write(p.indices); err != nil {
		lzww.Close()
		return err
	}
	if err := lzww.Close(); err != nil {
		return err
	}
	return e.writeByte(0x00) // Block terminator.
}

// blockWriter chops the LZW stream into the GIF's (n, n bytes) sub-block
// structure with 1 <= n <= 255.
type blockWriter struct {
	e *encoder
}

func (b *blockWriter) Write(data []byte) (int, error) {
	total := 0
	for total < len(data) {
		n := copy(b.e.buf[1:256], data[total:])
		b.e.buf[0] = uint8(n)
		if err := b.e.write(b.e.buf[:n+1]); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
