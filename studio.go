package spritemill

import (
	"bytes"
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/haldre/spritemill/pixel"
	"github.com/haldre/spritemill/quant"
)

func loadBuffer(path string) (pixel.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return pixel.Buffer{}, err
	}
	defer f.Close()

	m, _, err := image.Decode(f)
	if err != nil {
		return pixel.Buffer{}, err
	}
	return pixel.FromImage(m), nil
}

func encodePNG(b pixel.Buffer) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.ToRGBA()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// record stores asset metadata when a database is attached. Metadata is an
// aid, not a contract: failures are logged and the asset URL is still
// returned to the caller.
func (s *Studio) record(kind, mime string, data []byte, url string, width, height, colors int, preview []byte) {
	if s.db == nil {
		return
	}
	sha := fmt.Sprintf("%X", sha1.Sum(data))
	if _, err := s.db.AddAsset(sql.NullInt64{}, kind, mime, url, sha, width, height, colors, preview); err != nil {
		s.logger.Printf("recording %s asset failed: %v\n", kind, err)
	}
}

// ProcessFile runs the still-image pipeline over the image at path, encodes
// the result as PNG and uploads it. A zero width or height in opts means
// "keep the source dimension".
func (s *Studio) ProcessFile(path string, opts Options) (string, error) {
	b, err := loadBuffer(path)
	if err != nil {
		return "", err
	}
	if opts.Width < 1 {
		opts.Width = b.Width
	}
	if opts.Height < 1 {
		opts.Height = b.Height
	}

	r, err := Process(b, opts)
	if err != nil {
		return "", err
	}

	data, err := encodePNG(r.Buffer)
	if err != nil {
		return "", err
	}
	url, err := s.store.Upload(data, "image/png")
	if err != nil {
		return "", err
	}

	preview, err := previewPNG(r.Buffer.ToRGBA())
	if err != nil {
		s.logger.Printf("preview for %q failed: %v\n", path, err)
		preview = nil
	}
	s.record("still", "image/png", data, url, r.Buffer.Width, r.Buffer.Height, len(r.Palette), preview)

	s.logger.Printf("processed %q: %dx%d, %d colors in %s\n",
		path, r.Buffer.Width, r.Buffer.Height, len(r.Palette), r.Timing.Total)
	return url, nil
}

// ExportAnimation processes every frame file concurrently, assembles them
// into an animated GIF with a uniform delay, and uploads the result.
func (s *Studio) ExportAnimation(ctx context.Context, paths []string, delayMs int, loop bool, opts Options) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: no frames", pixel.ErrInvalidParameters)
	}

	buffers := make([]pixel.Buffer, len(paths))
	for i, p := range paths {
		b, err := loadBuffer(p)
		if err != nil {
			return "", err
		}
		buffers[i] = b
	}
	if opts.Width < 1 {
		opts.Width = buffers[0].Width
	}
	if opts.Height < 1 {
		opts.Height = buffers[0].Height
	}

	results, err := ProcessAll(ctx, buffers, opts)
	if err != nil {
		return "", err
	}

	data, err := AssembleAnimation(FramesFromResults(results, delayMs), loop)
	if err != nil {
		return "", err
	}
	url, err := s.store.Upload(data, "image/gif")
	if err != nil {
		return "", err
	}

	preview, err := previewPNG(results[0].Buffer.ToRGBA())
	if err != nil {
		preview = nil
	}
	s.record("animation", "image/gif", data, url, results[0].Buffer.Width, results[0].Buffer.Height, len(results[0].Palette), preview)

	s.logger.Printf("assembled %d frames into %q\n", len(paths), url)
	return url, nil
}

// PaletteOf extracts a palette from the image at path without modifying it.
func (s *Studio) PaletteOf(path string, maxColors int, method quant.Method) (pixel.Palette, error) {
	b, err := loadBuffer(path)
	if err != nil {
		return nil, err
	}
	return quant.ExtractPalette(b, maxColors, method)
}

// KMeansPaletteOf clusters the image's colors instead of quantizing them;
// see quant.KMeansPalette for the caveats.
func (s *Studio) KMeansPaletteOf(path string, k int) (pixel.Palette, error) {
	b, err := loadBuffer(path)
	if err != nil {
		return nil, err
	}
	return quant.KMeansPalette(b, k)
}

// ThumbnailFile generates, encodes and uploads a thumbnail of the image at
// path.
func (s *Studio) ThumbnailFile(path string, maxSize int) (string, error) {
	b, err := loadBuffer(path)
	if err != nil {
		return "", err
	}

	r, err := Thumbnail(b, maxSize)
	if err != nil {
		return "", err
	}

	data, err := encodePNG(r.Buffer)
	if err != nil {
		return "", err
	}
	url, err := s.store.Upload(data, "image/png")
	if err != nil {
		return "", err
	}
	s.record("thumbnail", "image/png", data, url, r.Buffer.Width, r.Buffer.Height, len(r.Palette), nil)
	return url, nil
}
