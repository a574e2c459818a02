/*
Package spritemill is a pixel-art production library. It reduces RGBA buffers
to bounded palettes with Median Cut or Wu quantization, applies
Floyd-Steinberg dithering, resizes with pixel-edge-preserving or smooth
kernels, and packages the results as PNG stills or hand-assembled animated
GIFs.
*/
package spritemill

import "log"

// Studio ties the processing pipeline to its collaborators: an optional
// asset metadata database and a storage backend for encoded output.
type Studio struct {
	db     *AssetDB
	store  Storage
	logger *log.Logger
}

// New returns a Studio. db may be nil, in which case no asset metadata is
// recorded.
func New(db *AssetDB, store Storage, logger *log.Logger) *Studio {
	return &Studio{
		db:     db,
		store:  store,
		logger: logger,
	}
}
