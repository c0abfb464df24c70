// Package enhance produces best-effort preview variants of staged product
// images. Variants are a side path: they are never written to the product
// image records and carry no quality guarantees.
package enhance

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const maxEdge = 1024

// Variant decodes one image, applies the preview treatment and returns the
// re-encoded JPEG bytes.
func Variant(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	img = imaging.Sharpen(img, 0.6)
	img = imaging.AdjustContrast(img, 8)
	img = imaging.AdjustSaturation(img, 10)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
