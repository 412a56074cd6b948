package perception

import (
	"bytes"
	"image"
	_ "image/jpeg"
)

// signatureGrid is the cell grid for room signatures. 4x4 cells with
// mean RGB each gives a 48-dim vector: coarse enough to ignore people
// moving through, distinctive enough to tell rooms apart.
const signatureGrid = 4

// RoomSignature computes a coarse visual fingerprint of a frame for
// room matching. Returns nil when the frame cannot be decoded.
func RoomSignature(jpeg []byte) []float32 {
	img, _, err := image.Decode(bytes.NewReader(jpeg))
	if err != nil {
		return nil
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < signatureGrid || h < signatureGrid {
		return nil
	}

	sig := make([]float32, signatureGrid*signatureGrid*3)
	sums := make([]float64, len(sig))
	counts := make([]int, signatureGrid*signatureGrid)

	// Sample a sparse pixel grid; full decodes are wasted on a mean.
	stepX := w/64 + 1
	stepY := h/64 + 1
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			cell := ((y-bounds.Min.Y)*signatureGrid/h)*signatureGrid +
				(x-bounds.Min.X)*signatureGrid/w
			r, g, b, _ := img.At(x, y).RGBA()
			sums[cell*3] += float64(r >> 8)
			sums[cell*3+1] += float64(g >> 8)
			sums[cell*3+2] += float64(b >> 8)
			counts[cell]++
		}
	}

	for cell, n := range counts {
		if n == 0 {
			continue
		}
		for c := 0; c < 3; c++ {
			sig[cell*3+c] = float32(sums[cell*3+c] / float64(n) / 255)
		}
	}
	return sig
}
