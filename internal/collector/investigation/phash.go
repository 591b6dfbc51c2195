package investigation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"math/bits"
)

// perceptualHashThreshold is the minimum similarity (§4.8) at which a
// capture is considered a visual match against a reference screenshot.
const perceptualHashThreshold = 0.70

// averageHash computes a 64-bit perceptual hash of a PNG image: a crude
// 8x8 nearest-neighbor downsample to grayscale, then one bit per cell for
// whether it sits above the mean. No perceptual-hash library appears
// anywhere in the retrieved pack, and golang.org/x/image is only ever an
// indirect transitive dependency of the teacher's go.mod (never imported
// directly by any teacher or pack code), so this is hand-rolled on the
// stdlib image package rather than promoting that indirect dependency for
// a single resize call.
func averageHash(png []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(png))
	if err != nil {
		return 0, fmt.Errorf("decode screenshot: %w", err)
	}

	const size = 8
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0, fmt.Errorf("empty screenshot")
	}

	var gray [size][size]float64
	var sum float64
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			sx := bounds.Min.X + x*w/size
			sy := bounds.Min.Y + y*h/size
			g := color.GrayModel.Convert(img.At(sx, sy)).(color.Gray).Y
			gray[y][x] = float64(g)
			sum += float64(g)
		}
	}
	mean := sum / (size * size)

	var hash uint64
	bit := uint(0)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if gray[y][x] >= mean {
				hash |= 1 << bit
			}
			bit++
		}
	}
	return hash, nil
}

// hammingDistance counts differing bits between two hashes.
func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// similarity converts a hash pair into a 0-1 visual-similarity score.
func similarity(a, b uint64) float64 {
	return 1 - float64(hammingDistance(a, b))/64
}

// bestMatch reports the highest similarity of hash against a reference
// set, and whether it clears perceptualHashThreshold.
func bestMatch(hash uint64, refs []uint64) (best float64, matched bool) {
	for _, ref := range refs {
		if s := similarity(hash, ref); s > best {
			best = s
		}
	}
	return best, best >= perceptualHashThreshold
}
