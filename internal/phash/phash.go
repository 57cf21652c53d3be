// Package phash computes 64-bit perceptual hashes from 32x32 grayscale
// luma tiles using a Type-II DCT, and measures Hamming distance between
// hashes. The DCT basis matrix is computed once per process and reused for
// every hash (spec: "computed once per process (immutable)").
package phash

import (
	"errors"
	"math"
	"math/bits"
)

// TileSize is the side length of the luma tile the hasher consumes.
const TileSize = 32

// blockSize is the side length of the low-frequency coefficient block
// extracted after the DCT, excluding the DC coefficient.
const blockSize = 8

// ErrSentinel is returned when a tile produces the all-zero hash, which
// the reference formulation treats as a degenerate (uniform-frame) result
// rather than a usable fingerprint.
var ErrSentinel = errors.New("phash: sentinel all-zero hash")

// basis is the N=32 Type-II DCT basis matrix, C[i][j], built once at
// package init per the formula:
//
//	C[0][j]  = 1/sqrt(N)
//	C[i][j]  = sqrt(2/N) * cos(pi/(2N) * i * (2j+1))   for i > 0
var basis [TileSize][TileSize]float64

func init() {
	const n = TileSize
	inv := 1 / math.Sqrt(n)
	for j := 0; j < n; j++ {
		basis[0][j] = inv
	}
	scale := math.Sqrt(2.0 / n)
	for i := 1; i < n; i++ {
		for j := 0; j < n; j++ {
			basis[i][j] = scale * math.Cos(math.Pi/(2*n)*float64(i)*float64(2*j+1))
		}
	}
}

// Tile is a 32x32 single-channel luma buffer, row-major, one byte per
// pixel (0-255).
type Tile [TileSize * TileSize]byte

// Hash computes the 64-bit perceptual hash of tile. It returns ErrSentinel
// if the result is the all-zero sentinel value (a uniform frame); the
// all-ones value is a valid, if unusual, hash and is returned normally.
func Hash(tile *Tile) (uint64, error) {
	// A constant tile has all-zero AC coefficients, so no bit exceeds the
	// median; rounding in dct2 would otherwise leave noise bits set.
	uniform := true
	for _, p := range tile[1:] {
		if p != tile[0] {
			uniform = false
			break
		}
	}
	if uniform {
		return 0, ErrSentinel
	}

	var img [TileSize][TileSize]float64
	for y := 0; y < TileSize; y++ {
		for x := 0; x < TileSize; x++ {
			img[y][x] = float64(tile[y*TileSize+x])
		}
	}

	d := dct2(&img)

	var coeffs [blockSize * blockSize]float64
	idx := 0
	for y := 1; y <= blockSize; y++ {
		for x := 1; x <= blockSize; x++ {
			coeffs[idx] = d[y][x]
			idx++
		}
	}

	median := medianOf(coeffs)

	var h uint64
	for i, c := range coeffs {
		if c > median {
			h |= 1 << uint(63-i)
		}
	}

	if h == 0 {
		return 0, ErrSentinel
	}
	return h, nil
}

// dct2 computes D = C . I . C^T for a 32x32 image using the package-level
// basis matrix.
func dct2(img *[TileSize][TileSize]float64) [TileSize][TileSize]float64 {
	var tmp, out [TileSize][TileSize]float64

	// tmp = C . I
	for i := 0; i < TileSize; i++ {
		for j := 0; j < TileSize; j++ {
			var sum float64
			for k := 0; k < TileSize; k++ {
				sum += basis[i][k] * img[k][j]
			}
			tmp[i][j] = sum
		}
	}

	// out = tmp . C^T
	for i := 0; i < TileSize; i++ {
		for j := 0; j < TileSize; j++ {
			var sum float64
			for k := 0; k < TileSize; k++ {
				sum += tmp[i][k] * basis[j][k]
			}
			out[i][j] = sum
		}
	}

	return out
}

func medianOf(values [blockSize * blockSize]float64) float64 {
	sorted := values
	// insertion sort: 64 elements, not worth pulling in sort.Slice
	for i := 1; i < len(sorted); i++ {
		v := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > v {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = v
	}
	mid := len(sorted) / 2
	return (sorted[mid-1] + sorted[mid]) / 2
}

// HammingDistance returns the number of differing bits between a and b.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Reduce converts a grayscale buffer of arbitrary dimensions to a 32x32
// Tile: a 7x7 box filter followed by nearest-neighbor downsampling, per
// the reference pipeline. Buffers already at 32x32 skip the box filter.
func Reduce(gray []byte, width, height int) *Tile {
	if width == TileSize && height == TileSize {
		var t Tile
		copy(t[:], gray)
		return &t
	}

	filtered := boxFilter7x7(gray, width, height)
	return downsampleNearest(filtered, width, height)
}

func boxFilter7x7(gray []byte, width, height int) []byte {
	out := make([]byte, width*height)
	const radius = 3 // 7x7 window
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum, count int
			for dy := -radius; dy <= radius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= height {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= width {
						continue
					}
					sum += int(gray[ny*width+nx])
					count++
				}
			}
			out[y*width+x] = byte(sum / count)
		}
	}
	return out
}

func downsampleNearest(gray []byte, width, height int) *Tile {
	var t Tile
	for y := 0; y < TileSize; y++ {
		sy := y * height / TileSize
		for x := 0; x < TileSize; x++ {
			sx := x * width / TileSize
			t[y*TileSize+x] = gray[sy*width+sx]
		}
	}
	return &t
}
