package images

import (
	"image"
	"image/color"
	"runtime"
	"sync"
)

// Luminosity weights used for grayscale conversion of redacted regions.
const (
	redWeight   = 0.299
	greenWeight = 0.587
	blueWeight  = 0.114
)

// Luma returns the luminosity of an 8-bit RGB triple.
func Luma(r, g, b uint8) uint8 {
	return Clamp8(redWeight*float64(r) + greenWeight*float64(g) + blueWeight*float64(b))
}

// Clamp8 rounds and clamps a value to the 0-255 range.
func Clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Desaturate blends every pixel toward its luminosity by amount (0 keeps the
// colour, 1 is full grayscale). Alpha is preserved.
//
// Arguments:
//   - img: The source image.
//   - amount: The blend factor in [0,1].
//
// Returns:
//   - *image.RGBA: A new image anchored at (0,0).
func Desaturate(img image.Image, amount float64) *image.RGBA {
	dst := ToRGBA(img)
	if amount <= 0 {
		return dst
	}
	if amount > 1 {
		amount = 1
	}

	width := dst.Rect.Dx()
	Parallel(dst.Rect.Dy(), func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			row := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
			for i := 0; i < len(row); i += 4 {
				gray := float64(Luma(row[i], row[i+1], row[i+2]))
				row[i] = Clamp8(float64(row[i])*(1-amount) + gray*amount)
				row[i+1] = Clamp8(float64(row[i+1])*(1-amount) + gray*amount)
				row[i+2] = Clamp8(float64(row[i+2])*(1-amount) + gray*amount)
			}
		}
	})

	return dst
}

// Fill paints the whole image with a single colour.
func Fill(img *image.RGBA, c color.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}

// Parallel processes data in parallel using all available CPU cores.
// This is a utility function for parallelizing image processing operations.
//
// Arguments:
// - dataSize: The total number of items to process (e.g. rows).
// - fn: The function to call for each partition, receiving start and end indices.
//
// @example
//
//	Parallel(height, func(start, end int) {
//	    for y := start; y < end; y++ {
//	        // Process row y
//	    }
//	})
func Parallel(dataSize int, fn func(partStart, partEnd int)) {
	numGoroutines := runtime.NumCPU()

	// For small data sizes, parallel processing overhead isn't worth it.
	if dataSize < numGoroutines*2 {
		fn(0, dataSize)
		return
	}

	partSize := dataSize / numGoroutines

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		partStart := i * partSize
		partEnd := partStart + partSize

		// Last partition gets any remaining data.
		if i == numGoroutines-1 {
			partEnd = dataSize
		}

		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(partStart, partEnd)
	}

	wg.Wait()
}
