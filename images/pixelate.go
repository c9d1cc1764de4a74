package images

import (
	"image"
	"image/draw"
)

// Block size limits for pixelation.
const (
	pixelScale         = 0.08
	maxBlockSmall      = 29
	maxBlockLarge      = 35
	largeImageMinRatio = 1000
)

// PixelBlockSize returns the edge of a pixelation block for a canvas: 8% of
// the smaller side, capped at 29 (35 once the smaller side exceeds 1000).
func PixelBlockSize(width, height int) int {
	ratio := min(width, height)
	size := int(pixelScale * float64(ratio))
	limit := maxBlockSmall
	if ratio > largeImageMinRatio {
		limit = maxBlockLarge
	}
	return max(1, min(size, limit))
}

// Pixelate returns a grayscale, block-averaged copy of src. Each block of
// PixelBlockSize pixels is replaced by its mean colour (box downsample,
// nearest upsample), then converted with luminosity weights.
//
// Arguments:
//   - src: The source image.
//
// Returns:
//   - *image.RGBA: A new image of the same size anchored at (0,0).
func Pixelate(src image.Image) *image.RGBA {
	dst := ToRGBA(src)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	if w == 0 || h == 0 {
		return dst
	}

	block := PixelBlockSize(w, h)
	rows := (h + block - 1) / block

	Parallel(rows, func(partStart, partEnd int) {
		for by := partStart; by < partEnd; by++ {
			y0 := by * block
			y1 := min(y0+block, h)
			for x0 := 0; x0 < w; x0 += block {
				x1 := min(x0+block, w)
				fillBlock(dst, x0, y0, x1, y1)
			}
		}
	})

	return dst
}

func fillBlock(img *image.RGBA, x0, y0, x1, y1 int) {
	var sr, sg, sb, sa, n int
	for y := y0; y < y1; y++ {
		off := y*img.Stride + x0*4
		for x := x0; x < x1; x++ {
			sr += int(img.Pix[off])
			sg += int(img.Pix[off+1])
			sb += int(img.Pix[off+2])
			sa += int(img.Pix[off+3])
			off += 4
			n++
		}
	}
	if n == 0 {
		return
	}

	gray := Luma(uint8(sr/n), uint8(sg/n), uint8(sb/n))
	alpha := uint8(sa / n)
	for y := y0; y < y1; y++ {
		off := y*img.Stride + x0*4
		for x := x0; x < x1; x++ {
			img.Pix[off] = gray
			img.Pix[off+1] = gray
			img.Pix[off+2] = gray
			img.Pix[off+3] = alpha
			off += 4
		}
	}
}

// CompositeMasked draws src over dst only where mask is opaque. A nil mask
// copies src everywhere.
func CompositeMasked(dst *image.RGBA, src image.Image, mask *image.Alpha) {
	if mask == nil {
		draw.Draw(dst, dst.Rect, src, src.Bounds().Min, draw.Src)
		return
	}
	draw.DrawMask(dst, dst.Rect, src, src.Bounds().Min, mask, mask.Rect.Min, draw.Over)
}
