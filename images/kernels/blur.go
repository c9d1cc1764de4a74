// Package kernels - Convolution kernels used for placeholder rendering.
package kernels

import (
	"image"

	"github.com/nvr-ai/safegaze/images"
)

// EdgeMode defines how sampling behaves outside the image bounds.
type EdgeMode int

const (
	// EdgeClamp repeats edge pixels.
	EdgeClamp EdgeMode = iota
	// EdgeMirror reflects coordinates at the border.
	EdgeMirror
	// EdgeWrap tiles the image.
	EdgeWrap
)

// Options configures the blur call.
type Options struct {
	Radius   int      // Blur radius (window size = 2*Radius + 1). Must be >= 0.
	Edge     EdgeMode // Edge sampling mode.
	Parallel bool     // Split rows/columns across CPU cores.
}

// BoxBlur applies a separable box blur to an image using a sliding window
// per row and column, so cost is independent of the radius.
//
// Arguments:
//   - src: The source image.
//   - opt: Blur options.
//
// Returns:
//   - *image.RGBA: A new blurred image anchored at (0,0).
//
// @example
// placeholder := BoxBlur(img, Options{Radius: 5, Parallel: true})
func BoxBlur(src image.Image, opt Options) *image.RGBA {
	rgba := images.ToRGBA(src)
	if opt.Radius <= 0 {
		return rgba
	}

	tmp := image.NewRGBA(rgba.Rect)
	dst := image.NewRGBA(rgba.Rect)
	boxBlurHoriz(rgba, tmp, opt)
	boxBlurVert(tmp, dst, opt)
	return dst
}

// boxBlurHoriz blurs each row of src into dst. For each step to the right
// the pixel leaving the window is subtracted and the entering one added.
func boxBlurHoriz(src, dst *image.RGBA, opt Options) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	r := opt.Radius
	window := uint32(2*r + 1)

	rowTask := func(y int) {
		rowStart := y * src.Stride
		load := func(xRel int) (uint32, uint32, uint32, uint32) {
			off := rowStart + mapCoord(xRel, w, opt.Edge)*4
			p := src.Pix[off : off+4 : off+4]
			return uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3])
		}

		var sumR, sumG, sumB, sumA uint32
		for dx := -r; dx <= r; dx++ {
			r8, g8, b8, a8 := load(dx)
			sumR += r8
			sumG += g8
			sumB += b8
			sumA += a8
		}

		for x := 0; x < w; x++ {
			off := y*dst.Stride + x*4
			dst.Pix[off+0] = uint8((sumR + window/2) / window)
			dst.Pix[off+1] = uint8((sumG + window/2) / window)
			dst.Pix[off+2] = uint8((sumB + window/2) / window)
			dst.Pix[off+3] = uint8((sumA + window/2) / window)

			lr, lg, lb, la := load(x - r)
			rr, rg, rb, ra := load(x + r + 1)
			sumR += rr - lr
			sumG += rg - lg
			sumB += rb - lb
			sumA += ra - la
		}
	}

	run(h, opt.Parallel, rowTask)
}

// boxBlurVert mirrors boxBlurHoriz along columns.
func boxBlurVert(src, dst *image.RGBA, opt Options) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return
	}
	r := opt.Radius
	window := uint32(2*r + 1)

	colTask := func(x int) {
		load := func(yRel int) (uint32, uint32, uint32, uint32) {
			off := mapCoord(yRel, h, opt.Edge)*src.Stride + x*4
			p := src.Pix[off : off+4 : off+4]
			return uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3])
		}

		var sumR, sumG, sumB, sumA uint32
		for dy := -r; dy <= r; dy++ {
			r8, g8, b8, a8 := load(dy)
			sumR += r8
			sumG += g8
			sumB += b8
			sumA += a8
		}

		for y := 0; y < h; y++ {
			off := y*dst.Stride + x*4
			dst.Pix[off+0] = uint8((sumR + window/2) / window)
			dst.Pix[off+1] = uint8((sumG + window/2) / window)
			dst.Pix[off+2] = uint8((sumB + window/2) / window)
			dst.Pix[off+3] = uint8((sumA + window/2) / window)

			lr, lg, lb, la := load(y - r)
			rr, rg, rb, ra := load(y + r + 1)
			sumR += rr - lr
			sumG += rg - lg
			sumB += rb - lb
			sumA += ra - la
		}
	}

	run(w, opt.Parallel, colTask)
}

func run(n int, parallel bool, task func(i int)) {
	if !parallel {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}
	images.Parallel(n, func(start, end int) {
		for i := start; i < end; i++ {
			task(i)
		}
	})
}

// mapCoord maps an index i to [0, n) according to edge mode.
func mapCoord(i, n int, mode EdgeMode) int {
	switch mode {
	case EdgeMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}
