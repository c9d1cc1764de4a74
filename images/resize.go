package images

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
)

// ResizeDimensions computes the largest size that fits within maxW x maxH
// while preserving aspect ratio. Images already inside the bounds keep their
// size (ratio 1).
//
// Arguments:
//   - width: The source width.
//   - height: The source height.
//   - maxW: The maximum working width.
//   - maxH: The maximum working height.
//
// Returns:
//   - int: The target width.
//   - int: The target height.
//   - float32: The applied scale ratio.
//
// @example
// w, h, ratio := ResizeDimensions(1600, 1200, 800, 800) // 800, 600, 0.5
func ResizeDimensions(width, height, maxW, maxH int) (int, int, float32) {
	if width <= 0 || height <= 0 {
		return width, height, 1
	}
	ratio := math32.Min(float32(maxW)/float32(width), float32(maxH)/float32(height))
	if ratio >= 1 {
		return width, height, 1
	}
	w := int(math32.Round(float32(width) * ratio))
	h := int(math32.Round(float32(height) * ratio))
	return max(1, w), max(1, h), ratio
}

// FitWithin downsizes img so neither side exceeds the bounds. The result is
// always anchored at (0,0).
//
// Returns:
//   - image.Image: The working image.
//   - float32: The applied scale ratio (1 when unchanged).
func FitWithin(img image.Image, maxW, maxH int) (image.Image, float32) {
	b := img.Bounds()
	w, h, ratio := ResizeDimensions(b.Dx(), b.Dy(), maxW, maxH)
	if ratio == 1 {
		if b.Min == (image.Point{}) {
			return img, 1
		}
		return ToRGBA(img), 1
	}
	return resize.Resize(uint(w), uint(h), img, resize.Bilinear), ratio
}

// ResizeExact stretches img to exactly width x height, as model inputs expect.
func ResizeExact(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

// Crop copies the region r of img into a new image. The region is clipped
// to the image bounds; the result is empty when nothing remains.
func Crop(img image.Image, r image.Rectangle) *image.RGBA {
	r = r.Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return image.NewRGBA(image.Rectangle{})
	}
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if s, ok := img.(subImager); ok {
		return ToRGBA(s.SubImage(r))
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dst.Set(x, y, img.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return dst
}
