package render

import (
	"image"
	"image/draw"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/images"
)

// DrawOvalFaceRegion restores the original pixels inside the ellipse
// inscribed in rect, with radii w/2.2 and h/2.2.
//
// Arguments:
//   - dst: The redacted canvas.
//   - original: The unredacted canvas, same size as dst.
//   - rect: The face area.
func (d *SkeletonDrawer) DrawOvalFaceRegion(dst *image.RGBA, original image.Image, rect common.CanvasRect) {
	cov := newCoverage(dst.Rect.Dx(), dst.Rect.Dy())
	cov.ellipse(rect.Center(), rect.W/2.2, rect.H/2.2)
	mask := cov.alpha()
	draw.DrawMask(dst, dst.Rect, original, original.Bounds().Min, mask, mask.Rect.Min, draw.Over)
}

// Pixelate replaces the pixels of dst selected by clip with the pixelated
// grayscale rendition of src. A nil clip covers the whole canvas.
//
// Arguments:
//   - dst: The canvas to modify.
//   - src: The image to pixelate, same size as dst.
//   - clip: Opaque where redaction applies, or nil.
func Pixelate(dst *image.RGBA, src image.Image, clip *image.Alpha) {
	images.CompositeMasked(dst, images.Pixelate(src), clip)
}
