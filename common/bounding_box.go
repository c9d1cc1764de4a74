// Package common - Coordinate spaces shared by the detectors, matcher and renderer.
package common

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// PixelRect is an axis-aligned box in absolute pixel coordinates of the
// working (post-resize) image. X2,Y2 are exclusive like image.Rectangle.
type PixelRect struct {
	X1, Y1, X2, Y2 float32
}

// NewPixelRect builds a PixelRect from an origin and a size.
//
// Arguments:
//   - x: The left edge in pixels.
//   - y: The top edge in pixels.
//   - w: The width in pixels.
//   - h: The height in pixels.
//
// Returns:
//   - PixelRect: The rectangle.
func NewPixelRect(x, y, w, h float32) PixelRect {
	return PixelRect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

// Width returns the horizontal extent of the box.
func (b PixelRect) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b PixelRect) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns the midpoint of the box.
func (b PixelRect) Center() PixelPoint {
	return PixelPoint{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Area returns the area of the box, zero for degenerate boxes.
func (b PixelRect) Area() float32 {
	w, h := b.Width(), b.Height()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Empty reports whether the box covers no pixels.
func (b PixelRect) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Intersection calculates the intersection area between two boxes.
//
// Arguments:
//   - other: The other box to intersect with.
//
// Returns:
//   - float32: The overlapping area in pixels.
//
// @example
// a := PixelRect{0, 0, 100, 100}
// b := PixelRect{50, 50, 150, 150}
// area := a.Intersection(b) // 2500
func (b PixelRect) Intersection(other PixelRect) float32 {
	inter := PixelRect{
		X1: math32.Max(b.X1, other.X1),
		Y1: math32.Max(b.Y1, other.Y1),
		X2: math32.Min(b.X2, other.X2),
		Y2: math32.Min(b.Y2, other.Y2),
	}
	return inter.Area()
}

// Union calculates the union area between two boxes.
func (b PixelRect) Union(other PixelRect) float32 {
	return b.Area() + other.Area() - b.Intersection(other)
}

// IOU calculates the Intersection over Union between two boxes.
//
// Returns:
//   - float32: The IoU value between 0 and 1, 0 when both boxes are empty.
func (b PixelRect) IOU(other PixelRect) float32 {
	union := b.Union(other)
	if union <= 0 {
		return 0
	}
	return b.Intersection(other) / union
}

// Clamp restricts the box to [0,w) x [0,h).
func (b PixelRect) Clamp(w, h int) PixelRect {
	fw, fh := float32(w), float32(h)
	return PixelRect{
		X1: clamp(b.X1, 0, fw),
		Y1: clamp(b.Y1, 0, fh),
		X2: clamp(b.X2, 0, fw),
		Y2: clamp(b.Y2, 0, fh),
	}
}

// ToRect converts the box to an image.Rectangle, rounding outward so
// fractional edges stay covered.
//
// @example
// box := PixelRect{X1: 100.5, Y1: 100.5, X2: 200.5, Y2: 300.5}
// rect := box.ToRect() // (100,100)-(201,301)
func (b PixelRect) ToRect() image.Rectangle {
	return image.Rect(
		int(math32.Floor(b.X1)),
		int(math32.Floor(b.Y1)),
		int(math32.Ceil(b.X2)),
		int(math32.Ceil(b.Y2)),
	).Canon()
}

// ToNormalized expresses the box relative to the image size in the given
// origin convention. It is the inverse of NormalizedRect.ToPixel.
//
// Arguments:
//   - imgW: The working image width.
//   - imgH: The working image height.
//   - origin: The origin convention of the resulting box.
//
// Returns:
//   - NormalizedRect: The box in [0,1] coordinates.
func (b PixelRect) ToNormalized(imgW, imgH int, origin Origin) NormalizedRect {
	fw, fh := float32(imgW), float32(imgH)
	n := NormalizedRect{
		X:      b.X1 / fw,
		Y:      b.Y1 / fh,
		W:      b.Width() / fw,
		H:      b.Height() / fh,
		Origin: origin,
	}
	if origin == OriginBottomLeft {
		n.Y = 1 - n.Y - n.H
	}
	return n
}

// Scale maps the box from detection pixels to canvas pixels.
func (b PixelRect) Scale(s CanvasScale) CanvasRect {
	return CanvasRect{
		X: b.X1 * s.RatioX,
		Y: b.Y1 * s.RatioY,
		W: b.Width() * s.RatioX,
		H: b.Height() * s.RatioY,
	}
}

func (b PixelRect) String() string {
	return fmt.Sprintf("(%.2f, %.2f)-(%.2f, %.2f)", b.X1, b.Y1, b.X2, b.Y2)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}
