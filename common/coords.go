package common

import (
	"github.com/chewxy/math32"
)

// Origin is the vertical origin convention of a normalized coordinate.
type Origin int

const (
	// OriginTopLeft has y growing downward from the top edge (image convention).
	OriginTopLeft Origin = iota
	// OriginBottomLeft has y growing upward from the bottom edge (platform
	// vision frameworks report faces and body points this way).
	OriginBottomLeft
)

// String returns the config name of the origin.
func (o Origin) String() string {
	if o == OriginBottomLeft {
		return "bottom_left"
	}
	return "top_left"
}

// ParseOrigin parses a config name into an Origin. Unknown names map to
// OriginTopLeft.
func ParseOrigin(s string) Origin {
	if s == "bottom_left" {
		return OriginBottomLeft
	}
	return OriginTopLeft
}

// PixelPoint is a point in working-image pixels.
type PixelPoint struct {
	X, Y float32
}

// Distance returns the Euclidean distance between two points.
func (p PixelPoint) Distance(o PixelPoint) float32 {
	return math32.Hypot(p.X-o.X, p.Y-o.Y)
}

// Scale maps the point from detection pixels to canvas pixels.
func (p PixelPoint) Scale(s CanvasScale) CanvasPoint {
	return CanvasPoint{X: p.X * s.RatioX, Y: p.Y * s.RatioY}
}

// NormalizedPoint is a point in [0,1] coordinates relative to the image size.
type NormalizedPoint struct {
	X, Y   float32
	Origin Origin
}

// ToPixel converts the point to working-image pixels.
func (p NormalizedPoint) ToPixel(imgW, imgH int) PixelPoint {
	y := p.Y
	if p.Origin == OriginBottomLeft {
		y = 1 - y
	}
	return PixelPoint{X: p.X * float32(imgW), Y: y * float32(imgH)}
}

// NormalizedRect is a box in [0,1] coordinates relative to the image size.
// X,Y is the corner nearest the origin.
type NormalizedRect struct {
	X, Y, W, H float32
	Origin     Origin
}

// ToPixel converts the box to working-image pixels. Bottom-left boxes are
// flipped with y' = (1 - y - h) * H.
//
// Arguments:
//   - imgW: The working image width.
//   - imgH: The working image height.
//
// Returns:
//   - PixelRect: The box in pixel space.
//
// @example
// n := NormalizedRect{X: 0.25, Y: 0.5, W: 0.5, H: 0.25, Origin: OriginBottomLeft}
// r := n.ToPixel(100, 100) // (25, 25)-(75, 50)
func (n NormalizedRect) ToPixel(imgW, imgH int) PixelRect {
	fw, fh := float32(imgW), float32(imgH)
	y := n.Y
	if n.Origin == OriginBottomLeft {
		y = 1 - n.Y - n.H
	}
	return NewPixelRect(n.X*fw, y*fh, n.W*fw, n.H*fh)
}

// CanvasScale maps detection pixels onto the displayed canvas.
type CanvasScale struct {
	RatioX, RatioY float32
}

// NewCanvasScale computes ratioX/ratioY = displayed / detection. A zero
// detection size yields the identity scale.
func NewCanvasScale(displayW, displayH, detW, detH int) CanvasScale {
	if detW <= 0 || detH <= 0 {
		return CanvasScale{RatioX: 1, RatioY: 1}
	}
	return CanvasScale{
		RatioX: float32(displayW) / float32(detW),
		RatioY: float32(displayH) / float32(detH),
	}
}

// Point maps a detection-space point onto the displayed canvas.
func (s CanvasScale) Point(p PixelPoint) CanvasPoint {
	return p.Scale(s)
}

// Rect maps a detection-space box onto the displayed canvas.
func (s CanvasScale) Rect(r PixelRect) CanvasRect {
	return r.Scale(s)
}

// CanvasPoint is a point in displayed-canvas pixels.
type CanvasPoint struct {
	X, Y float32
}

// Distance returns the Euclidean distance between two canvas points.
func (p CanvasPoint) Distance(o CanvasPoint) float32 {
	return math32.Hypot(p.X-o.X, p.Y-o.Y)
}

// Mid returns the midpoint between two canvas points.
func (p CanvasPoint) Mid(o CanvasPoint) CanvasPoint {
	return CanvasPoint{X: (p.X + o.X) / 2, Y: (p.Y + o.Y) / 2}
}

// CanvasRect is a box in displayed-canvas pixels.
type CanvasRect struct {
	X, Y, W, H float32
}

// Center returns the midpoint of the box.
func (r CanvasRect) Center() CanvasPoint {
	return CanvasPoint{X: r.X + r.W/2, Y: r.Y + r.H/2}
}
