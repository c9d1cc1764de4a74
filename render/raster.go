package render

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"golang.org/x/image/vector"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/images"
)

// arcSteps is the number of segments used per half circle.
const arcSteps = 16

// coverage accumulates anti-aliased shapes into an alpha plane. Shapes are
// queued as paths and rasterized together on the first read. Every shape is
// traced with the same winding so overlaps add up instead of cancelling.
type coverage struct {
	z       *vector.Rasterizer
	cov     *image.Alpha
	pending bool
	draws   int
}

func newCoverage(w, h int) *coverage {
	return &coverage{
		z:   vector.NewRasterizer(w, h),
		cov: image.NewAlpha(image.Rect(0, 0, w, h)),
	}
}

// alpha rasterizes the queued shapes and returns the coverage plane.
func (c *coverage) alpha() *image.Alpha {
	if c.pending {
		c.z.Draw(c.cov, c.cov.Rect, image.Opaque, image.Point{})
		c.z.Reset(c.cov.Rect.Dx(), c.cov.Rect.Dy())
		c.pending = false
		c.draws++
	}
	return c.cov
}

// segment adds a line from a to b with round caps.
func (c *coverage) segment(a, b common.CanvasPoint, width float32) {
	r := width / 2
	if r <= 0 {
		return
	}
	theta := float32(0)
	if a != b {
		theta = math32.Atan2(b.Y-a.Y, b.X-a.X)
	}

	// Half circle around b from +normal to -normal, then around a back.
	start := theta + math32.Pi/2
	for i := 0; i <= arcSteps; i++ {
		t := start - float32(i)*math32.Pi/arcSteps
		c.point(i == 0, b.X+r*math32.Cos(t), b.Y+r*math32.Sin(t))
	}
	start = theta - math32.Pi/2
	for i := 0; i <= arcSteps; i++ {
		t := start - float32(i)*math32.Pi/arcSteps
		c.point(false, a.X+r*math32.Cos(t), a.Y+r*math32.Sin(t))
	}
	c.z.ClosePath()
	c.pending = true
}

// ellipse adds a filled axis-aligned ellipse.
func (c *coverage) ellipse(center common.CanvasPoint, rx, ry float32) {
	if rx <= 0 || ry <= 0 {
		return
	}
	const steps = 4 * arcSteps
	for i := 0; i < steps; i++ {
		t := -float32(i) * 2 * math32.Pi / steps
		c.point(i == 0, center.X+rx*math32.Cos(t), center.Y+ry*math32.Sin(t))
	}
	c.z.ClosePath()
	c.pending = true
}

func (c *coverage) point(first bool, x, y float32) {
	if first {
		c.z.MoveTo(x, y)
		return
	}
	c.z.LineTo(x, y)
}

// stamp paints col into dst wherever coverage reaches half, without
// blending, so every touched pixel holds exactly col.
func (c *coverage) stamp(dst *image.RGBA, col color.RGBA) {
	cov := c.alpha()
	w := min(dst.Rect.Dx(), cov.Rect.Dx())
	h := min(dst.Rect.Dy(), cov.Rect.Dy())
	images.Parallel(h, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			co := y * cov.Stride
			do := y * dst.Stride
			for x := 0; x < w; x++ {
				if cov.Pix[co+x] < 0x80 {
					continue
				}
				i := do + x*4
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = col.R, col.G, col.B, col.A
			}
		}
	})
}
