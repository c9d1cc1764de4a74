package render

import (
	"image"
	"image/color"
	"sync/atomic"

	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
)

// Visualization colours for skin analysis.
var (
	skinMarkColor    = color.NRGBA{R: 255, A: 100}
	nonSkinMarkColor = color.NRGBA{G: 255, A: 100}
)

// SkinDetector classifies pixels with fixed RGB rules and measures the skin
// share under a detection mask.
type SkinDetector struct {
	config Config
}

// NewSkinDetector builds a detector from the redaction policy.
func NewSkinDetector(cfg Config) *SkinDetector {
	return &SkinDetector{config: cfg}
}

// IsSkin reports whether an RGB triple looks like skin.
//
// Arguments:
//   - r: Red channel.
//   - g: Green channel.
//   - b: Blue channel.
//
// Returns:
//   - bool: True when every rule passes.
func (d *SkinDetector) IsSkin(r, g, b uint8) bool {
	s := d.config.Skin
	if !s.R.Contains(r) || !s.G.Contains(g) || !s.B.Contains(b) {
		return false
	}
	if r < g || r < b {
		return false
	}
	if int(r)-int(g) < s.MinRGDiff {
		return false
	}
	// Near white.
	if r > 220 && g > 210 && b > 170 {
		return false
	}
	// Near black.
	if r < 100 && g < 100 && b < 100 {
		return false
	}
	return true
}

// Threshold returns the minimum skin ratio for a region.
func (d *SkinDetector) Threshold(region detection.Region) float32 {
	if region == detection.RegionLowerBody {
		return d.config.LowerBodyMinSkinRatio
	}
	return d.config.MinSkinRatio
}

// Analysis is the skin measurement of one detection mask.
type Analysis struct {
	SkinPixels  int
	TotalPixels int
	// SkinRatio is SkinPixels / TotalPixels, zero for an empty mask.
	SkinRatio float32
	HasSkin   bool
	Region    detection.Region
	// Visualization marks skin red and other masked pixels green. It is only
	// produced in debug mode.
	Visualization *image.NRGBA
}

// Analyze counts the skin pixels of img under the marker-coloured pixels of mask.
//
// Arguments:
//   - img: The displayed image, anchored at (0,0).
//   - mask: A mask of the same size drawn by DrawDetectionMask.
//   - region: Selects the threshold.
//
// Returns:
//   - Analysis: Counts, ratio and verdict.
func (d *SkinDetector) Analyze(img, mask *image.RGBA, region detection.Region) Analysis {
	w := min(img.Rect.Dx(), mask.Rect.Dx())
	h := min(img.Rect.Dy(), mask.Rect.Dy())
	marker := d.config.MaskColor

	var vis *image.NRGBA
	if d.config.Debug {
		vis = image.NewNRGBA(image.Rect(0, 0, w, h))
	}

	var skin, total atomic.Int64
	images.Parallel(h, func(partStart, partEnd int) {
		var s, t int64
		for y := partStart; y < partEnd; y++ {
			mo := y * mask.Stride
			io := y * img.Stride
			for x := 0; x < w; x++ {
				m := mask.Pix[mo+x*4 : mo+x*4+3]
				if m[0] != marker.R || m[1] != marker.G || m[2] != marker.B {
					continue
				}
				t++
				p := img.Pix[io+x*4 : io+x*4+3]
				isSkin := d.IsSkin(p[0], p[1], p[2])
				if isSkin {
					s++
				}
				if vis != nil {
					c := nonSkinMarkColor
					if isSkin {
						c = skinMarkColor
					}
					vis.SetNRGBA(x, y, c)
				}
			}
		}
		skin.Add(s)
		total.Add(t)
	})

	a := Analysis{
		SkinPixels:    int(skin.Load()),
		TotalPixels:   int(total.Load()),
		Region:        region,
		Visualization: vis,
	}
	if a.TotalPixels > 0 {
		a.SkinRatio = float32(a.SkinPixels) / float32(a.TotalPixels)
	}
	a.HasSkin = a.SkinRatio >= d.Threshold(region)
	return a
}
