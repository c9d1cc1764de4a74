package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/detection"
)

func TestIsSkin(t *testing.T) {
	d := NewSkinDetector(DefaultConfig())

	tests := []struct {
		name     string
		r, g, b  uint8
		expected bool
	}{
		{"typical skin", 200, 120, 90, true},
		{"saturated red", 255, 40, 20, true},
		{"red below range", 94, 50, 30, false},
		{"green below range", 200, 39, 30, false},
		{"blue above range", 230, 100, 205, false},
		{"green dominant", 120, 130, 90, false},
		{"red green too close", 120, 110, 90, false},
		{"near white", 230, 215, 180, false},
		{"near black", 99, 60, 40, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.IsSkin(tt.r, tt.g, tt.b))
		})
	}
}

// stripe returns a 10x1 image with the first skin pixels in skin colour and a
// mask covering all of it.
func stripe(cfg Config, skin int) (*image.RGBA, *image.RGBA) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 1))
	mask := image.NewRGBA(image.Rect(0, 0, 10, 1))
	for x := 0; x < 10; x++ {
		mask.SetRGBA(x, 0, cfg.MaskColor)
		if x < skin {
			img.Pix[x*4], img.Pix[x*4+1], img.Pix[x*4+2], img.Pix[x*4+3] = 200, 120, 90, 255
		} else {
			img.Pix[x*4], img.Pix[x*4+1], img.Pix[x*4+2], img.Pix[x*4+3] = 40, 80, 160, 255
		}
	}
	return img, mask
}

func TestAnalyzeThresholds(t *testing.T) {
	cfg := DefaultConfig()
	d := NewSkinDetector(cfg)

	tests := []struct {
		region detection.Region
		first  int // smallest skin count that reaches the threshold
	}{
		{detection.RegionFull, 3},
		{detection.RegionLowerBody, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.region), func(t *testing.T) {
			prev := false
			for k := 0; k <= 10; k++ {
				img, mask := stripe(cfg, k)
				a := d.Analyze(img, mask, tt.region)
				assert.Equal(t, k, a.SkinPixels)
				assert.Equal(t, 10, a.TotalPixels)
				assert.Equal(t, tt.region, a.Region)
				assert.Equal(t, k >= tt.first, a.HasSkin, "k=%d ratio=%v", k, a.SkinRatio)
				if prev {
					assert.True(t, a.HasSkin, "verdict must not flip back as skin grows")
				}
				prev = a.HasSkin
			}
		})
	}
}

func TestAnalyzeIgnoresUnmarkedPixels(t *testing.T) {
	cfg := DefaultConfig()
	d := NewSkinDetector(cfg)

	img, mask := stripe(cfg, 10)
	// Only the first two pixels are under the mask.
	for x := 2; x < 10; x++ {
		mask.Pix[x*4] = 0
	}
	a := d.Analyze(img, mask, detection.RegionFull)
	assert.Equal(t, 2, a.TotalPixels)
	assert.Equal(t, 2, a.SkinPixels)

	empty := image.NewRGBA(img.Rect)
	a = d.Analyze(img, empty, detection.RegionFull)
	assert.Zero(t, a.TotalPixels)
	assert.Zero(t, a.SkinRatio)
	assert.False(t, a.HasSkin)
	assert.Nil(t, a.Visualization)
}

func TestAnalyzeVisualization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Debug = true
	d := NewSkinDetector(cfg)

	img, mask := stripe(cfg, 4)
	a := d.Analyze(img, mask, detection.RegionFull)
	require.NotNil(t, a.Visualization)
	assert.Equal(t, skinMarkColor, a.Visualization.NRGBAAt(0, 0))
	assert.Equal(t, nonSkinMarkColor, a.Visualization.NRGBAAt(9, 0))
}
