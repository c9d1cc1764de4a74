package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/safegaze/common"
)

func TestCoverageRasterizesOncePerRead(t *testing.T) {
	cov := newCoverage(100, 100)
	for i := 0; i < 10; i++ {
		y := float32(5 + i*10)
		cov.segment(common.CanvasPoint{X: 5, Y: y}, common.CanvasPoint{X: 95, Y: y}, 4)
	}
	assert.Zero(t, cov.draws)

	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	cov.stamp(dst, color.RGBA{R: 255, A: 255})
	assert.Equal(t, 1, cov.draws)

	cov.alpha()
	assert.Equal(t, 1, cov.draws, "nothing queued since the last read")

	for i := 0; i < 10; i++ {
		assert.Equal(t, uint8(255), dst.RGBAAt(50, 5+i*10).R)
	}
	assert.Equal(t, uint8(0), dst.RGBAAt(50, 10).R)
}

func TestCoverageOverlapsDoNotCancel(t *testing.T) {
	tests := []struct {
		name string
		draw func(c *coverage)
	}{
		{"crossing segments", func(c *coverage) {
			c.segment(common.CanvasPoint{X: 10, Y: 50}, common.CanvasPoint{X: 90, Y: 50}, 10)
			c.segment(common.CanvasPoint{X: 50, Y: 90}, common.CanvasPoint{X: 50, Y: 10}, 10)
		}},
		{"segment under ellipse", func(c *coverage) {
			c.segment(common.CanvasPoint{X: 10, Y: 50}, common.CanvasPoint{X: 90, Y: 50}, 10)
			c.ellipse(common.CanvasPoint{X: 50, Y: 50}, 15, 15)
		}},
		{"reversed segments", func(c *coverage) {
			c.segment(common.CanvasPoint{X: 10, Y: 50}, common.CanvasPoint{X: 90, Y: 50}, 10)
			c.segment(common.CanvasPoint{X: 90, Y: 50}, common.CanvasPoint{X: 10, Y: 50}, 10)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cov := newCoverage(100, 100)
			tt.draw(cov)
			alpha := cov.alpha()
			assert.GreaterOrEqual(t, alpha.AlphaAt(50, 50).A, uint8(0xF0))
			assert.GreaterOrEqual(t, alpha.AlphaAt(20, 50).A, uint8(0xF0))
			assert.Equal(t, uint8(0), alpha.AlphaAt(20, 20).A)
		})
	}
}
