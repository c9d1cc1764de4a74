package common

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedRect_ToPixel(t *testing.T) {
	tests := []struct {
		name     string
		in       NormalizedRect
		w, h     int
		expected PixelRect
	}{
		{
			name:     "top-left origin",
			in:       NormalizedRect{X: 0.25, Y: 0.5, W: 0.5, H: 0.25},
			w:        100,
			h:        200,
			expected: PixelRect{X1: 25, Y1: 100, X2: 75, Y2: 150},
		},
		{
			name:     "bottom-left origin flips vertically",
			in:       NormalizedRect{X: 0.25, Y: 0.5, W: 0.5, H: 0.25, Origin: OriginBottomLeft},
			w:        100,
			h:        100,
			expected: PixelRect{X1: 25, Y1: 25, X2: 75, Y2: 50},
		},
		{
			name:     "bottom-left full frame",
			in:       NormalizedRect{X: 0, Y: 0, W: 1, H: 1, Origin: OriginBottomLeft},
			w:        640,
			h:        480,
			expected: PixelRect{X1: 0, Y1: 0, X2: 640, Y2: 480},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.ToPixel(tt.w, tt.h)
			assert.InDelta(t, tt.expected.X1, got.X1, 1e-4)
			assert.InDelta(t, tt.expected.Y1, got.Y1, 1e-4)
			assert.InDelta(t, tt.expected.X2, got.X2, 1e-4)
			assert.InDelta(t, tt.expected.Y2, got.Y2, 1e-4)
		})
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, origin := range []Origin{OriginTopLeft, OriginBottomLeft} {
		t.Run(origin.String(), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				w := 45 + rng.Intn(800)
				h := 45 + rng.Intn(800)
				x1 := rng.Float32() * float32(w)
				y1 := rng.Float32() * float32(h)
				box := PixelRect{
					X1: x1,
					Y1: y1,
					X2: x1 + rng.Float32()*(float32(w)-x1),
					Y2: y1 + rng.Float32()*(float32(h)-y1),
				}

				back := box.ToNormalized(w, h, origin).ToPixel(w, h)
				assert.InDelta(t, box.X1, back.X1, 1e-3)
				assert.InDelta(t, box.Y1, back.Y1, 1e-3)
				assert.InDelta(t, box.X2, back.X2, 1e-3)
				assert.InDelta(t, box.Y2, back.Y2, 1e-3)
			}
		})
	}
}

func TestNormalizedPoint_ToPixel(t *testing.T) {
	top := NormalizedPoint{X: 0.5, Y: 0.25}.ToPixel(200, 100)
	assert.Equal(t, PixelPoint{X: 100, Y: 25}, top)

	bottom := NormalizedPoint{X: 0.5, Y: 0.25, Origin: OriginBottomLeft}.ToPixel(200, 100)
	assert.Equal(t, PixelPoint{X: 100, Y: 75}, bottom)
}

func TestCanvasScale(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		s := NewCanvasScale(800, 600, 800, 600)
		box := PixelRect{X1: 10, Y1: 20, X2: 110, Y2: 220}
		assert.Equal(t, CanvasRect{X: 10, Y: 20, W: 100, H: 200}, box.Scale(s))
		assert.Equal(t, CanvasPoint{X: 3, Y: 4}, PixelPoint{X: 3, Y: 4}.Scale(s))
	})

	t.Run("downscaled display", func(t *testing.T) {
		s := NewCanvasScale(400, 150, 800, 600)
		assert.InDelta(t, 0.5, s.RatioX, 1e-6)
		assert.InDelta(t, 0.25, s.RatioY, 1e-6)
		got := PixelRect{X1: 100, Y1: 100, X2: 300, Y2: 500}.Scale(s)
		assert.Equal(t, CanvasRect{X: 50, Y: 25, W: 100, H: 100}, got)
	})

	t.Run("zero detection size", func(t *testing.T) {
		assert.Equal(t, CanvasScale{RatioX: 1, RatioY: 1}, NewCanvasScale(10, 10, 0, 0))
	})
}

func TestPixelRect_Geometry(t *testing.T) {
	a := PixelRect{X1: 0, Y1: 0, X2: 100, Y2: 100}
	b := PixelRect{X1: 50, Y1: 50, X2: 150, Y2: 150}

	assert.Equal(t, PixelPoint{X: 50, Y: 50}, a.Center())
	assert.InDelta(t, 2500, a.Intersection(b), 1e-3)
	assert.InDelta(t, 17500, a.Union(b), 1e-3)
	assert.InDelta(t, 1.0/7.0, a.IOU(b), 1e-3)
	assert.InDelta(t, a.IOU(b), b.IOU(a), 1e-6)
	assert.Zero(t, a.IOU(PixelRect{X1: 200, Y1: 200, X2: 300, Y2: 300}))
	assert.Zero(t, PixelRect{}.IOU(PixelRect{}))

	assert.Equal(t, image.Rect(100, 100, 201, 301), PixelRect{X1: 100.5, Y1: 100.5, X2: 200.5, Y2: 300.5}.ToRect())
	assert.Equal(t, PixelRect{X1: 0, Y1: 0, X2: 50, Y2: 40}, PixelRect{X1: -5, Y1: -1, X2: 80, Y2: 90}.Clamp(50, 40))
	assert.True(t, PixelRect{X1: 5, Y1: 5, X2: 5, Y2: 9}.Empty())
}

func TestPixelPoint_Distance(t *testing.T) {
	assert.InDelta(t, 5, PixelPoint{X: 0, Y: 0}.Distance(PixelPoint{X: 3, Y: 4}), 1e-5)
	assert.Equal(t, CanvasPoint{X: 2, Y: 3}, CanvasPoint{X: 0, Y: 0}.Mid(CanvasPoint{X: 4, Y: 6}))
}

func TestParseOrigin(t *testing.T) {
	assert.Equal(t, OriginBottomLeft, ParseOrigin("bottom_left"))
	assert.Equal(t, OriginTopLeft, ParseOrigin("top_left"))
	assert.Equal(t, OriginTopLeft, ParseOrigin("sideways"))
}
