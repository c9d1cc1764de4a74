package kernels

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(rect image.Rectangle, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(rect)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestBoxBlur_RadiusZeroReturnsCopy(t *testing.T) {
	img := solid(image.Rect(10, 20, 18, 27), color.RGBA{R: 10, G: 20, B: 30, A: 255})

	out := BoxBlur(img, Options{Radius: 0})
	assert.Equal(t, image.Rect(0, 0, 8, 7), out.Bounds())
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, out.RGBAAt(0, 0))

	out.SetRGBA(0, 0, color.RGBA{})
	assert.Equal(t, color.RGBA{R: 10, G: 20, B: 30, A: 255}, img.RGBAAt(10, 20))
}

func TestBoxBlur_UniformImageUnchanged(t *testing.T) {
	c := color.RGBA{R: 200, G: 120, B: 90, A: 255}
	img := solid(image.Rect(0, 0, 32, 24), c)

	for _, parallel := range []bool{false, true} {
		for _, edge := range []EdgeMode{EdgeClamp, EdgeMirror, EdgeWrap} {
			out := BoxBlur(img, Options{Radius: 3, Edge: edge, Parallel: parallel})
			assert.Equal(t, c, out.RGBAAt(0, 0))
			assert.Equal(t, c, out.RGBAAt(31, 23))
			assert.Equal(t, c, out.RGBAAt(16, 12))
		}
	}
}

func TestBoxBlur_SpreadsImpulse(t *testing.T) {
	img := solid(image.Rect(0, 0, 3, 1), color.RGBA{A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 255, A: 255})

	out := BoxBlur(img, Options{Radius: 1, Edge: EdgeClamp})
	require.Equal(t, image.Rect(0, 0, 3, 1), out.Rect)

	// Each pixel averages a 3-wide window containing the single red pixel.
	for x := 0; x < 3; x++ {
		assert.Equal(t, uint8(85), out.RGBAAt(x, 0).R, "x=%d", x)
	}
}

func TestMapCoord(t *testing.T) {
	tests := []struct {
		name     string
		i, n     int
		mode     EdgeMode
		expected int
	}{
		{"clamp low", -2, 5, EdgeClamp, 0},
		{"clamp high", 7, 5, EdgeClamp, 4},
		{"mirror low", -1, 5, EdgeMirror, 0},
		{"mirror high", 5, 5, EdgeMirror, 4},
		{"mirror single", 3, 1, EdgeMirror, 0},
		{"wrap low", -1, 5, EdgeWrap, 4},
		{"wrap high", 6, 5, EdgeWrap, 1},
		{"inside", 2, 5, EdgeClamp, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapCoord(tt.i, tt.n, tt.mode))
		})
	}
}
