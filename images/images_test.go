package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func getPNGBytes(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func getJPEGBytes(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	src := getTestImage(64, 48)

	t.Run("png", func(t *testing.T) {
		img, meta, err := Decode(getPNGBytes(t, src))
		require.NoError(t, err)
		assert.Equal(t, FormatPNG, meta.Format)
		assert.Equal(t, 64, meta.Width)
		assert.Equal(t, 48, meta.Height)
		assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
	})

	t.Run("jpeg", func(t *testing.T) {
		_, meta, err := Decode(getJPEGBytes(t, src))
		require.NoError(t, err)
		assert.Equal(t, FormatJPEG, meta.Format)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := Decode([]byte("<html>not an image</html>"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("truncated png", func(t *testing.T) {
		data := getPNGBytes(t, src)
		_, _, err := Decode(data[:40])
		assert.Error(t, err)
	})
}

func TestSniffFormat(t *testing.T) {
	webp := append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 8)...)
	f, err := SniffFormat(webp)
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, f)

	f, err = SniffFormat([]byte("GIF89a......"))
	require.NoError(t, err)
	assert.Equal(t, FormatGIF, f)

	_, err = SniffFormat(nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestResizeDimensions(t *testing.T) {
	tests := []struct {
		name          string
		w, h          int
		expW, expH    int
		expectedRatio float32
	}{
		{"landscape", 1600, 1200, 800, 600, 0.5},
		{"portrait", 1000, 2000, 400, 800, 0.4},
		{"already small", 640, 480, 640, 480, 1},
		{"exact bound", 800, 800, 800, 800, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ratio := ResizeDimensions(tt.w, tt.h, 800, 800)
			assert.Equal(t, tt.expW, w)
			assert.Equal(t, tt.expH, h)
			assert.InDelta(t, tt.expectedRatio, ratio, 1e-6)
		})
	}
}

func TestFitWithin(t *testing.T) {
	img := getTestImage(1200, 300)
	out, ratio := FitWithin(img, 800, 800)
	assert.Equal(t, 800, out.Bounds().Dx())
	assert.Equal(t, 200, out.Bounds().Dy())
	assert.InDelta(t, 2.0/3.0, ratio, 1e-5)

	small := getTestImage(100, 50)
	same, ratio := FitWithin(small, 800, 800)
	assert.Same(t, small, same.(*image.RGBA))
	assert.Equal(t, float32(1), ratio)

	offset := small.SubImage(image.Rect(10, 10, 60, 40))
	anchored, _ := FitWithin(offset, 800, 800)
	assert.Equal(t, image.Rect(0, 0, 50, 30), anchored.Bounds())
}

func TestResizeExact(t *testing.T) {
	out := ResizeExact(getTestImage(300, 100), 224, 224)
	assert.Equal(t, image.Rect(0, 0, 224, 224), out.Bounds())
}

func TestCrop(t *testing.T) {
	img := getTestImage(100, 100)

	c := Crop(img, image.Rect(10, 20, 30, 50))
	assert.Equal(t, image.Rect(0, 0, 20, 30), c.Bounds())
	assert.Equal(t, img.RGBAAt(10, 20), c.RGBAAt(0, 0))

	clipped := Crop(img, image.Rect(90, 90, 150, 150))
	assert.Equal(t, image.Rect(0, 0, 10, 10), clipped.Bounds())

	assert.True(t, Crop(img, image.Rect(200, 200, 300, 300)).Bounds().Empty())
}

func TestPixelBlockSize(t *testing.T) {
	tests := []struct {
		w, h     int
		expected int
	}{
		{100, 100, 8},
		{800, 600, 29},
		{200, 400, 16},
		{2000, 1500, 35},
		{10, 10, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, PixelBlockSize(tt.w, tt.h), "%dx%d", tt.w, tt.h)
	}
}

func TestPixelate(t *testing.T) {
	img := getTestImage(100, 100)
	out := Pixelate(img)
	require.Equal(t, img.Bounds(), out.Bounds())

	block := PixelBlockSize(100, 100)
	for y := 0; y < 100; y += 7 {
		for x := 0; x < 100; x += 7 {
			p := out.RGBAAt(x, y)
			assert.Equal(t, p.R, p.G)
			assert.Equal(t, p.G, p.B)
			// Every pixel equals the top-left pixel of its block.
			anchor := out.RGBAAt(x-x%block, y-y%block)
			assert.Equal(t, anchor, p)
		}
	}

	// The source is not mutated.
	assert.Equal(t, color.RGBA{R: 5, G: 5, B: 128, A: 255}, img.RGBAAt(5, 5))
}

func TestDesaturate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 128})

	full := Desaturate(img, 1)
	gray := Luma(255, 0, 0)
	assert.Equal(t, color.RGBA{R: gray, G: gray, B: gray, A: 255}, full.RGBAAt(0, 0))
	assert.Equal(t, uint8(128), full.RGBAAt(1, 0).A)

	none := Desaturate(img, 0)
	assert.Equal(t, img.RGBAAt(0, 0), none.RGBAAt(0, 0))

	half := Desaturate(img, 0.5).RGBAAt(0, 0)
	assert.Greater(t, half.G, uint8(0))
	assert.Less(t, half.R, uint8(255))
}

func TestCompositeMasked(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	Fill(src, color.RGBA{R: 9, G: 9, B: 9, A: 255})

	mask := image.NewAlpha(image.Rect(0, 0, 4, 4))
	mask.SetAlpha(1, 2, color.Alpha{A: 255})

	CompositeMasked(dst, src, mask)
	assert.Equal(t, color.RGBA{R: 9, G: 9, B: 9, A: 255}, dst.RGBAAt(1, 2))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(0, 0))

	CompositeMasked(dst, src, nil)
	assert.Equal(t, color.RGBA{R: 9, G: 9, B: 9, A: 255}, dst.RGBAAt(0, 0))
}

func TestEncode(t *testing.T) {
	img := getTestImage(32, 24)

	tests := []struct {
		format  ImageFormat
		wantErr bool
	}{
		{FormatPNG, false},
		{FormatJPEG, false},
		{FormatGIF, false},
		{FormatWebP, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			data, err := Encode(img, tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)

			decoded, meta, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.format, meta.Format)
			assert.Equal(t, img.Bounds().Size(), decoded.Bounds().Size())
		})
	}
}
