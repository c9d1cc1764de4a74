package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
)

func kp(part detection.BodyPart, x, y, score float32) KeyPoint {
	return KeyPoint{Part: part, Point: common.CanvasPoint{X: x, Y: y}, Score: score}
}

func TestStrokeWidth(t *testing.T) {
	d := NewSkeletonDrawer(DefaultConfig())
	large := []KeyPoint{kp(detection.Nose, 0, 0, 1), kp(detection.LeftAnkle, 500, 1000, 1)}
	small := []KeyPoint{kp(detection.Nose, 0, 0, 1), kp(detection.LeftAnkle, 100, 100, 1)}
	unscored := []KeyPoint{kp(detection.Nose, 0, 0, 0)}

	tests := []struct {
		name     string
		w, h     int
		mode     Mode
		gender   detection.Gender
		points   []KeyPoint
		expected float32
	}{
		{"fallback female", 100, 200, ModeDetection, detection.GenderFemale, nil, 32},
		{"fallback male", 100, 200, ModeDetection, detection.GenderMale, nil, 25},
		{"fallback unknown", 100, 200, ModeDetection, detection.GenderUnknown, nil, 25},
		{"fallback floor", 5, 5, ModeDetection, detection.GenderFemale, nil, 2},
		{"unscored points fall back", 100, 200, ModeDebug, detection.GenderFemale, unscored, 32},
		{"full size female", 1000, 1000, ModeDetection, detection.GenderFemale, large, 267},
		{"full size male", 1000, 1000, ModeDetection, detection.GenderMale, large, 225},
		{"small pose floor", 1000, 1000, ModeDetection, detection.GenderFemale, small, 15},
		{"debug", 1000, 1000, ModeDebug, detection.GenderFemale, large, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, d.StrokeWidth(tt.w, tt.h, tt.mode, tt.gender, tt.points))
		})
	}
}

func marked(mask *image.RGBA, x, y int, c color.RGBA) bool {
	return mask.RGBAAt(x, y) == c
}

func TestDrawDetectionMaskMale(t *testing.T) {
	cfg := DefaultConfig()
	d := NewSkeletonDrawer(cfg)
	points := []KeyPoint{
		kp(detection.LeftShoulder, 40, 10, 0.5),
		kp(detection.RightShoulder, 60, 10, 0.5),
		kp(detection.LeftHip, 40, 50, 0.5),
		kp(detection.RightHip, 60, 50, 0.5),
		kp(detection.LeftKnee, 40, 80, 0.5),
		kp(detection.RightKnee, 60, 80, 0.5),
	}

	mask := image.NewRGBA(image.Rect(0, 0, 100, 100))
	d.DrawDetectionMask(mask, points, detection.GenderMale, ModeDetection)
	assert.True(t, marked(mask, 41, 65, cfg.MaskColor), "hip to knee")
	assert.True(t, marked(mask, 50, 50, cfg.MaskColor), "hips")
	assert.False(t, marked(mask, 50, 10, cfg.MaskColor), "shoulders are not drawn for males")

	// Every touched pixel holds exactly the marker colour.
	for i := 0; i < len(mask.Pix); i += 4 {
		px := color.RGBA{R: mask.Pix[i], G: mask.Pix[i+1], B: mask.Pix[i+2], A: mask.Pix[i+3]}
		if px != (color.RGBA{}) {
			require.Equal(t, cfg.MaskColor, px)
		}
	}

	weak := append([]KeyPoint(nil), points...)
	weak[2].Score, weak[3].Score = 0.05, 0.05
	mask = image.NewRGBA(image.Rect(0, 0, 100, 100))
	d.DrawDetectionMask(mask, weak, detection.GenderMale, ModeDetection)
	assert.False(t, marked(mask, 50, 50, cfg.MaskColor), "hips below the male threshold")
	assert.True(t, marked(mask, 50, 80, cfg.MaskColor), "knees still drawn")
}

func TestDrawDetectionMaskFemaleExtras(t *testing.T) {
	cfg := DefaultConfig()
	d := NewSkeletonDrawer(cfg)
	points := []KeyPoint{
		kp(detection.Nose, 50, 5, 0.9),
		kp(detection.LeftShoulder, 30, 30, 0.9),
		kp(detection.RightShoulder, 70, 30, 0.9),
		kp(detection.LeftHip, 35, 70, 0.9),
		kp(detection.RightHip, 65, 70, 0.9),
	}

	unknown := image.NewRGBA(image.Rect(0, 0, 100, 100))
	d.DrawDetectionMask(unknown, points, detection.GenderUnknown, ModeDetection)
	female := image.NewRGBA(image.Rect(0, 0, 100, 100))
	d.DrawDetectionMask(female, points, detection.GenderFemale, ModeDetection)

	assert.True(t, marked(unknown, 50, 30, cfg.MaskColor), "shoulder line")
	assert.True(t, marked(female, 50, 30, cfg.MaskColor), "shoulder line")
	assert.False(t, marked(unknown, 50, 5, cfg.MaskColor), "no neck without female extras")
	assert.True(t, marked(female, 50, 5, cfg.MaskColor), "neck")
}

func TestDrawDetectionMaskDebugBlends(t *testing.T) {
	cfg := DefaultConfig()
	d := NewSkeletonDrawer(cfg)
	points := []KeyPoint{
		kp(detection.LeftHip, 40, 50, 0.5),
		kp(detection.RightHip, 60, 50, 0.5),
	}
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	d.DrawDetectionMask(dst, points, detection.GenderUnknown, ModeDebug)
	px := dst.RGBAAt(50, 50)
	assert.NotEqual(t, cfg.MaskColor, px)
	assert.NotZero(t, px.A)
}

func TestDrawOvalFaceRegion(t *testing.T) {
	d := NewSkeletonDrawer(DefaultConfig())
	dst := image.NewRGBA(image.Rect(0, 0, 60, 40))
	original := image.NewRGBA(dst.Rect)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for i := range original.Pix {
		original.Pix[i] = 255
	}

	d.DrawOvalFaceRegion(dst, original, common.CanvasRect{X: 10, Y: 10, W: 40, H: 20})
	assert.Equal(t, white, dst.RGBAAt(30, 20), "centre restored")
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(11, 11), "corner outside the oval")
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(55, 20), "outside the rect")
}
