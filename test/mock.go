// Package test - Synthetic images and fake detectors shared by the package tests.
package test

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
)

// Reference colours for synthetic scenes.
var (
	// SkinColor passes every skin rule.
	SkinColor = color.RGBA{R: 200, G: 120, B: 90, A: 255}
	// ClothColor fails the skin rules (blue dominant).
	ClothColor = color.RGBA{R: 40, G: 80, B: 160, A: 255}
	// BackgroundColor is a neutral near-white that fails the skin rules.
	BackgroundColor = color.RGBA{R: 235, G: 235, B: 235, A: 255}
)

// MockImageGenerator creates deterministic test images.
//
// @example
// gen := NewMockImageGenerator(640, 480)
// img := gen.Solid(test.ClothColor)
type MockImageGenerator struct {
	width  int
	height int
}

// NewMockImageGenerator creates a generator for images of the given size.
//
// Arguments:
//   - width: Image width in pixels.
//   - height: Image height in pixels.
//
// Returns:
//   - *MockImageGenerator: The generator.
func NewMockImageGenerator(width, height int) *MockImageGenerator {
	return &MockImageGenerator{width: width, height: height}
}

// Solid returns an image filled with c.
func (g *MockImageGenerator) Solid(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	draw.Draw(img, img.Rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// Gradient returns an image whose colour varies with position, so that
// pixelation visibly changes it.
func (g *MockImageGenerator) Gradient() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(1, g.width-1)),
				G: uint8(y * 255 / max(1, g.height-1)),
				B: uint8((x ^ y) & 0xFF),
				A: 255,
			})
		}
	}
	return img
}

// Paint fills r of img with c.
func Paint(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// EncodePNG encodes img, panicking on failure. Test use only.
func EncodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// skeleton places the 17 keypoints relative to a person's bounding box.
var skeleton = [detection.NumBodyParts][2]float32{
	detection.Nose:          {0.50, 0.08},
	detection.LeftEye:       {0.45, 0.06},
	detection.RightEye:      {0.55, 0.06},
	detection.LeftEar:       {0.40, 0.08},
	detection.RightEar:      {0.60, 0.08},
	detection.LeftShoulder:  {0.30, 0.20},
	detection.RightShoulder: {0.70, 0.20},
	detection.LeftElbow:     {0.25, 0.35},
	detection.RightElbow:    {0.75, 0.35},
	detection.LeftWrist:     {0.22, 0.50},
	detection.RightWrist:    {0.78, 0.50},
	detection.LeftHip:       {0.38, 0.55},
	detection.RightHip:      {0.62, 0.55},
	detection.LeftKnee:      {0.38, 0.75},
	detection.RightKnee:     {0.62, 0.75},
	detection.LeftAnkle:     {0.38, 0.95},
	detection.RightAnkle:    {0.62, 0.95},
}

// StandingPerson builds a person whose keypoints form an upright skeleton
// inside box, every point scored score.
//
// Arguments:
//   - id: The person id.
//   - box: The area the skeleton spans, in pixels.
//   - score: The score of every keypoint.
//
// Returns:
//   - detection.Person: The person with PoseBox and Score derived from the points.
func StandingPerson(id int, box common.PixelRect, score float32) detection.Person {
	points := make([]detection.KeyPoint, 0, detection.NumBodyParts)
	for part, rel := range skeleton {
		points = append(points, detection.KeyPoint{
			BodyPart: detection.BodyPart(part),
			Coordinate: common.PixelPoint{
				X: box.X1 + rel[0]*box.Width(),
				Y: box.Y1 + rel[1]*box.Height(),
			},
			Score: score,
		})
	}
	p, _ := detection.NewPerson(id, points, 0)
	return p
}

// FaceBoxOf returns the head box of a StandingPerson built on box.
func FaceBoxOf(box common.PixelRect) common.PixelRect {
	return common.PixelRect{
		X1: box.X1 + 0.38*box.Width(),
		Y1: box.Y1 + 0.01*box.Height(),
		X2: box.X1 + 0.62*box.Width(),
		Y2: box.Y1 + 0.13*box.Height(),
	}
}
