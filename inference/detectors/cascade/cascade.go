// Package cascade - Haar cascade face detector backed by OpenCV.
package cascade

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/inference/detectors"
)

// CascadeScore is the score given to every cascade hit; the classifier has no confidence.
const CascadeScore float32 = 1

// FaceDetector finds faces with an OpenCV cascade classifier. It reports
// boxes in pixel space.
type FaceDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// New loads a cascade XML file, e.g. haarcascade_frontalface_default.xml.
//
// Arguments:
//   - path: The cascade file.
//
// Returns:
//   - *FaceDetector: The detector; Close it when done.
//   - error: An error if the file cannot be loaded.
func New(path string) (*FaceDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, errors.Errorf("error reading cascade file: %s", path)
	}
	return &FaceDetector{classifier: classifier}, nil
}

// Detect runs the cascade over a grayscale copy of img.
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]detectors.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "convert image to mat")
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScale(gray)
	d.mu.Unlock()

	return FacesFromRects(rects), nil
}

// FacesFromRects converts cascade rectangles into pixel-space faces.
func FacesFromRects(rects []image.Rectangle) []detectors.Face {
	faces := make([]detectors.Face, 0, len(rects))
	for _, r := range rects {
		r = r.Canon()
		if r.Empty() {
			continue
		}
		box := common.PixelRect{
			X1: float32(r.Min.X),
			Y1: float32(r.Min.Y),
			X2: float32(r.Max.X),
			Y2: float32(r.Max.Y),
		}
		faces = append(faces, detectors.Face{Pixel: &box, Score: CascadeScore})
	}
	return faces
}

// Close releases the classifier.
func (d *FaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
