package detectors

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/models/model/preprocess"
)

// MaleThreshold is the sigmoid score above which a face is classified male.
const MaleThreshold float32 = 0.5

// ErrEmptyCrop is returned when the face box lies outside the image.
var ErrEmptyCrop = errors.New("face crop is empty")

// GenderClassifier runs the face crop gender model.
type GenderClassifier struct {
	handle *inference.Handle
}

// NewGenderClassifier wraps a loaded gender model.
func NewGenderClassifier(h *inference.Handle) *GenderClassifier {
	return &GenderClassifier{handle: h}
}

// Classify crops face from img and classifies it.
//
// Arguments:
//   - ctx: Bounds the wait for a session.
//   - img: The working image.
//   - face: The face box in working-image pixels; clamped to the image.
//
// Returns:
//   - detection.Gender: Male or Female.
//   - float32: The confidence of that gender.
//   - error: ErrEmptyCrop, or a runtime or output shape error.
func (c *GenderClassifier) Classify(ctx context.Context, img image.Image, face common.PixelRect) (detection.Gender, float32, error) {
	crop, err := CropFace(img, face)
	if err != nil {
		return detection.GenderUnknown, 0, err
	}

	gender, score := detection.GenderUnknown, float32(0)
	err = c.handle.Run(ctx, func(s *inference.Session) error {
		res, err := preprocess.Prepare(crop, s.Config().Preprocess())
		if err != nil {
			return err
		}
		if err := s.SetInput(res.Data); err != nil {
			return err
		}
		if err := s.Run(); err != nil {
			return err
		}
		out, _, err := s.Output(0)
		if err != nil {
			return err
		}
		if len(out) != 1 {
			return errors.Wrapf(ErrOutputShape, "gender: %d values", len(out))
		}
		gender, score = ParseGender(out[0])
		return nil
	})
	return gender, score, err
}

// CropFace copies the face region out of img after clamping it to bounds.
func CropFace(img image.Image, face common.PixelRect) (*image.RGBA, error) {
	b := img.Bounds()
	r := face.Clamp(b.Dx(), b.Dy()).ToRect()
	if r.Empty() {
		return nil, errors.Wrapf(ErrEmptyCrop, "%s in %dx%d", face, b.Dx(), b.Dy())
	}
	return images.Crop(img, r), nil
}

// ParseGender maps the sigmoid score: s > 0.5 is male with confidence s,
// otherwise female with confidence 1 - s.
func ParseGender(s float32) (detection.Gender, float32) {
	if s > MaleThreshold {
		return detection.GenderMale, s
	}
	return detection.GenderFemale, 1 - s
}
