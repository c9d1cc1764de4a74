package detectors

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/models/model/preprocess"
)

// NSFWClassifier runs the five-category content classifier.
type NSFWClassifier struct {
	handle *inference.Handle
}

// NewNSFWClassifier wraps a loaded NSFW model.
func NewNSFWClassifier(h *inference.Handle) *NSFWClassifier {
	return &NSFWClassifier{handle: h}
}

// Classify scores the whole image.
//
// Returns:
//   - detection.NsfwPrediction: Category probabilities.
//   - error: A preprocessing, runtime or output shape error.
func (c *NSFWClassifier) Classify(ctx context.Context, img image.Image) (detection.NsfwPrediction, error) {
	var pred detection.NsfwPrediction
	err := c.handle.Run(ctx, func(s *inference.Session) error {
		res, err := preprocess.Prepare(img, s.Config().Preprocess())
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
		pred, err = ParseNSFW(out)
		return err
	})
	return pred, err
}

// ParseNSFW reads the classifier output in label order.
func ParseNSFW(out []float32) (detection.NsfwPrediction, error) {
	pred, err := detection.FromScores(out)
	if err != nil {
		return pred, errors.Wrap(ErrOutputShape, err.Error())
	}
	return pred, nil
}
