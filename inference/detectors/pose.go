package detectors

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/models/model/preprocess"
)

// MoveNet MultiPose row layout: 17 x (y, x, score), then ymin, xmin, ymax,
// xmax and the instance score.
const (
	poseRowValues      = 56
	poseInstanceScore  = 55
	DefaultMinInstance = 0.1
)

// PoseOptions tunes how raw poses are filtered.
type PoseOptions struct {
	MinInstanceScore float32
	PartThreshold    float32
	Origin           common.Origin
}

// DefaultPoseOptions returns the MoveNet defaults.
func DefaultPoseOptions() PoseOptions {
	return PoseOptions{
		MinInstanceScore: DefaultMinInstance,
		PartThreshold:    detection.DefaultPartThreshold,
		Origin:           common.OriginTopLeft,
	}
}

// PoseEstimator runs the multi-person pose model.
type PoseEstimator struct {
	handle *inference.Handle
	opts   PoseOptions
}

// NewPoseEstimator wraps a loaded pose model.
func NewPoseEstimator(h *inference.Handle, opts PoseOptions) *PoseEstimator {
	return &PoseEstimator{handle: h, opts: opts}
}

// Estimate returns the people found in img, in detector order, with
// keypoints in working-image pixels.
func (p *PoseEstimator) Estimate(ctx context.Context, img image.Image) ([]detection.Person, error) {
	b := img.Bounds()
	var persons []detection.Person
	err := p.handle.Run(ctx, func(s *inference.Session) error {
		data, _, err := preprocess.PrepareInt32(img, s.Config().Preprocess())
		if err != nil {
			return err
		}
		if err := s.SetInputInt32(data); err != nil {
			return err
		}
		if err := s.Run(); err != nil {
			return err
		}
		out, shape, err := s.Output(0)
		if err != nil {
			return err
		}
		persons, err = ParsePoses(out, shape, b.Dx(), b.Dy(), p.opts)
		return err
	})
	return persons, err
}

// ParsePoses decodes a [1, instances, 56] MoveNet output.
//
// Arguments:
//   - out: The flattened output.
//   - shape: The output shape.
//   - imgW: The working image width.
//   - imgH: The working image height.
//   - opts: Thresholds and the coordinate origin of the model.
//
// Returns:
//   - []detection.Person: Kept instances; the id is the kept index.
//   - error: ErrOutputShape when the layout is not [1, N, 56].
//
// @example
// persons, err := ParsePoses(out, []int64{1, 6, 56}, 800, 600, DefaultPoseOptions())
func ParsePoses(out []float32, shape []int64, imgW, imgH int, opts PoseOptions) ([]detection.Person, error) {
	if len(shape) != 3 || shape[0] != 1 || shape[2] != poseRowValues {
		return nil, errors.Wrapf(ErrOutputShape, "pose: shape %v", shape)
	}
	rows := int(shape[1])
	if len(out) != rows*poseRowValues {
		return nil, errors.Wrapf(ErrOutputShape, "pose: %d values for shape %v", len(out), shape)
	}

	view := tensor.New(tensor.WithShape(rows, poseRowValues), tensor.WithBacking(out))
	at := func(i, j int) float32 {
		v, err := view.At(i, j)
		if err != nil {
			return 0
		}
		return v.(float32)
	}

	persons := make([]detection.Person, 0, rows)
	for i := 0; i < rows; i++ {
		if at(i, poseInstanceScore) <= opts.MinInstanceScore {
			continue
		}

		points := make([]detection.KeyPoint, 0, detection.NumBodyParts)
		for k := 0; k < detection.NumBodyParts; k++ {
			np := common.NormalizedPoint{X: at(i, 3*k+1), Y: at(i, 3*k), Origin: opts.Origin}
			points = append(points, detection.KeyPoint{
				BodyPart:   detection.BodyPart(k),
				Coordinate: np.ToPixel(imgW, imgH),
				Score:      at(i, 3*k+2),
			})
		}

		if person, ok := detection.NewPerson(len(persons), points, opts.PartThreshold); ok {
			persons = append(persons, person)
		}
	}
	return persons, nil
}
