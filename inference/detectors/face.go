// Package detectors - Model-backed detectors for the content pipeline: NSFW,
// face, pose and gender.
package detectors

import (
	"context"
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/models/model/preprocess"
	"github.com/nvr-ai/safegaze/models/postprocess"
)

// ErrOutputShape is returned when a model output does not have the expected layout.
var ErrOutputShape = errors.New("unexpected model output shape")

// Face is one detected face. Exactly one of Normalized or Pixel is set,
// depending on the space the backend reports in.
type Face struct {
	Normalized *common.NormalizedRect
	Pixel      *common.PixelRect
	Score      float32
}

// PixelBox returns the face box in working-image pixels.
//
// Arguments:
//   - imgW: The working image width.
//   - imgH: The working image height.
//
// Returns:
//   - common.PixelRect: The box.
//   - bool: False when the face carries no box.
func (f Face) PixelBox(imgW, imgH int) (common.PixelRect, bool) {
	switch {
	case f.Pixel != nil:
		return *f.Pixel, true
	case f.Normalized != nil:
		return f.Normalized.ToPixel(imgW, imgH), true
	default:
		return common.PixelRect{}, false
	}
}

// FaceDetector runs the UltraFace model.
type FaceDetector struct {
	handle    *inference.Handle
	threshold float32
	nms       postprocess.NMSConfig
}

// NewFaceDetector wraps a loaded face model.
func NewFaceDetector(h *inference.Handle) *FaceDetector {
	cfg := h.Config()
	d := &FaceDetector{handle: h, threshold: cfg.ConfidenceThreshold}
	if cfg.NMS != nil {
		d.nms = *cfg.NMS
	}
	return d
}

// Detect finds faces in img.
//
// Returns:
//   - []Face: Normalized, top-left origin boxes, highest score first.
//   - error: A preprocessing, runtime or output shape error.
func (d *FaceDetector) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	var faces []Face
	err := d.handle.Run(ctx, func(s *inference.Session) error {
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
		scores, _, err := s.Output(0)
		if err != nil {
			return err
		}
		boxes, _, err := s.Output(1)
		if err != nil {
			return err
		}
		faces, err = ParseUltraFace(scores, boxes, d.threshold, d.nms)
		return err
	})
	return faces, err
}

// ParseUltraFace decodes UltraFace outputs into faces.
//
// Arguments:
//   - scores: [N,2] background/face probabilities, flattened.
//   - boxes: [N,4] x1,y1,x2,y2 normalized corners, flattened.
//   - threshold: Minimum face probability (exclusive).
//   - nms: Suppression settings applied to the kept boxes.
//
// Returns:
//   - []Face: Boxes clamped to [0,1], highest score first.
//   - error: ErrOutputShape when the tensors disagree.
func ParseUltraFace(scores, boxes []float32, threshold float32, nms postprocess.NMSConfig) ([]Face, error) {
	if len(scores)%2 != 0 || len(boxes)%4 != 0 || len(scores)/2 != len(boxes)/4 {
		return nil, errors.Wrapf(ErrOutputShape, "ultraface: %d scores, %d box values", len(scores), len(boxes))
	}

	var candidates []postprocess.Result
	for i := 0; i < len(scores)/2; i++ {
		conf := scores[2*i+1]
		if conf <= threshold {
			continue
		}
		b := common.PixelRect{
			X1: clampUnit(boxes[4*i]),
			Y1: clampUnit(boxes[4*i+1]),
			X2: clampUnit(boxes[4*i+2]),
			Y2: clampUnit(boxes[4*i+3]),
		}
		if b.Empty() {
			continue
		}
		candidates = append(candidates, postprocess.Result{Box: b, Score: conf})
	}

	kept := postprocess.ApplyGreedyNMS(candidates, &nms)
	faces := make([]Face, 0, len(kept))
	for _, r := range kept {
		faces = append(faces, Face{
			Normalized: &common.NormalizedRect{
				X:      r.Box.X1,
				Y:      r.Box.Y1,
				W:      r.Box.Width(),
				H:      r.Box.Height(),
				Origin: common.OriginTopLeft,
			},
			Score: r.Score,
		})
	}
	return faces, nil
}

func clampUnit(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}
