// Package render - Draws per-person detection masks, measures exposed skin and
// produces the redacted image.
package render

import (
	"context"
	"image"
	"image/draw"

	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/images/kernels"
)

// State is the display state of one image.
type State int

const (
	// StatePending is shown while detection runs.
	StatePending State = iota
	// StateNSFW is a fully pixelated image.
	StateNSFW
	// StateSafeNoRedaction is the original image.
	StateSafeNoRedaction
	// StateSafePartialRedaction has some people pixelated.
	StateSafePartialRedaction
)

func (s State) String() string {
	switch s {
	case StateNSFW:
		return "nsfw"
	case StateSafeNoRedaction:
		return "safe_no_redaction"
	case StateSafePartialRedaction:
		return "safe_partial_redaction"
	default:
		return "pending"
	}
}

// Telemetry counts user-visible redactions.
type Telemetry interface {
	// ImageBlurred is called once per image that was modified.
	ImageBlurred()
	// HarmfulContent is called once per image classified unsafe.
	HarmfulContent()
}

type nopTelemetry struct{}

func (nopTelemetry) ImageBlurred()   {}
func (nopTelemetry) HarmfulContent() {}

// PersonAnalysis records the decision taken for one person.
type PersonAnalysis struct {
	PersonID int
	// Gender is the effective gender; Unknown when no face was matched.
	Gender detection.Gender
	// Skipped is set when the pose score is below MinPoseScore.
	Skipped bool
	// Unconditional is set for a female with a face, redacted without analysis.
	Unconditional bool
	Redacted      bool
	// Analysis is nil when skin analysis did not run.
	Analysis *Analysis
}

// Output is the rendered image and the decisions behind it.
type Output struct {
	State State
	// Image is anchored at (0,0) and never aliases the input.
	Image    *image.RGBA
	Redacted int
	Analyses []PersonAnalysis
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithTelemetry sets the redaction counters.
func WithTelemetry(t Telemetry) Option {
	return func(r *Renderer) {
		if t != nil {
			r.telemetry = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// Renderer applies the redaction policy to a detection result.
type Renderer struct {
	config    Config
	drawer    *SkeletonDrawer
	skin      *SkinDetector
	telemetry Telemetry
	log       *zap.Logger
}

// New builds a renderer.
//
// Arguments:
//   - cfg: The redaction policy.
//   - opts: Optional telemetry and logger.
//
// Returns:
//   - *Renderer: The renderer.
//   - error: A validation error for cfg.
func New(cfg Config, opts ...Option) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{
		config:    cfg,
		drawer:    NewSkeletonDrawer(cfg),
		skin:      NewSkinDetector(cfg),
		telemetry: nopTelemetry{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Drawer returns the skeleton drawer used by the renderer.
func (r *Renderer) Drawer() *SkeletonDrawer {
	return r.drawer
}

// Placeholder returns the pending rendition: a blur of radius
// PlaceholderBlurRadius followed by partial desaturation.
func (r *Renderer) Placeholder(img image.Image) *image.RGBA {
	blurred := kernels.BoxBlur(img, kernels.Options{
		Radius:   r.config.PlaceholderBlurRadius,
		Edge:     kernels.EdgeClamp,
		Parallel: true,
	})
	return images.Desaturate(blurred, r.config.PlaceholderDesaturation)
}

// Render produces the redacted image for a detection result.
//
// An unsafe result pixelates the whole canvas. Otherwise every person above
// MinPoseScore gets a detection mask; a female with a face is redacted
// unconditionally, anyone else when the skin ratio under the mask reaches the
// region threshold. Redacted masks are pixelated in one pass and matched
// faces are then restored.
//
// Arguments:
//   - ctx: Checked between people.
//   - result: Detection output; coordinates are scaled onto displayed.
//   - displayed: The image as shown to the user.
//
// Returns:
//   - Output: The state and the rendered image.
//   - error: The context error if ctx ends while rendering.
func (r *Renderer) Render(ctx context.Context, result detection.DetectionResult, displayed image.Image) (Output, error) {
	original := images.ToRGBA(displayed)
	w, h := original.Rect.Dx(), original.Rect.Dy()

	if result.IsNSFW {
		out := images.ToRGBA(original)
		Pixelate(out, original, nil)
		r.telemetry.ImageBlurred()
		r.telemetry.HarmfulContent()
		return Output{State: StateNSFW, Image: out}, nil
	}

	scale := common.NewCanvasScale(w, h, result.ImageWidth, result.ImageHeight)
	clip := image.NewAlpha(original.Rect)
	var faces []common.CanvasRect
	var debugMasks []*image.NRGBA
	var debugPoints [][]KeyPoint

	analyses := make([]PersonAnalysis, 0, len(result.Persons))
	redacted := 0
	for i := range result.Persons {
		if err := ctx.Err(); err != nil {
			return Output{}, err
		}
		p := &result.Persons[i]

		gender := p.Gender
		if !p.HasFace() {
			gender = detection.GenderUnknown
		}
		pa := PersonAnalysis{PersonID: p.ID, Gender: gender}
		if p.Score < r.config.MinPoseScore {
			pa.Skipped = true
			analyses = append(analyses, pa)
			continue
		}

		var face *common.CanvasRect
		if p.HasFace() {
			fr := scale.Rect(*p.FaceBox)
			face = &fr
		}
		points := r.canvasKeyPoints(p.KeyPoints, scale, gender)

		mask := image.NewRGBA(original.Rect)
		r.drawer.DrawDetectionMask(mask, points, gender.MaskGender(), ModeDetection)

		if gender == detection.GenderFemale && face != nil {
			pa.Unconditional = true
			pa.Redacted = true
		} else {
			a := r.skin.Analyze(original, mask, gender.AnalysisRegion())
			pa.Analysis = &a
			pa.Redacted = a.HasSkin
			if a.Visualization != nil {
				debugMasks = append(debugMasks, a.Visualization)
			}
		}

		r.log.Debug("person analysed",
			zap.Int("person", p.ID),
			zap.Stringer("gender", gender),
			zap.Bool("redacted", pa.Redacted),
			zap.Bool("unconditional", pa.Unconditional),
		)

		if pa.Redacted {
			redacted++
			r.addToClip(clip, mask)
		}
		if face != nil {
			faces = append(faces, *face)
		}
		if r.config.Debug {
			debugPoints = append(debugPoints, points)
		}
		analyses = append(analyses, pa)
	}

	out := images.ToRGBA(original)
	state := StateSafeNoRedaction
	if redacted > 0 {
		Pixelate(out, original, clip)
		for _, f := range faces {
			r.drawer.DrawOvalFaceRegion(out, original, f)
		}
		state = StateSafePartialRedaction
		r.telemetry.ImageBlurred()
	}

	if r.config.Debug {
		for _, vis := range debugMasks {
			draw.Draw(out, out.Rect, vis, image.Point{}, draw.Over)
		}
		for _, pts := range debugPoints {
			r.drawer.DrawSkeleton(out, pts)
		}
	}

	return Output{State: state, Image: out, Redacted: redacted, Analyses: analyses}, nil
}

// canvasKeyPoints scales keypoints onto the canvas and drops those at or
// below the part threshold: MinFacePartScore for face parts, MinPartScoreMale
// for males and MinPartScore otherwise.
func (r *Renderer) canvasKeyPoints(kps []detection.KeyPoint, scale common.CanvasScale, gender detection.Gender) []KeyPoint {
	out := make([]KeyPoint, 0, len(kps))
	for _, kp := range kps {
		threshold := r.config.MinPartScore
		switch {
		case kp.BodyPart.IsFacePart():
			threshold = r.config.MinFacePartScore
		case gender == detection.GenderMale:
			threshold = r.config.MinPartScoreMale
		}
		if kp.Score <= threshold {
			continue
		}
		out = append(out, KeyPoint{
			Part:  kp.BodyPart,
			Point: scale.Point(kp.Coordinate),
			Score: kp.Score,
		})
	}
	return out
}

// addToClip sets clip opaque wherever mask holds the marker colour.
func (r *Renderer) addToClip(clip *image.Alpha, mask *image.RGBA) {
	marker := r.config.MaskColor
	w, h := clip.Rect.Dx(), clip.Rect.Dy()
	images.Parallel(h, func(partStart, partEnd int) {
		for y := partStart; y < partEnd; y++ {
			mo := y * mask.Stride
			co := y * clip.Stride
			for x := 0; x < w; x++ {
				m := mask.Pix[mo+x*4 : mo+x*4+3]
				if m[0] == marker.R && m[1] == marker.G && m[2] == marker.B {
					clip.Pix[co+x] = 0xFF
				}
			}
		}
	})
}
