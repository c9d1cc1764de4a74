package render

import (
	"image/color"

	"github.com/pkg/errors"
)

// Mode selects how a skeleton is drawn.
type Mode string

const (
	// ModeDetection draws the marker-coloured mask used for skin analysis.
	ModeDetection Mode = "detection"
	// ModeDebug draws a thin overlay for inspection.
	ModeDebug Mode = "debug"
)

// Range is an inclusive channel range.
type Range struct {
	Min uint8 `json:"min" yaml:"min"`
	Max uint8 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v uint8) bool {
	return v >= r.Min && v <= r.Max
}

// SkinRanges are the RGB bounds of a skin pixel.
type SkinRanges struct {
	R Range `json:"r" yaml:"r"`
	G Range `json:"g" yaml:"g"`
	B Range `json:"b" yaml:"b"`
	// MinRGDiff is the minimum |r - g| of a skin pixel.
	MinRGDiff int `json:"minRgDiff" yaml:"min_rg_diff"`
}

// Config is the redaction policy.
type Config struct {
	// MinPoseScore skips people whose pose score is below it.
	MinPoseScore float32 `json:"minPoseScore" yaml:"min_pose_score"`
	// MinPartScore is the keypoint threshold for female and unknown people.
	MinPartScore float32 `json:"minPartScore" yaml:"min_part_score"`
	// MinPartScoreMale is the keypoint threshold for males.
	MinPartScoreMale float32 `json:"minPartScoreMale" yaml:"min_part_score_male"`
	// MinFacePartScore is the threshold for nose, eyes and ears.
	MinFacePartScore float32 `json:"minFacePartScore" yaml:"min_face_part_score"`
	Padding          int     `json:"padding" yaml:"padding"`

	MinSkinRatio          float32    `json:"minSkinRatio" yaml:"min_skin_ratio"`
	LowerBodyMinSkinRatio float32    `json:"lowerBodyMinSkinRatio" yaml:"lower_body_min_skin_ratio"`
	Skin                  SkinRanges `json:"skin" yaml:"skin"`

	FemaleStrokeMultiplier float32 `json:"femaleStrokeMultiplier" yaml:"female_stroke_multiplier"`
	MaleStrokeMultiplier   float32 `json:"maleStrokeMultiplier" yaml:"male_stroke_multiplier"`
	FallbackMaleMultiplier float32 `json:"fallbackMaleMultiplier" yaml:"fallback_male_multiplier"`
	MinStrokeWidth         float32 `json:"minStrokeWidth" yaml:"min_stroke_width"`
	MinFallbackStrokeWidth float32 `json:"minFallbackStrokeWidth" yaml:"min_fallback_stroke_width"`
	DebugStrokeWidth       float32 `json:"debugStrokeWidth" yaml:"debug_stroke_width"`

	// MaskColor marks detection-mask pixels. It must not occur in anti-aliased
	// edges, so masks are drawn without blending.
	MaskColor color.RGBA `json:"maskColor" yaml:"mask_color"`

	// PlaceholderBlurRadius and PlaceholderDesaturation shape the pending image.
	PlaceholderBlurRadius   int     `json:"placeholderBlurRadius" yaml:"placeholder_blur_radius"`
	PlaceholderDesaturation float64 `json:"placeholderDesaturation" yaml:"placeholder_desaturation"`

	// Debug overlays the skin visualization and skeleton on the output.
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns the production redaction policy.
func DefaultConfig() Config {
	return Config{
		MinPoseScore:     0.2,
		MinPartScore:     0,
		MinPartScoreMale: 0.07,
		MinFacePartScore: 0.05,
		Padding:          20,

		MinSkinRatio:          0.3,
		LowerBodyMinSkinRatio: 0.2,
		Skin: SkinRanges{
			R:         Range{Min: 95, Max: 255},
			G:         Range{Min: 40, Max: 220},
			B:         Range{Min: 20, Max: 200},
			MinRGDiff: 15,
		},

		FemaleStrokeMultiplier: 0.32,
		MaleStrokeMultiplier:   0.27,
		FallbackMaleMultiplier: 0.25,
		MinStrokeWidth:         15,
		MinFallbackStrokeWidth: 2,
		DebugStrokeWidth:       5,

		MaskColor: color.RGBA{R: 53, G: 34, B: 34, A: 255},

		PlaceholderBlurRadius:   5,
		PlaceholderDesaturation: 0.5,
	}
}

// Validate rejects policies the renderer cannot apply.
func (c Config) Validate() error {
	switch {
	case c.MinSkinRatio < 0 || c.MinSkinRatio > 1:
		return errors.Errorf("render: min skin ratio must be in [0,1], got %v", c.MinSkinRatio)
	case c.LowerBodyMinSkinRatio < 0 || c.LowerBodyMinSkinRatio > 1:
		return errors.Errorf("render: lower body min skin ratio must be in [0,1], got %v", c.LowerBodyMinSkinRatio)
	case c.FemaleStrokeMultiplier <= 0 || c.MaleStrokeMultiplier <= 0 || c.FallbackMaleMultiplier <= 0:
		return errors.New("render: stroke multipliers must be > 0")
	case c.MinStrokeWidth <= 0 || c.DebugStrokeWidth <= 0:
		return errors.New("render: stroke widths must be > 0")
	case c.MaskColor.A != 0xFF:
		return errors.Errorf("render: mask colour must be opaque, got alpha %d", c.MaskColor.A)
	case c.PlaceholderBlurRadius < 0:
		return errors.Errorf("render: placeholder blur radius must be >= 0, got %d", c.PlaceholderBlurRadius)
	case c.PlaceholderDesaturation < 0 || c.PlaceholderDesaturation > 1:
		return errors.Errorf("render: placeholder desaturation must be in [0,1], got %v", c.PlaceholderDesaturation)
	}
	return nil
}
