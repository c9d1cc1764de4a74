// Package model - Tensor layout and loading configuration for the on-device models.
package model

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/models/model/preprocess"
	"github.com/nvr-ai/safegaze/models/postprocess"
)

// Name is the unique identifier of a model.
type Name string

const (
	// NameNSFW is the five-category content classifier.
	NameNSFW Name = "nsfw"
	// NameGender is the face crop gender classifier.
	NameGender Name = "gender"
	// NamePose is the MoveNet multi-person pose estimator.
	NamePose Name = "pose"
	// NameFace is the UltraFace face detector.
	NameFace Name = "face"
)

// Names lists every model the pipeline can load, in load order.
var Names = []Name{NameNSFW, NameFace, NamePose, NameGender}

// Layout is the memory order of an image input tensor.
type Layout string

const (
	// LayoutNHWC is batch, height, width, channels.
	LayoutNHWC Layout = "nhwc"
	// LayoutNCHW is batch, channels, height, width.
	LayoutNCHW Layout = "nchw"
)

// Normalization selects how 8-bit pixel values are mapped into the tensor.
type Normalization string

const (
	// NormalizationNone keeps raw 0-255 values.
	NormalizationNone Normalization = "none"
	// NormalizationZeroToOne divides by 255.
	NormalizationZeroToOne Normalization = "zero_to_one"
	// NormalizationMinusOneToOne maps to [-1, 1].
	NormalizationMinusOneToOne Normalization = "minus_one_to_one"
	// NormalizationUltraFace applies (p - 127) / 128.
	NormalizationUltraFace Normalization = "ultraface"
)

// InputType is the element type of the image input tensor.
type InputType string

const (
	// InputFloat32 is a float32 input tensor.
	InputFloat32 InputType = "float32"
	// InputInt32 is an int32 input tensor.
	InputInt32 InputType = "int32"
)

// Config describes how to load a model and how to feed it.
type Config struct {
	Name                Name                   `json:"name"                yaml:"name"`
	Path                string                 `json:"path"                yaml:"path"`
	Inputs              []string               `json:"inputs"              yaml:"inputs"`
	Outputs             []string               `json:"outputs"             yaml:"outputs"`
	InputWidth          int                    `json:"inputWidth"          yaml:"input_width"`
	InputHeight         int                    `json:"inputHeight"         yaml:"input_height"`
	Channels            int                    `json:"channels"            yaml:"channels"`
	Layout              Layout                 `json:"layout"              yaml:"layout"`
	Normalization       Normalization          `json:"normalization"       yaml:"normalization"`
	InputType           InputType              `json:"inputType"           yaml:"input_type"`
	OutputShapes        [][]int64              `json:"outputShapes"        yaml:"output_shapes"`
	ConfidenceThreshold float32                `json:"confidenceThreshold" yaml:"confidence_threshold"`
	NMS                 *postprocess.NMSConfig `json:"nms,omitempty"       yaml:"nms,omitempty"`
}

// InputShape returns the batch-1 input tensor shape for the configured layout.
//
// Returns:
//   - []int64: [1, H, W, C] for NHWC or [1, C, H, W] for NCHW.
func (c Config) InputShape() []int64 {
	h, w, ch := int64(c.InputHeight), int64(c.InputWidth), int64(c.Channels)
	if c.Layout == LayoutNCHW {
		return []int64{1, ch, h, w}
	}
	return []int64{1, h, w, ch}
}

// Validate reports the first inconsistency in the config.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("model name is required")
	}
	if c.Path == "" {
		return errors.Errorf("model %s: path is required", c.Name)
	}
	if len(c.Inputs) != 1 {
		return errors.Errorf("model %s: exactly one input is supported, got %d", c.Name, len(c.Inputs))
	}
	if len(c.Outputs) == 0 || len(c.Outputs) != len(c.OutputShapes) {
		return errors.Errorf("model %s: %d outputs but %d output shapes", c.Name, len(c.Outputs), len(c.OutputShapes))
	}
	if c.InputWidth <= 0 || c.InputHeight <= 0 || c.Channels <= 0 {
		return errors.Errorf("model %s: invalid input size %dx%dx%d", c.Name, c.InputWidth, c.InputHeight, c.Channels)
	}
	switch c.Layout {
	case LayoutNHWC, LayoutNCHW:
	default:
		return errors.Errorf("model %s: unknown layout %q", c.Name, c.Layout)
	}
	switch c.InputType {
	case InputFloat32, InputInt32:
	default:
		return errors.Errorf("model %s: unknown input type %q", c.Name, c.InputType)
	}
	return nil
}

// Preprocess returns the preprocessing settings derived from the config.
func (c Config) Preprocess() preprocess.ModelConfig {
	order := preprocess.ChannelOrderHWC
	if c.Layout == LayoutNCHW {
		order = preprocess.ChannelOrderCHW
	}

	norm := preprocess.NormalizeNone
	switch c.Normalization {
	case NormalizationZeroToOne:
		norm = preprocess.NormalizeZeroToOne
	case NormalizationMinusOneToOne:
		norm = preprocess.NormalizeMinusOneToOne
	case NormalizationUltraFace:
		norm = preprocess.NormalizeUltraFace
	}

	return preprocess.ModelConfig{
		Name:              string(c.Name),
		InputWidth:        c.InputWidth,
		InputHeight:       c.InputHeight,
		InputChannels:     c.Channels,
		NormalizationType: norm,
		ChannelOrder:      order,
		ColorMode:         preprocess.ColorModeRGB,
	}
}
