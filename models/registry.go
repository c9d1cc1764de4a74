// Package models - registry of the built-in tensor layouts for every pipeline model.
package models

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/models/model"
	"github.com/nvr-ai/safegaze/models/postprocess"
)

// ErrUnknownModel is returned for a model name with no registry entry.
var ErrUnknownModel = errors.New("unknown model")

// Face detector defaults (UltraFace RFB-320).
const (
	FaceConfidenceThreshold = 0.7
	FaceIoUThreshold        = 0.3
	faceAnchors             = 4420
)

// Pose estimator output layout (MoveNet MultiPose).
const (
	PoseMaxInstances = 6
	PoseValuesPerRow = 56
)

// DefaultConfig returns the built-in configuration for a model. The path is
// left empty; callers set it from their own configuration.
//
// Arguments:
//   - name: The model name.
//
// Returns:
//   - model.Config: The tensor layout and thresholds.
//   - error: ErrUnknownModel for an unregistered name.
//
// @example
//
//	cfg, err := DefaultConfig(model.NameFace)
//	if err != nil {
//	    return err
//	}
//	cfg.Path = "/models/ultraface-rfb-320.onnx"
func DefaultConfig(name model.Name) (model.Config, error) {
	switch name {
	case model.NameNSFW:
		return model.Config{
			Name:          model.NameNSFW,
			Inputs:        []string{"input"},
			Outputs:       []string{"prediction"},
			InputWidth:    224,
			InputHeight:   224,
			Channels:      3,
			Layout:        model.LayoutNHWC,
			Normalization: model.NormalizationZeroToOne,
			InputType:     model.InputFloat32,
			OutputShapes:  [][]int64{{1, 5}},
		}, nil
	case model.NameGender:
		return model.Config{
			Name:                model.NameGender,
			Inputs:              []string{"input"},
			Outputs:             []string{"output"},
			InputWidth:          224,
			InputHeight:         224,
			Channels:            3,
			Layout:              model.LayoutNHWC,
			Normalization:       model.NormalizationZeroToOne,
			InputType:           model.InputFloat32,
			OutputShapes:        [][]int64{{1, 1}},
			ConfidenceThreshold: 0.5,
		}, nil
	case model.NamePose:
		return model.Config{
			Name:                model.NamePose,
			Inputs:              []string{"input"},
			Outputs:             []string{"output_0"},
			InputWidth:          256,
			InputHeight:         256,
			Channels:            3,
			Layout:              model.LayoutNHWC,
			Normalization:       model.NormalizationNone,
			InputType:           model.InputInt32,
			OutputShapes:        [][]int64{{1, PoseMaxInstances, PoseValuesPerRow}},
			ConfidenceThreshold: 0.1,
		}, nil
	case model.NameFace:
		return model.Config{
			Name:                model.NameFace,
			Inputs:              []string{"input"},
			Outputs:             []string{"scores", "boxes"},
			InputWidth:          320,
			InputHeight:         240,
			Channels:            3,
			Layout:              model.LayoutNCHW,
			Normalization:       model.NormalizationUltraFace,
			InputType:           model.InputFloat32,
			OutputShapes:        [][]int64{{1, faceAnchors, 2}, {1, faceAnchors, 4}},
			ConfidenceThreshold: FaceConfidenceThreshold,
			NMS:                 &postprocess.NMSConfig{IoUThreshold: FaceIoUThreshold},
		}, nil
	default:
		return model.Config{}, errors.Wrapf(ErrUnknownModel, "%q", name)
	}
}

// NewConfig returns the registry config for name with the model path set.
//
// Arguments:
//   - name: The model name.
//   - path: Location of the .onnx file.
//
// Returns:
//   - model.Config: A validated config.
//   - error: ErrUnknownModel or a validation error.
func NewConfig(name model.Name, path string) (model.Config, error) {
	cfg, err := DefaultConfig(name)
	if err != nil {
		return cfg, err
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
