// Package model - Model options.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
package model

import "github.com/pkg/errors"

// Precision is the inference precision requested from an accelerator.
type Precision string

const (
	// PrecisionAccuracy keeps the precision the model was exported with.
	// (OpenVINO's default input precision type.)
	PrecisionAccuracy Precision = "ACCURACY"
	// PrecisionFP32 runs in 32-bit floating point.
	PrecisionFP32 Precision = "FP32"
	// PrecisionFP16 runs in 16-bit floating point.
	PrecisionFP16 Precision = "FP16"
	// PrecisionINT8 runs in 8-bit integer precision.
	PrecisionINT8 Precision = "INT8"
)

// Validate reports an unknown precision. Empty means the accelerator default.
func (p Precision) Validate() error {
	switch p {
	case "", PrecisionAccuracy, PrecisionFP32, PrecisionFP16, PrecisionINT8:
		return nil
	}
	return errors.Errorf("unknown precision %q", string(p))
}
