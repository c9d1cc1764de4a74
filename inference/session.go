// Package inference - Inference sessions.
package inference

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/safegaze/models/model"
)

// Session represents a model session from the onnxruntime with its
// preallocated input and output tensors.
type Session struct {
	session *ort.AdvancedSession
	config  model.Config
	inputs  []ort.Value
	outputs []ort.Value
}

// NewSession loads a model and binds fixed-shape tensors for its single input
// and every output.
//
// **The onnxruntime environment must already be initialized.**
//
// Arguments:
//   - cfg: The model configuration (path, tensor names and shapes).
//   - options: Session options; the caller keeps ownership.
//
// Returns:
//   - *Session: The runnable session.
//   - error: An error if tensor allocation or model loading fails.
func NewSession(cfg model.Config, options *ort.SessionOptions) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{config: cfg}

	input, err := newInputTensor(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: error creating input tensor", cfg.Name)
	}
	s.inputs = append(s.inputs, input)

	for i, shape := range cfg.OutputShapes {
		output, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "%s: error creating output tensor %s", cfg.Name, cfg.Outputs[i])
		}
		s.outputs = append(s.outputs, output)
	}

	session, err := ort.NewAdvancedSession(cfg.Path, cfg.Inputs, cfg.Outputs, s.inputs, s.outputs, options)
	if err != nil {
		s.Close()
		return nil, errors.Wrapf(err, "%s: error creating ORT session", cfg.Name)
	}
	s.session = session

	return s, nil
}

func newInputTensor(cfg model.Config) (ort.Value, error) {
	shape := ort.NewShape(cfg.InputShape()...)
	if cfg.InputType == model.InputInt32 {
		return ort.NewEmptyTensor[int32](shape)
	}
	return ort.NewEmptyTensor[float32](shape)
}

// Config returns the model configuration the session was built from.
func (s *Session) Config() model.Config {
	return s.config
}

// SetInput copies a float32 tensor into the input buffer.
func (s *Session) SetInput(data []float32) error {
	t, ok := s.inputs[0].(*ort.Tensor[float32])
	if !ok {
		return errors.Errorf("%s: input is not float32", s.config.Name)
	}
	return fill(t.GetData(), data, s.config.Name)
}

// SetInputInt32 copies an int32 tensor into the input buffer.
func (s *Session) SetInputInt32(data []int32) error {
	t, ok := s.inputs[0].(*ort.Tensor[int32])
	if !ok {
		return errors.Errorf("%s: input is not int32", s.config.Name)
	}
	return fill(t.GetData(), data, s.config.Name)
}

func fill[T float32 | int32](dst, src []T, name model.Name) error {
	if len(dst) != len(src) {
		return errors.Errorf("%s: input holds %d values, got %d", name, len(dst), len(src))
	}
	copy(dst, src)
	return nil
}

// Run executes the model on the current input buffer.
func (s *Session) Run() error {
	if s.session == nil {
		return errors.Errorf("%s: session is closed", s.config.Name)
	}
	return errors.Wrapf(s.session.Run(), "%s: run", s.config.Name)
}

// Output returns a copy of output i and its shape.
//
// Arguments:
//   - i: The output index, in config order.
//
// Returns:
//   - []float32: The output values.
//   - []int64: The output shape.
//   - error: An error for an out-of-range index.
func (s *Session) Output(i int) ([]float32, []int64, error) {
	if i < 0 || i >= len(s.outputs) {
		return nil, nil, errors.Errorf("%s: no output %d", s.config.Name, i)
	}
	t := s.outputs[i].(*ort.Tensor[float32])
	data := append([]float32(nil), t.GetData()...)
	return data, append([]int64(nil), t.GetShape()...), nil
}

// Close releases the resources associated with the Session.
//
// Returns:
//   - error: An error if the native session could not be destroyed.
func (s *Session) Close() error {
	for _, input := range s.inputs {
		input.Destroy()
	}
	s.inputs = nil

	for _, output := range s.outputs {
		output.Destroy()
	}
	s.outputs = nil

	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}

	return nil
}
