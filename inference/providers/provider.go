// Package providers - Execution provider selection and session options for onnxruntime.
package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ProviderBackend represents different ONNX Runtime execution providers
type ProviderBackend string

const (
	// CPUProviderBackend uses the default CPU kernels.
	CPUProviderBackend ProviderBackend = "cpu"
)

// ErrUnknownBackend is returned when the configured backend is not supported.
var ErrUnknownBackend = errors.New("unknown execution provider backend")

// ParseBackend parses a backend name, accepting the empty string as cpu.
func ParseBackend(s string) (ProviderBackend, error) {
	switch b := ProviderBackend(s); b {
	case "", CPUProviderBackend:
		return CPUProviderBackend, nil
	case CoreMLProviderBackend, CUDAProviderBackend, OpenVINOProviderBackend:
		return b, nil
	default:
		return "", errors.Wrapf(ErrUnknownBackend, "%q", s)
	}
}

// Config selects the execution provider and threading for every session.
type Config struct {
	// Backend specifies the backend to use
	Backend ProviderBackend `json:"backend" yaml:"backend"`

	// Provider-specific configuration options; only the one matching Backend is read.
	CoreML   CoreMLOptions   `json:"coreml"   yaml:"coreml"`
	CUDA     CUDAOptions     `json:"cuda"     yaml:"cuda"`
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`

	// Threading and graph optimization.
	Optimization OptimizationConfig `json:"optimization" yaml:"optimization"`
}

// OptimizationConfig contains the ONNX Runtime settings applied to each session.
type OptimizationConfig struct {
	// GraphOptimizationLevel controls the level of graph optimization
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graphOptimizationLevel" yaml:"graph_optimization_level"`

	// ExecutionMode controls sequential vs parallel execution
	ExecutionMode ort.ExecutionMode `json:"executionMode" yaml:"execution_mode"`

	// IntraOpNumThreads sets threads for parallelizing ops
	IntraOpNumThreads int `json:"intraOpNumThreads" yaml:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops
	InterOpNumThreads int `json:"interOpNumThreads" yaml:"inter_op_num_threads"`
}

// DefaultConfig returns a CPU configuration sized for the host.
//
// Returns:
//   - Config: CPU backend with extended graph optimization.
func DefaultConfig() Config {
	numCPU := runtime.NumCPU()

	return Config{
		Backend: CPUProviderBackend,
		Optimization: OptimizationConfig{
			GraphOptimizationLevel: ort.GraphOptimizationLevelEnableExtended,
			ExecutionMode:          ort.ExecutionModeSequential,
			IntraOpNumThreads:      max(1, numCPU/2),
			InterOpNumThreads:      1,
		},
	}
}

// NewSessionOptions builds session options for the configured backend. The
// caller owns the result and must Destroy it.
//
// Arguments:
//   - cfg: The provider configuration.
//
// Returns:
//   - *ort.SessionOptions: Configured session options.
//   - error: An error if an option or the execution provider is rejected.
//
// @example
//
//	options, err := NewSessionOptions(DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer options.Destroy()
func NewSessionOptions(cfg Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "error creating ORT session options")
	}

	if err := applyOptimization(options, cfg.Optimization); err != nil {
		options.Destroy()
		return nil, err
	}

	if err := appendProvider(options, cfg); err != nil {
		options.Destroy()
		return nil, err
	}

	return options, nil
}

func applyOptimization(options *ort.SessionOptions, cfg OptimizationConfig) error {
	if err := options.SetIntraOpNumThreads(cfg.IntraOpNumThreads); err != nil {
		return errors.Wrap(err, "set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpNumThreads); err != nil {
		return errors.Wrap(err, "set inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(cfg.GraphOptimizationLevel); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}
	if err := options.SetExecutionMode(cfg.ExecutionMode); err != nil {
		return errors.Wrap(err, "set execution mode")
	}
	return nil
}

// appendProvider enables the execution provider named by cfg.Backend. The
// CPU provider is always present and needs no registration.
func appendProvider(options *ort.SessionOptions, cfg Config) error {
	backend, err := ParseBackend(string(cfg.Backend))
	if err != nil {
		return err
	}

	switch backend {
	case CoreMLProviderBackend:
		if err := options.AppendExecutionProviderCoreML(cfg.CoreML.Flags()); err != nil {
			return errors.Wrap(err, "error enabling CoreML")
		}
	case OpenVINOProviderBackend:
		if err := cfg.OpenVINO.Precision.Validate(); err != nil {
			return errors.Wrap(err, "error configuring OpenVINO")
		}
		if err := options.AppendExecutionProviderOpenVINO(cfg.OpenVINO.ToMap()); err != nil {
			return errors.Wrap(err, "error enabling OpenVINO")
		}
	case CUDAProviderBackend:
		cuda, err := cfg.CUDA.ToNativeProviderOptions()
		if err != nil {
			return errors.Wrap(err, "error converting CUDA options")
		}
		defer cuda.Destroy()
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return errors.Wrap(err, "error enabling CUDA")
		}
	}
	return nil
}
