package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/models/model"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input    string
		expected ProviderBackend
		wantErr  bool
	}{
		{"", CPUProviderBackend, false},
		{"cpu", CPUProviderBackend, false},
		{"coreml", CoreMLProviderBackend, false},
		{"cuda", CUDAProviderBackend, false},
		{"openvino", OpenVINOProviderBackend, false},
		{"tensorrt", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBackend(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownBackend)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001|0x008), CoreMLOptions{UseCPUOnly: true, RequireStaticInputShapes: true}.Flags())
	assert.Equal(t, uint32(0x010), CoreMLOptions{MLProgram: true}.Flags())
}

func TestOpenVINOToMap(t *testing.T) {
	assert.Empty(t, OpenVINOOptions{}.ToMap())
	assert.Equal(t, map[string]string{
		"device_type":    "GPU",
		"precision":      "FP16",
		"num_of_threads": "4",
	}, OpenVINOOptions{DeviceType: "GPU", Precision: "FP16", NumOfThreads: 4}.ToMap())
}

func TestPrecisionValidate(t *testing.T) {
	for _, p := range []model.Precision{"", model.PrecisionAccuracy, model.PrecisionFP32, model.PrecisionFP16, model.PrecisionINT8} {
		assert.NoError(t, p.Validate(), p)
	}
	assert.Error(t, model.Precision("FP64").Validate())
}

func TestCUDAToMap(t *testing.T) {
	m := CUDAOptions{DeviceID: 1, GPUMemLimit: 2 << 30}.ToMap()
	assert.Equal(t, "1", m["device_id"])
	assert.Equal(t, "2147483648", m["gpu_mem_limit"])
	assert.NotContains(t, m, "cudnn_conv_algo_search")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, CPUProviderBackend, cfg.Backend)
	assert.GreaterOrEqual(t, cfg.Optimization.IntraOpNumThreads, 1)
}
