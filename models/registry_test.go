package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/models/model"
	"github.com/nvr-ai/safegaze/models/model/preprocess"
)

func TestDefaultConfig(t *testing.T) {
	tests := []struct {
		name       model.Name
		inputShape []int64
		outputs    int
		norm       preprocess.NormalizationType
		order      preprocess.ChannelOrder
	}{
		{model.NameNSFW, []int64{1, 224, 224, 3}, 1, preprocess.NormalizeZeroToOne, preprocess.ChannelOrderHWC},
		{model.NameGender, []int64{1, 224, 224, 3}, 1, preprocess.NormalizeZeroToOne, preprocess.ChannelOrderHWC},
		{model.NamePose, []int64{1, 256, 256, 3}, 1, preprocess.NormalizeNone, preprocess.ChannelOrderHWC},
		{model.NameFace, []int64{1, 3, 240, 320}, 2, preprocess.NormalizeUltraFace, preprocess.ChannelOrderCHW},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			cfg, err := DefaultConfig(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, cfg.Name)
			assert.Equal(t, tt.inputShape, cfg.InputShape())
			assert.Len(t, cfg.Outputs, tt.outputs)
			assert.Len(t, cfg.OutputShapes, tt.outputs)

			pre := cfg.Preprocess()
			assert.Equal(t, tt.norm, pre.NormalizationType)
			assert.Equal(t, tt.order, pre.ChannelOrder)

			// Path is left to the caller.
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultConfigCoversAllNames(t *testing.T) {
	for _, name := range model.Names {
		_, err := DefaultConfig(name)
		assert.NoError(t, err, name)
	}

	_, err := DefaultConfig("yolov4")
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(model.NameFace, "/models/face.onnx")
	require.NoError(t, err)
	assert.Equal(t, "/models/face.onnx", cfg.Path)
	require.NotNil(t, cfg.NMS)
	assert.InDelta(t, 0.3, cfg.NMS.IoUThreshold, 1e-6)
	assert.InDelta(t, 0.7, cfg.ConfidenceThreshold, 1e-6)

	_, err = NewConfig(model.NamePose, "")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	base, err := NewConfig(model.NameNSFW, "nsfw.onnx")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *model.Config)
	}{
		{"no name", func(c *model.Config) { c.Name = "" }},
		{"two inputs", func(c *model.Config) { c.Inputs = []string{"a", "b"} }},
		{"shape mismatch", func(c *model.Config) { c.OutputShapes = nil }},
		{"zero size", func(c *model.Config) { c.InputWidth = 0 }},
		{"bad layout", func(c *model.Config) { c.Layout = "hwcn" }},
		{"bad input type", func(c *model.Config) { c.InputType = "uint8" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Inputs = append([]string(nil), base.Inputs...)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
