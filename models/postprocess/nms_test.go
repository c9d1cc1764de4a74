package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/common"
)

func TestApplyGreedyNMS(t *testing.T) {
	a := Result{Box: common.PixelRect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.8}
	b := Result{Box: common.PixelRect{X1: 1, Y1: 1, X2: 11, Y2: 11}, Score: 0.9}
	c := Result{Box: common.PixelRect{X1: 50, Y1: 50, X2: 60, Y2: 60}, Score: 0.7}
	d := Result{Box: common.PixelRect{X1: 0, Y1: 0, X2: 10, Y2: 10}, Score: 0.6, Class: 1}

	tests := []struct {
		name     string
		input    []Result
		config   NMSConfig
		expected []Result
	}{
		{"empty", nil, NMSConfig{IoUThreshold: 0.3}, nil},
		{"suppresses lower score overlap", []Result{a, b, c}, NMSConfig{IoUThreshold: 0.3}, []Result{b, c}},
		{"threshold above overlap keeps both", []Result{a, b}, NMSConfig{IoUThreshold: 0.9}, []Result{b, a}},
		{"class agnostic", []Result{a, d}, NMSConfig{IoUThreshold: 0.3}, []Result{a}},
		{"class aware", []Result{a, d}, NMSConfig{IoUThreshold: 0.3, ClassAware: true}, []Result{a, d}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyGreedyNMS(tt.input, &tt.config)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestApplyGreedyNMSDoesNotMutateInput(t *testing.T) {
	input := []Result{
		{Box: common.PixelRect{X2: 1, Y2: 1}, Score: 0.1},
		{Box: common.PixelRect{X1: 5, Y1: 5, X2: 6, Y2: 6}, Score: 0.9},
	}
	out := ApplyGreedyNMS(input, &NMSConfig{IoUThreshold: 0.5})
	require.Len(t, out, 2)
	assert.Equal(t, float32(0.9), out[0].Score)
	assert.Equal(t, float32(0.1), input[0].Score)
}
