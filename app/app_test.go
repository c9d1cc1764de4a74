package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/models/model"
)

func TestDetectorsLeavesMissingModelsNil(t *testing.T) {
	var asked []model.Name
	d := Detectors(func(name model.Name) (*inference.Handle, error) {
		asked = append(asked, name)
		return nil, inference.ErrModelUnavailable
	}, common.OriginTopLeft)

	assert.ElementsMatch(t, model.Names, asked)
	// Interface fields must be untyped nil, not typed nil pointers.
	assert.True(t, d.NSFW == nil)
	assert.True(t, d.Face == nil)
	assert.True(t, d.Pose == nil)
	assert.True(t, d.Gender == nil)
}

func TestCloseRunsInReverse(t *testing.T) {
	var order []int
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return inference.ErrModelUnavailable },
		func() error { order = append(order, 3); return nil },
	}, log: zap.NewNop()}

	err := a.Close()
	assert.ErrorIs(t, err, inference.ErrModelUnavailable)
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.NoError(t, a.Close())
}
