package cascade

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/common"
)

func TestFacesFromRects(t *testing.T) {
	faces := FacesFromRects([]image.Rectangle{
		image.Rect(10, 20, 50, 70),
		image.Rect(5, 5, 5, 9),
		{Min: image.Point{X: 90, Y: 90}, Max: image.Point{X: 60, Y: 40}},
	})
	require.Len(t, faces, 2)

	assert.Nil(t, faces[0].Normalized)
	require.NotNil(t, faces[0].Pixel)
	assert.Equal(t, common.PixelRect{X1: 10, Y1: 20, X2: 50, Y2: 70}, *faces[0].Pixel)
	assert.Equal(t, CascadeScore, faces[0].Score)

	// Pixel boxes pass through PixelBox untouched regardless of image size.
	box, ok := faces[0].PixelBox(1000, 1000)
	require.True(t, ok)
	assert.Equal(t, *faces[0].Pixel, box)

	assert.Equal(t, common.PixelRect{X1: 60, Y1: 40, X2: 90, Y2: 90}, *faces[1].Pixel)
}

func TestNewMissingFile(t *testing.T) {
	_, err := New("does-not-exist.xml")
	assert.Error(t, err)
}
