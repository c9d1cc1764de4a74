// Package preprocess - Converts decoded images into model input tensors.
package preprocess

import (
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/images"
)

// ModelConfig defines preprocessing configuration for a specific model.
type ModelConfig struct {
	// Name of the model for debugging purposes.
	Name string
	// InputWidth is the expected width of the model input.
	InputWidth int
	// InputHeight is the expected height of the model input.
	InputHeight int
	// InputChannels is the number of channels (1 for grayscale, 3 for RGB).
	InputChannels int
	// NormalizationType defines how to normalize pixel values.
	NormalizationType NormalizationType
	// ChannelOrder defines the channel ordering (CHW or HWC).
	ChannelOrder ChannelOrder
	// ColorMode defines the color space (RGB, BGR, Grayscale).
	ColorMode ColorMode
}

// NormalizationType defines how pixel values are normalized.
type NormalizationType int

const (
	// NormalizeNone keeps pixel values as 0-255.
	NormalizeNone NormalizationType = iota
	// NormalizeZeroToOne scales pixel values to [0, 1].
	NormalizeZeroToOne
	// NormalizeMinusOneToOne scales pixel values to [-1, 1].
	NormalizeMinusOneToOne
	// NormalizeUltraFace applies (p - 127) / 128.
	NormalizeUltraFace
)

// ChannelOrder defines the ordering of image channels.
type ChannelOrder int

const (
	// ChannelOrderCHW is Channel-Height-Width ordering (common for ONNX).
	ChannelOrderCHW ChannelOrder = iota
	// ChannelOrderHWC is Height-Width-Channel ordering.
	ChannelOrderHWC
)

// ColorMode defines the color space of the image.
type ColorMode int

const (
	// ColorModeRGB is standard RGB color mode.
	ColorModeRGB ColorMode = iota
	// ColorModeBGR is BGR color mode (common for OpenCV models).
	ColorModeBGR
	// ColorModeGrayscale is single channel grayscale.
	ColorModeGrayscale
)

// PreprocessingResult contains the preprocessed image data and metadata.
type PreprocessingResult struct {
	// Data is the preprocessed float32 tensor data.
	Data []float32
	// OriginalWidth is the original image width before preprocessing.
	OriginalWidth int
	// OriginalHeight is the original image height before preprocessing.
	OriginalHeight int
	// ScaleX is the horizontal scaling factor applied.
	ScaleX float64
	// ScaleY is the vertical scaling factor applied.
	ScaleY float64
	// Shape contains the tensor shape [C, H, W] or [H, W, C].
	Shape []int
}

// Prepare resizes img to the model input size (stretching, no letterbox) and
// converts it to a normalized float32 tensor.
//
// Arguments:
//   - img: The input image.
//   - config: The model-specific preprocessing configuration.
//
// Returns:
//   - PreprocessingResult: The tensor and scaling metadata.
//   - error: An error if the config or image is invalid.
//
// @example
//
//	res, err := Prepare(img, ModelConfig{
//	    InputWidth: 224, InputHeight: 224, InputChannels: 3,
//	    NormalizationType: NormalizeZeroToOne, ChannelOrder: ChannelOrderHWC,
//	})
func Prepare(img image.Image, config ModelConfig) (PreprocessingResult, error) {
	raw, res, err := prepare(img, config)
	if err != nil {
		return res, err
	}
	normalize(raw, config.NormalizationType)
	res.Data = raw
	return res, nil
}

// PrepareInt32 is Prepare for models that take raw integer pixels. No
// normalization is applied.
//
// Returns:
//   - []int32: The tensor data.
//   - PreprocessingResult: Scaling metadata (Data is nil).
//   - error: An error if the config or image is invalid.
func PrepareInt32(img image.Image, config ModelConfig) ([]int32, PreprocessingResult, error) {
	raw, res, err := prepare(img, config)
	if err != nil {
		return nil, res, err
	}
	out := make([]int32, len(raw))
	for i, v := range raw {
		out[i] = int32(v)
	}
	return out, res, nil
}

func prepare(img image.Image, config ModelConfig) ([]float32, PreprocessingResult, error) {
	if err := validate(img, config); err != nil {
		return nil, PreprocessingResult{}, errors.Wrapf(err, "preprocess %s", config.Name)
	}

	b := img.Bounds()
	resized := images.ToRGBA(images.ResizeExact(img, config.InputWidth, config.InputHeight))

	var shape []int
	if config.ChannelOrder == ChannelOrderCHW {
		shape = []int{config.InputChannels, config.InputHeight, config.InputWidth}
	} else {
		shape = []int{config.InputHeight, config.InputWidth, config.InputChannels}
	}

	return imageToTensor(resized, config), PreprocessingResult{
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		ScaleX:         float64(config.InputWidth) / float64(b.Dx()),
		ScaleY:         float64(config.InputHeight) / float64(b.Dy()),
		Shape:          shape,
	}, nil
}

func validate(img image.Image, config ModelConfig) error {
	if img == nil {
		return errors.New("image is nil")
	}
	if img.Bounds().Empty() {
		return errors.New("image is empty")
	}
	if config.InputWidth <= 0 || config.InputHeight <= 0 {
		return errors.Errorf("invalid input dimensions: %dx%d", config.InputWidth, config.InputHeight)
	}
	if config.InputChannels != 1 && config.InputChannels != 3 {
		return errors.Errorf("unsupported channel count: %d", config.InputChannels)
	}
	return nil
}

// imageToTensor converts an image anchored at (0,0) to raw 0-255 float32
// values in the configured channel order.
func imageToTensor(img *image.RGBA, config ModelConfig) []float32 {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	plane := width * height
	tensor := make([]float32, plane*config.InputChannels)

	idx := 0
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			r8, g8, b8 := row[x*4], row[x*4+1], row[x*4+2]

			if config.InputChannels == 1 {
				tensor[y*width+x] = float32(images.Luma(r8, g8, b8))
				continue
			}

			ch0, ch1, ch2 := float32(r8), float32(g8), float32(b8)
			if config.ColorMode == ColorModeBGR {
				ch0, ch2 = ch2, ch0
			}

			if config.ChannelOrder == ChannelOrderCHW {
				tensor[y*width+x] = ch0
				tensor[plane+y*width+x] = ch1
				tensor[2*plane+y*width+x] = ch2
			} else {
				tensor[idx] = ch0
				tensor[idx+1] = ch1
				tensor[idx+2] = ch2
				idx += 3
			}
		}
	}

	return tensor
}

// normalize applies normalization to the tensor in place.
func normalize(tensor []float32, kind NormalizationType) {
	switch kind {
	case NormalizeZeroToOne:
		for i := range tensor {
			tensor[i] /= 255.0
		}
	case NormalizeMinusOneToOne:
		for i := range tensor {
			tensor[i] = (tensor[i] / 127.5) - 1.0
		}
	case NormalizeUltraFace:
		for i := range tensor {
			tensor[i] = (tensor[i] - 127.0) / 128.0
		}
	}
}
