// Package images - Image decoding, resizing and pixel transforms for the redaction pipeline.
package images

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/pkg/errors"
	"golang.org/x/image/webp"
)

// Image represents an encoded image with its decoded dimensions.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatGIF is the GIF image format (first frame only).
	FormatGIF ImageFormat = "gif"
)

// ErrUnsupportedFormat is returned when the bytes match no known signature.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// SniffFormat identifies the format from the leading magic bytes.
func SniffFormat(data []byte) (ImageFormat, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG, nil
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return FormatPNG, nil
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return FormatGIF, nil
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return FormatWebP, nil
	}
	return "", ErrUnsupportedFormat
}

// Decode decodes raw web image bytes.
//
// Arguments:
//   - data: The encoded image bytes as downloaded.
//
// Returns:
//   - image.Image: The decoded image.
//   - Image: The format and dimensions of the source.
//   - error: ErrUnsupportedFormat or the codec error.
func Decode(data []byte) (image.Image, Image, error) {
	format, err := SniffFormat(data)
	if err != nil {
		return nil, Image{}, err
	}

	r := bytes.NewReader(data)
	var img image.Image
	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(r)
	case FormatPNG:
		img, err = png.Decode(r)
	case FormatGIF:
		img, err = gif.Decode(r)
	case FormatWebP:
		img, err = webp.Decode(r)
	}
	if err != nil {
		return nil, Image{}, errors.Wrapf(err, "decode %s", format)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, Image{}, errors.Errorf("decode %s: empty image", format)
	}

	return img, Image{Format: format, Data: data, Width: b.Dx(), Height: b.Dy()}, nil
}

// EncodePNG encodes an image as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	return Encode(img, FormatPNG)
}

// JPEGQuality is the quality used by Encode for JPEG output.
const JPEGQuality = 90

// Encode encodes an image in the given format. WebP has no encoder and
// returns ErrUnsupportedFormat.
func Encode(img image.Image, format ImageFormat) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatPNG:
		err = png.Encode(&buf, img)
	case FormatJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case FormatGIF:
		err = gif.Encode(&buf, img, nil)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "encode %s", format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", format)
	}
	return buf.Bytes(), nil
}

// ToRGBA returns src as an *image.RGBA anchored at (0,0). The result is
// always a fresh copy so callers may mutate it.
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}
