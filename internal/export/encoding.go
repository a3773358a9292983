package export

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/ivlev/toyscene/internal/tensor"
)

// Encoding is a frame file format.
type Encoding int

const (
	// EncodingRaw stores the float64 array losslessly as .npy.
	EncodingRaw Encoding = iota
	// EncodingJPEG stores 3-band frames as 8-bit JPEG.
	EncodingJPEG
	// EncodingPNG stores 3-band frames as 8-bit PNG.
	EncodingPNG
	// EncodingTIFF stores 3-band frames as 8-bit deflate TIFF.
	EncodingTIFF
)

// JPEGQuality is used for EncodingJPEG.
const JPEGQuality = 95

func (e Encoding) String() string {
	switch e {
	case EncodingRaw:
		return "raw"
	case EncodingJPEG:
		return "jpg"
	case EncodingPNG:
		return "png"
	case EncodingTIFF:
		return "tiff"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// Ext is the file extension, without the dot.
func (e Encoding) Ext() string {
	switch e {
	case EncodingRaw:
		return "npy"
	case EncodingJPEG:
		return "jpg"
	case EncodingPNG:
		return "png"
	case EncodingTIFF:
		return "tiff"
	default:
		return "bin"
	}
}

// IsImage reports whether the encoding quantizes to an 8-bit RGB image.
func (e Encoding) IsImage() bool {
	switch e {
	case EncodingJPEG, EncodingPNG, EncodingTIFF:
		return true
	default:
		return false
	}
}

// ParseEncoding accepts the names produced by String and a few aliases.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "raw", "npy", "h5", "":
		return EncodingRaw, nil
	case "jpg", "jpeg":
		return EncodingJPEG, nil
	case "png":
		return EncodingPNG, nil
	case "tif", "tiff":
		return EncodingTIFF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// Encode writes a to w in format e.
func (e Encoding) Encode(w io.Writer, a *tensor.Array) error {
	switch e {
	case EncodingRaw:
		return WriteNPY(w, a)
	case EncodingJPEG, EncodingPNG, EncodingTIFF:
		img, err := ToRGBA(a)
		if err != nil {
			return err
		}
		switch e {
		case EncodingJPEG:
			return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
		case EncodingPNG:
			return png.Encode(w, img)
		default:
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownEncoding, e)
	}
}

// ToRGBA rescales a 3-band array from [0, 1] to 8-bit RGB. Pixel (x, y) of
// the image is a[x, y]. Values outside [0, 1] saturate.
func ToRGBA(a *tensor.Array) (*image.RGBA, error) {
	if a.C != 3 {
		return nil, fmt.Errorf("%w: RGB image encoding needs 3 bands, got %d", ErrEncodingCompatibility, a.C)
	}
	img := image.NewRGBA(image.Rect(0, 0, a.W, a.H))
	for x := 0; x < a.W; x++ {
		for y := 0; y < a.H; y++ {
			p := a.Pixel(x, y)
			img.SetRGBA(x, y, color.RGBA{R: quantize(p[0]), G: quantize(p[1]), B: quantize(p[2]), A: 255})
		}
	}
	return img, nil
}

func quantize(v float64) uint8 {
	v = math.Floor(v * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
