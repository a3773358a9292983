// Package blob provides the moving objects composited into scenes: glyphs
// of digits, QR codes and arbitrary patterns, each optionally driven by an
// intensity time series.
package blob

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/skip2/go-qrcode"

	"github.com/ivlev/toyscene/internal/scene"
	"github.com/ivlev/toyscene/internal/tensor"
)

// NumLabels bounds digit labels; annotation values are (label+1)/NumLabels.
const NumLabels = 10

// Blob is a static pattern scaled at every step by its time series. A blob
// without a series has no time dimension.
type Blob struct {
	id         int
	hasID      bool
	registered bool

	label   int
	labeled bool

	pattern *tensor.Array
	serie   *Serie
}

var _ scene.Object = (*Blob)(nil)

// NewPattern wraps pattern, which should be valued in [0, 1].
func NewPattern(pattern *tensor.Array) *Blob {
	return &Blob{pattern: pattern}
}

// NewDigit renders digit d with a bitmap font and scales the glyph to size.
func NewDigit(d int, size image.Point, bands int) (*Blob, error) {
	if d < 0 || d >= NumLabels {
		return nil, fmt.Errorf("blob: digit %d out of range", d)
	}
	if size.X <= 0 || size.Y <= 0 || bands <= 0 {
		return nil, fmt.Errorf("blob: invalid digit shape %dx%dx%d", size.X, size.Y, bands)
	}

	face := basicfont.Face7x13
	glyph := image.NewGray(image.Rect(0, 0, face.Advance, face.Height))
	dr := font.Drawer{
		Dst:  glyph,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	dr.DrawString(fmt.Sprintf("%d", d))

	dst := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	draw.CatmullRom.Scale(dst, dst.Bounds(), glyph, glyph.Bounds(), draw.Src, nil)

	b := NewPattern(tensor.FromImage(dst, bands))
	b.SetLabel(d)
	return b, nil
}

// NewQR encodes content as a QR code of size x size pixels; dark modules
// are 1, light ones 0.
func NewQR(content string, size, bands int) (*Blob, error) {
	if size <= 0 || bands <= 0 {
		return nil, fmt.Errorf("blob: invalid qr shape %dx%d", size, bands)
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("blob: qr encode: %w", err)
	}
	q.DisableBorder = true

	// Image never renders below one pixel per module, so draw at the
	// natural size and resample
	modules := q.Image(0)
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), modules, modules.Bounds(), draw.Src, nil)

	a := tensor.FromImage(dst, bands)
	for i, v := range a.Data {
		a.Data[i] = 1 - v
	}
	return NewPattern(a), nil
}

// SetLabel attaches a class label in [0, NumLabels).
func (b *Blob) SetLabel(label int) {
	b.label = label
	b.labeled = true
}

// Label returns the class label, if any.
func (b *Blob) Label() (int, bool) {
	return b.label, b.labeled
}

// SetSerie drives the blob with s. The series must provide one value per
// band, or a single value for all of them.
func (b *Blob) SetSerie(s *Serie) error {
	if s != nil && s.Bands() != 1 && s.Bands() != b.pattern.C {
		return fmt.Errorf("blob: serie has %d bands, pattern has %d", s.Bands(), b.pattern.C)
	}
	b.serie = s
	return nil
}

// Size returns the pattern's (width, height).
func (b *Blob) Size() image.Point {
	return image.Pt(b.pattern.W, b.pattern.H)
}

// Pattern returns the base pattern. It must not be modified.
func (b *Blob) Pattern() *tensor.Array {
	return b.pattern
}

func (b *Blob) ID() (int, bool) { return b.id, b.hasID }

func (b *Blob) SetID(id int) {
	b.id = id
	b.hasID = true
}

func (b *Blob) Bands() int { return b.pattern.C }

func (b *Blob) Horizon() (int, bool) {
	if b.serie == nil {
		return 0, false
	}
	return b.serie.Horizon(), true
}

func (b *Blob) MarkRegistered() { b.registered = true }

func (b *Blob) Registered() bool { return b.registered }

// FrameAt returns the pattern scaled by the series values of step.
func (b *Blob) FrameAt(step int) (*tensor.Array, error) {
	if step < 0 {
		return nil, fmt.Errorf("blob: negative step %d", step)
	}
	frame := b.pattern.Clone()
	if b.serie == nil {
		return frame, nil
	}
	factors, err := b.serie.At(step)
	if err != nil {
		return nil, err
	}
	frame.Scale(factors)
	return frame, nil
}

// AnnotationMask marks pixels where any band is positive in channel 0 and
// the blob's normalized label in channel 1.
func (b *Blob) AnnotationMask(frame *tensor.Array) *tensor.Array {
	mask := tensor.New(frame.W, frame.H, scene.AnnotationBands)
	value := 1.0
	if b.labeled {
		value = float64(b.label+1) / NumLabels
	}
	for x := 0; x < frame.W; x++ {
		for y := 0; y < frame.H; y++ {
			for _, v := range frame.Pixel(x, y) {
				if v > 0 {
					mask.Set(x, y, 0, 1)
					mask.Set(x, y, 1, value)
					break
				}
			}
		}
	}
	return mask
}

// derive returns a copy of b carrying pattern, keeping label and series but
// not registration.
func (b *Blob) derive(pattern *tensor.Array) *Blob {
	return &Blob{
		id:      b.id,
		hasID:   b.hasID,
		label:   b.label,
		labeled: b.labeled,
		pattern: pattern,
		serie:   b.serie,
	}
}
