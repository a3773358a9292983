package blob

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/gween/ease"

	"github.com/ivlev/toyscene/internal/scene"
	"github.com/ivlev/toyscene/internal/tensor"
)

func TestNewDigit(t *testing.T) {
	for d := 0; d < NumLabels; d++ {
		b, err := NewDigit(d, image.Pt(12, 16), 3)
		require.NoError(t, err)
		assert.Equal(t, image.Pt(12, 16), b.Size())
		assert.Equal(t, 3, b.Bands())

		label, ok := b.Label()
		assert.True(t, ok)
		assert.Equal(t, d, label)
		assert.Greater(t, b.Pattern().Max(), 0.0, "digit %d renders nothing", d)
		assert.LessOrEqual(t, b.Pattern().Max(), 1.0)
	}

	_, err := NewDigit(10, image.Pt(8, 8), 1)
	assert.Error(t, err)
	_, err = NewDigit(1, image.Pt(0, 8), 1)
	assert.Error(t, err)
}

func TestNewQR(t *testing.T) {
	b, err := NewQR("toyscene", 25, 1)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(25, 25), b.Size())
	_, labeled := b.Label()
	assert.False(t, labeled)

	var dark, light int
	for _, v := range b.Pattern().Data {
		switch v {
		case 1:
			dark++
		case 0:
			light++
		}
	}
	assert.Positive(t, dark)
	assert.Positive(t, light)
}

func TestNewQRHonorsSmallSizes(t *testing.T) {
	for _, size := range []int{6, 12, 20} {
		b, err := NewQR("toyscene/0/0", size, 3)
		require.NoError(t, err)
		assert.Equal(t, image.Pt(size, size), b.Size())
		assert.Equal(t, 1.0, b.Pattern().Max())
	}
}

func TestStaticBlobHasNoHorizon(t *testing.T) {
	b := NewPattern(tensor.Full(2, 2, 1, 0.5))
	_, ok := b.Horizon()
	assert.False(t, ok)

	f, err := b.FrameAt(1000)
	require.NoError(t, err)
	assert.Equal(t, 0.5, f.At(1, 1, 0))

	_, err = b.FrameAt(-1)
	assert.Error(t, err)
}

func TestFrameAtScalesBySerie(t *testing.T) {
	b := NewPattern(tensor.Full(2, 2, 2, 1))
	s, err := TweenSerie(3, []float64{0, 1}, []float64{1, 0}, ease.Linear)
	require.NoError(t, err)
	require.NoError(t, b.SetSerie(s))

	h, ok := b.Horizon()
	assert.True(t, ok)
	assert.Equal(t, 3, h)

	f0, err := b.FrameAt(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, f0.Pixel(0, 0))

	f2, err := b.FrameAt(2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, f2.Pixel(1, 1), 1e-6)

	_, err = b.FrameAt(3)
	assert.ErrorIs(t, err, scene.ErrHorizonExhausted)

	// The base pattern is never modified
	assert.Equal(t, 1.0, b.Pattern().At(0, 0, 0))
}

func TestSetSerieBandMismatch(t *testing.T) {
	b := NewPattern(tensor.New(2, 2, 3))
	assert.Error(t, b.SetSerie(ConstantSerie(2, 0.1, 0.2)))
	assert.NoError(t, b.SetSerie(ConstantSerie(2, 0.5)))
	assert.NoError(t, b.SetSerie(nil))
}

func TestAnnotationMask(t *testing.T) {
	pattern := tensor.New(3, 1, 2)
	pattern.Set(1, 0, 1, 0.2)
	pattern.Set(2, 0, 0, 0.9)

	b := NewPattern(pattern)
	mask := b.AnnotationMask(pattern)
	assert.Equal(t, scene.AnnotationBands, mask.C)
	assert.Equal(t, []float64{0, 0}, mask.Pixel(0, 0))
	assert.Equal(t, []float64{1, 1}, mask.Pixel(1, 0))

	b.SetLabel(4)
	mask = b.AnnotationMask(pattern)
	assert.Equal(t, []float64{1, 0.5}, mask.Pixel(2, 0))
}

func TestBlobRegistersInScene(t *testing.T) {
	s, err := scene.New(scene.Options{Width: 20, Height: 20, Bands: 1, Horizon: 4})
	require.NoError(t, err)

	short, err := NewDigit(3, image.Pt(6, 6), 1)
	require.NoError(t, err)
	require.NoError(t, short.SetSerie(ConstantSerie(2, 1)))
	_, err = s.Register(short, image.Pt(10, 10))
	assert.ErrorIs(t, err, scene.ErrCompatibility)

	b, err := NewDigit(3, image.Pt(6, 6), 1)
	require.NoError(t, err)
	id, err := s.Register(b, image.Pt(10, 10))
	require.NoError(t, err)
	got, ok := b.ID()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.True(t, b.Registered())
}

func TestTweenSerieEndpoints(t *testing.T) {
	s, err := TweenSerie(5, []float64{0.2}, []float64{1.0}, ease.InOutQuad)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Horizon())
	assert.Equal(t, 1, s.Bands())

	first, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2}, first)
	last, err := s.At(4)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, last[0], 1e-6)

	prev := first[0]
	for step := 1; step < 5; step++ {
		v, err := s.At(step)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v[0], prev-1e-9)
		prev = v[0]
	}

	_, err = s.At(5)
	assert.ErrorIs(t, err, scene.ErrHorizonExhausted)
}

func TestTweenSerieSingleStep(t *testing.T) {
	s, err := TweenSerie(1, []float64{0.3}, []float64{0.9}, nil)
	require.NoError(t, err)
	v, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3}, v)
}

func TestTweenSerieInvalid(t *testing.T) {
	_, err := TweenSerie(0, []float64{0}, []float64{1}, nil)
	assert.Error(t, err)
	_, err = TweenSerie(3, nil, []float64{1}, nil)
	assert.Error(t, err)
	_, err = TweenSerie(3, []float64{0, 0}, []float64{1, 1, 1}, nil)
	assert.Error(t, err)
}

func TestEaseByName(t *testing.T) {
	for _, name := range []string{"", "linear", "inOutQuad", "OUTBOUNCE"} {
		fn, err := EaseByName(name)
		require.NoError(t, err, name)
		assert.NotNil(t, fn)
	}
	_, err := EaseByName("wobble")
	assert.Error(t, err)
}
