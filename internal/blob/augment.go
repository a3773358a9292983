package blob

import (
	"fmt"
	"image"
	"math"
	"math/rand"

	"golang.org/x/image/draw"

	"github.com/ivlev/toyscene/internal/scene"
	"github.com/ivlev/toyscene/internal/tensor"
)

// Op is one registration-time augmentation. Every op draws the same number
// of samples from rng whatever it decides, so the sequence stays fixed for
// a given seed.
type Op func(pattern *tensor.Array, rng *rand.Rand) (*tensor.Array, error)

// Augment chains ops into a scene transform. Objects that are not blobs pass
// through unchanged.
func Augment(ops ...Op) scene.Transform {
	return func(obj scene.Object, rng *rand.Rand) (scene.Object, error) {
		b, ok := obj.(*Blob)
		if !ok {
			return obj, nil
		}
		pattern := b.pattern.Clone()
		for _, op := range ops {
			var err error
			if pattern, err = op(pattern, rng); err != nil {
				return nil, err
			}
		}
		return b.derive(pattern), nil
	}
}

// FlipX mirrors the pattern horizontally with probability p.
func FlipX(p float64) Op {
	return func(a *tensor.Array, rng *rand.Rand) (*tensor.Array, error) {
		if rng.Float64() >= p {
			return a, nil
		}
		out := tensor.New(a.W, a.H, a.C)
		for x := 0; x < a.W; x++ {
			for y := 0; y < a.H; y++ {
				copy(out.Pixel(a.W-1-x, y), a.Pixel(x, y))
			}
		}
		return out, nil
	}
}

// FlipY mirrors the pattern vertically with probability p.
func FlipY(p float64) Op {
	return func(a *tensor.Array, rng *rand.Rand) (*tensor.Array, error) {
		if rng.Float64() >= p {
			return a, nil
		}
		out := tensor.New(a.W, a.H, a.C)
		for x := 0; x < a.W; x++ {
			for y := 0; y < a.H; y++ {
				copy(out.Pixel(x, a.H-1-y), a.Pixel(x, y))
			}
		}
		return out, nil
	}
}

// Scale resizes the pattern by a factor drawn uniformly from [lo, hi).
func Scale(lo, hi float64) Op {
	return func(a *tensor.Array, rng *rand.Rand) (*tensor.Array, error) {
		if lo <= 0 || hi < lo {
			return nil, fmt.Errorf("blob: invalid scale range [%v, %v)", lo, hi)
		}
		f := lo + rng.Float64()*(hi-lo)
		w := max(1, int(math.Round(float64(a.W)*f)))
		h := max(1, int(math.Round(float64(a.H)*f)))
		return Resize(a, w, h), nil
	}
}

// Resize resamples every band of a to w x h with bilinear interpolation.
func Resize(a *tensor.Array, w, h int) *tensor.Array {
	out := tensor.New(w, h, a.C)
	if w == a.W && h == a.H {
		copy(out.Data, a.Data)
		return out
	}
	for c := 0; c < a.C; c++ {
		src := a.Band(c)
		dst := image.NewGray16(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		out.SetBand(c, dst)
	}
	return out
}
