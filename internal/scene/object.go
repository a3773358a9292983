package scene

import (
	"math/rand"

	"github.com/ivlev/toyscene/internal/tensor"
)

// Object is a moving foreground element that the scene composites at
// every timestep. Frames are addressed by step, objects keep no cursor.
type Object interface {
	// ID returns the object's id and whether one has been assigned.
	ID() (int, bool)
	SetID(id int)

	// Bands is the number of channels of every frame the object produces.
	Bands() int

	// Horizon returns the number of available steps. ok is false when the
	// object has no time dimension and can produce any step.
	Horizon() (steps int, ok bool)

	// FrameAt returns the object's patch at step, valued in [0, 1].
	FrameAt(step int) (*tensor.Array, error)

	// AnnotationMask derives a two-channel label patch from a frame
	// previously returned by FrameAt.
	AnnotationMask(frame *tensor.Array) *tensor.Array

	MarkRegistered()
	Registered() bool
}

// Transform is applied to every object at registration time. It may return
// a new object; rng is the scene's generator.
type Transform func(obj Object, rng *rand.Rand) (Object, error)

// Distribution draws one random sample from rng.
type Distribution func(rng *rand.Rand) float64

// Uniform samples [0, 1).
func Uniform() Distribution {
	return func(rng *rand.Rand) float64 {
		return rng.Float64()
	}
}

// UniformRange samples [lo, hi).
func UniformRange(lo, hi float64) Distribution {
	return func(rng *rand.Rand) float64 {
		return lo + rng.Float64()*(hi-lo)
	}
}

// Normal samples a gaussian with the given mean and standard deviation.
func Normal(mean, std float64) Distribution {
	return func(rng *rand.Rand) float64 {
		return mean + rng.NormFloat64()*std
	}
}
