package blob

import (
	"fmt"
	"strings"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/ivlev/toyscene/internal/scene"
)

// Serie is a per-band intensity time series: values[t][c] scales band c of
// the blob's pattern at step t.
type Serie struct {
	values [][]float64
}

// ConstantSerie repeats values for horizon steps.
func ConstantSerie(horizon int, values ...float64) *Serie {
	if len(values) == 0 {
		values = []float64{1}
	}
	s := &Serie{values: make([][]float64, horizon)}
	for t := range s.values {
		s.values[t] = append([]float64(nil), values...)
	}
	return s
}

// TweenSerie eases every band from from[c] to to[c] over horizon steps.
// A single value in from or to is broadcast across bands.
func TweenSerie(horizon int, from, to []float64, fn ease.TweenFunc) (*Serie, error) {
	if horizon <= 0 {
		return nil, fmt.Errorf("blob: serie horizon must be positive, got %d", horizon)
	}
	if len(from) == 0 || len(to) == 0 {
		return nil, fmt.Errorf("blob: serie needs start and end values")
	}
	bands := max(len(from), len(to))
	if (len(from) != 1 && len(from) != bands) || (len(to) != 1 && len(to) != bands) {
		return nil, fmt.Errorf("blob: serie bounds have %d and %d values", len(from), len(to))
	}
	if fn == nil {
		fn = ease.Linear
	}

	duration := float32(horizon - 1)
	if duration <= 0 {
		duration = 1
	}

	s := &Serie{values: make([][]float64, horizon)}
	for t := range s.values {
		s.values[t] = make([]float64, bands)
	}
	for c := 0; c < bands; c++ {
		begin := from[c%len(from)]
		end := to[c%len(to)]
		tw := gween.New(float32(begin), float32(end), duration, fn)
		s.values[0][c] = begin
		for t := 1; t < horizon; t++ {
			v, _ := tw.Update(1)
			s.values[t][c] = float64(v)
		}
	}
	return s, nil
}

// Horizon is the number of steps in the series.
func (s *Serie) Horizon() int {
	return len(s.values)
}

// Bands is the number of values per step.
func (s *Serie) Bands() int {
	if len(s.values) == 0 {
		return 0
	}
	return len(s.values[0])
}

// At returns the scaling factors of step.
func (s *Serie) At(step int) ([]float64, error) {
	if step < 0 || step >= len(s.values) {
		return nil, fmt.Errorf("%w: step %d of %d", scene.ErrHorizonExhausted, step, len(s.values))
	}
	return s.values[step], nil
}

var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"inquad":     ease.InQuad,
	"outquad":    ease.OutQuad,
	"inoutquad":  ease.InOutQuad,
	"incubic":    ease.InCubic,
	"outcubic":   ease.OutCubic,
	"inoutcubic": ease.InOutCubic,
	"inoutsine":  ease.InOutSine,
	"outbounce":  ease.OutBounce,
	"outelastic": ease.OutElastic,
}

// EaseByName resolves an easing such as "inOutQuad". Empty means linear.
func EaseByName(name string) (ease.TweenFunc, error) {
	if name == "" {
		return ease.Linear, nil
	}
	fn, ok := easings[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("blob: unknown easing %q", name)
	}
	return fn, nil
}
