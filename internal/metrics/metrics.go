package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivlev/toyscene/internal/export"
	"github.com/ivlev/toyscene/internal/scene"
)

var (
	framesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toyscene_frames_written_total",
			Help: "Total number of frames persisted.",
		},
	)

	scenesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toyscene_scenes_generated_total",
			Help: "Total number of scenes generated to completion.",
		},
	)

	generationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toyscene_generation_errors_total",
			Help: "Total number of failed scene generations by error kind.",
		},
		[]string{"kind"},
	)

	sceneDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "toyscene_scene_duration_seconds",
			Help:    "Wall time to generate one scene.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
	)
)

func init() {
	prometheus.MustRegister(framesWrittenTotal)
	prometheus.MustRegister(scenesGeneratedTotal)
	prometheus.MustRegister(generationErrorsTotal)
	prometheus.MustRegister(sceneDurationSeconds)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncFramesWritten() {
	framesWrittenTotal.Inc()
}

// ObserveScene records one finished generation.
func ObserveScene(seconds float64, err error) {
	sceneDurationSeconds.Observe(seconds)
	if err == nil {
		scenesGeneratedTotal.Inc()
		return
	}
	generationErrorsTotal.WithLabelValues(ErrorKind(err)).Inc()
}

// ErrorKind maps an error to a bounded label value.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, scene.ErrCompatibility):
		return "compatibility"
	case errors.Is(err, scene.ErrCapacity):
		return "capacity"
	case errors.Is(err, scene.ErrHorizonExhausted):
		return "horizon_exhausted"
	case errors.Is(err, export.ErrEncodingCompatibility):
		return "encoding_compatibility"
	case errors.Is(err, export.ErrLayoutConflict):
		return "layout_conflict"
	default:
		return "other"
	}
}
