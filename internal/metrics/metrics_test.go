package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ivlev/toyscene/internal/export"
	"github.com/ivlev/toyscene/internal/scene"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{context.Canceled, "canceled"},
		{fmt.Errorf("scene 2: %w", context.DeadlineExceeded), "canceled"},
		{fmt.Errorf("%w: 3 bands", scene.ErrCompatibility), "compatibility"},
		{fmt.Errorf("engine: scene 0 object 9: %w", scene.ErrCapacity), "capacity"},
		{errors.Join(scene.ErrHorizonExhausted, errors.New("flush")), "horizon_exhausted"},
		{export.ErrEncodingCompatibility, "encoding_compatibility"},
		{export.ErrLayoutConflict, "layout_conflict"},
		{errors.New("disk full"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	IncFramesWritten()
	ObserveScene(0.5, nil)
	ObserveScene(0.1, scene.ErrCapacity)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		"toyscene_frames_written_total",
		"toyscene_scenes_generated_total",
		`toyscene_generation_errors_total{kind="capacity"}`,
		"toyscene_scene_duration_seconds_bucket",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
