package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/toyscene/internal/config"
	"github.com/ivlev/toyscene/internal/export"
	"github.com/ivlev/toyscene/internal/scene"
)

func smallConfig(output string) *config.Config {
	cfg := config.Default()
	cfg.Output = output
	cfg.Workers = 2
	cfg.Scene.Width = 32
	cfg.Scene.Height = 32
	cfg.Scene.Horizon = 3
	cfg.Scene.Cell = [2]int{8, 8}
	cfg.Objects.Count = 5
	cfg.Objects.Size = [2]int{6, 6}
	return cfg
}

func run(t *testing.T, cfg *config.Config) []Result {
	t.Helper()
	p, err := NewProject(cfg, nil)
	require.NoError(t, err)
	results, err := p.Run(context.Background())
	require.NoError(t, err)
	return results
}

func TestSingleScene(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scene")
	results := run(t, smallConfig(out))
	require.Len(t, results, 1)
	assert.Equal(t, out, results[0].Dir)
	assert.Equal(t, 3, results[0].Frames)
	assert.Equal(t, 5, results[0].Objects)

	ds, err := export.OpenDataset(out)
	require.NoError(t, err)
	assert.Equal(t, scene.Features{Width: 32, Height: 32, NBands: 3, Horizon: 3, NDigit: 5, NFrames: 3}, ds.Index().Features)

	frame, err := ds.Frame(2)
	require.NoError(t, err)
	assert.Greater(t, frame.Max(), 0.0)
	assert.LessOrEqual(t, frame.Max(), 1.0)

	ann, err := ds.Annotation(2)
	require.NoError(t, err)
	assert.Equal(t, scene.AnnotationBands, ann.C)
}

func TestRunIsDeterministic(t *testing.T) {
	dirA := filepath.Join(t.TempDir(), "a")
	dirB := filepath.Join(t.TempDir(), "b")
	for _, dir := range []string{dirA, dirB} {
		cfg := smallConfig(dir)
		cfg.Objects.Kind = "mixed"
		cfg.Objects.Augment = config.AugmentConfig{FlipX: 0.5, Scale: []float64{0.8, 1.2}}
		run(t, cfg)
	}

	a, err := export.OpenDataset(dirA)
	require.NoError(t, err)
	b, err := export.OpenDataset(dirB)
	require.NoError(t, err)
	for step := 0; step < 3; step++ {
		fa, err := a.Frame(step)
		require.NoError(t, err)
		fb, err := b.Frame(step)
		require.NoError(t, err)
		assert.True(t, fa.Equal(fb), "step %d differs", step)
	}
}

func TestBatchScenes(t *testing.T) {
	out := filepath.Join(t.TempDir(), "batch")
	cfg := smallConfig(out)
	cfg.Scenes = 3
	cfg.Encoding = "png"
	results := run(t, cfg)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, cfg.Seed+int64(i), r.Seed)
		assert.Equal(t, filepath.Join(out, fmt.Sprintf("scene_%03d", i)), r.Dir)
		_, err := os.Stat(filepath.Join(r.Dir, export.FramesDir, "frame_0.png"))
		assert.NoError(t, err)
	}

	s0, err := export.OpenDataset(results[0].Dir)
	require.NoError(t, err)
	s1, err := export.OpenDataset(results[1].Dir)
	require.NoError(t, err)
	f0, err := s0.Frame(0)
	require.NoError(t, err)
	f1, err := s1.Frame(0)
	require.NoError(t, err)
	assert.False(t, f0.Equal(f1), "scenes with different seeds should differ")
}

func TestStaticObjects(t *testing.T) {
	cfg := smallConfig(filepath.Join(t.TempDir(), "static"))
	cfg.Objects.Serie = config.SerieConfig{Static: true}
	cfg.Scene.Placement = "random"
	results := run(t, cfg)
	assert.Equal(t, 3, results[0].Frames)
}

func TestGridCapacity(t *testing.T) {
	cfg := smallConfig(filepath.Join(t.TempDir(), "full"))
	cfg.Objects.Count = 17 // 16 anchors on a 32x32 canvas with 8x8 cells

	p, err := NewProject(cfg, nil)
	require.NoError(t, err)
	results, err := p.Run(context.Background())
	assert.ErrorIs(t, err, scene.ErrCapacity)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, scene.ErrCapacity)
}

func TestImageEncodingNeedsThreeBands(t *testing.T) {
	cfg := smallConfig(filepath.Join(t.TempDir(), "gray"))
	cfg.Scene.Bands = 1
	cfg.Encoding = "jpg"
	_, err := NewProject(cfg, nil)
	assert.ErrorIs(t, err, export.ErrEncodingCompatibility)

	cfg.Encoding = "raw"
	run(t, cfg)
}

func TestInvalidConfig(t *testing.T) {
	cfg := smallConfig("")
	_, err := NewProject(cfg, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = smallConfig(t.TempDir())
	cfg.Encoding = "gif"
	_, err = NewProject(cfg, nil)
	assert.ErrorIs(t, err, export.ErrUnknownEncoding)
}

func TestExistingOutputRefused(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scene")
	run(t, smallConfig(out))

	p, err := NewProject(smallConfig(out), nil)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, export.ErrLayoutConflict)

	cfg := smallConfig(out)
	cfg.Overwrite = true
	run(t, cfg)
}

func TestCanceledRunFlushesIndex(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scene")
	p, err := NewProject(smallConfig(out), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	idx, err := export.LoadIndex(filepath.Join(out, export.IndexName))
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Features.NFrames)
}

func TestSceneDir(t *testing.T) {
	cfg := smallConfig("out")
	p := &Project{Config: cfg}
	assert.Equal(t, "out", p.SceneDir(0))
	cfg.Scenes = 2
	assert.Equal(t, filepath.Join("out", "scene_001"), p.SceneDir(1))
}

func TestPreviewMatchesFirstFrame(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scene")
	cfg := smallConfig(out)
	cfg.Objects.Serie = config.SerieConfig{Static: true}
	p, err := NewProject(cfg, nil)
	require.NoError(t, err)

	s, err := p.BuildScene(0)
	require.NoError(t, err)
	view, err := s.View()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "preview.npy")
	require.NoError(t, export.SaveNPY(path, view))

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	ds, err := export.OpenDataset(out)
	require.NoError(t, err)
	frame, err := ds.Frame(0)
	require.NoError(t, err)

	saved, err := export.LoadNPY(path)
	require.NoError(t, err)
	assert.True(t, saved.Equal(frame))
}
