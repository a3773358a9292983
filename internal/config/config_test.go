package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `
output: out/batch
scenes: 4
scene:
  width: 128
  placement: random
objects:
  kind: qr
  count: 3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out/batch", cfg.Output)
	assert.Equal(t, 4, cfg.Scenes)
	assert.Equal(t, 128, cfg.Scene.Width)
	assert.Equal(t, 64, cfg.Scene.Height, "unset keys keep their default")
	assert.Equal(t, "random", cfg.Scene.Placement)
	assert.Equal(t, "qr", cfg.Objects.Kind)
	assert.Equal(t, 3, cfg.Objects.Count)
	assert.Equal(t, "inOutQuad", cfg.Objects.Serie.Ease)
	assert.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Seed = 7
	cfg.Objects.Augment = AugmentConfig{FlipX: 0.5, Scale: []float64{0.8, 1.2}}
	cfg.Scene.Background.Fill = []float64{0.1, 0.2, 0.3}
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scene: [1, 2"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no output", func(c *Config) { c.Output = "" }},
		{"zero scenes", func(c *Config) { c.Scenes = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative width", func(c *Config) { c.Scene.Width = -1 }},
		{"zero horizon", func(c *Config) { c.Scene.Horizon = 0 }},
		{"bad placement", func(c *Config) { c.Scene.Placement = "spiral" }},
		{"grid without cell", func(c *Config) { c.Scene.Cell = [2]int{0, 8} }},
		{"bad jitter", func(c *Config) { c.Scene.Jitter.Kind = "cauchy" }},
		{"inverted jitter", func(c *Config) { c.Scene.Jitter = DistConfig{Kind: "uniform", Min: 2, Max: -2} }},
		{"fill length", func(c *Config) { c.Scene.Background.Fill = []float64{0, 0} }},
		{"fill range", func(c *Config) { c.Scene.Background.Fill = []float64{1.2} }},
		{"bad kind", func(c *Config) { c.Objects.Kind = "star" }},
		{"zero size", func(c *Config) { c.Objects.Size = [2]int{0, 4} }},
		{"missing serie", func(c *Config) { c.Objects.Serie.To = nil }},
		{"bad scale", func(c *Config) { c.Objects.Augment.Scale = []float64{1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestStaticSerieNeedsNoBounds(t *testing.T) {
	cfg := Default()
	cfg.Objects.Serie = SerieConfig{Static: true}
	assert.NoError(t, cfg.Validate())
}
