// Package config читает и пишет YAML-файлы, описывающие запуск генерации.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Output      string        `yaml:"output"`
	Overwrite   bool          `yaml:"overwrite"`
	Encoding    string        `yaml:"encoding"`
	Scenes      int           `yaml:"scenes"`
	Workers     int           `yaml:"workers"`
	Seed        int64         `yaml:"seed"`
	LogLevel    string        `yaml:"log_level"`
	MetricsAddr string        `yaml:"metrics_addr"`
	Scene       SceneConfig   `yaml:"scene"`
	Objects     ObjectsConfig `yaml:"objects"`
}

type SceneConfig struct {
	Width      int              `yaml:"width"`
	Height     int              `yaml:"height"`
	Bands      int              `yaml:"bands"`
	Horizon    int              `yaml:"horizon"`
	Placement  string           `yaml:"placement"` // random, grid
	Cell       [2]int           `yaml:"cell"`
	Jitter     DistConfig       `yaml:"jitter"`
	Background BackgroundConfig `yaml:"background"`
}

// DistConfig задает распределение: none, uniform (Min, Max) или
// normal (Mean, Std).
type DistConfig struct {
	Kind string  `yaml:"kind"`
	Mean float64 `yaml:"mean,omitempty"`
	Std  float64 `yaml:"std,omitempty"`
	Min  float64 `yaml:"min,omitempty"`
	Max  float64 `yaml:"max,omitempty"`
}

type BackgroundConfig struct {
	Fill  []float64 `yaml:"fill"`
	Image string    `yaml:"image,omitempty"` // файл или директория, по кругу на сцену
}

type ObjectsConfig struct {
	Count   int           `yaml:"count"`
	Kind    string        `yaml:"kind"` // digit, qr, mixed
	Size    [2]int        `yaml:"size"`
	Serie   SerieConfig   `yaml:"serie"`
	Augment AugmentConfig `yaml:"augment"`
}

// SerieConfig управляет яркостью объектов; Static объекты без времени.
type SerieConfig struct {
	Static bool      `yaml:"static"`
	From   []float64 `yaml:"from"`
	To     []float64 `yaml:"to"`
	Ease   string    `yaml:"ease"`
}

type AugmentConfig struct {
	FlipX float64   `yaml:"flip_x"`
	FlipY float64   `yaml:"flip_y"`
	Scale []float64 `yaml:"scale,omitempty"` // [min, max)
}

// Default возвращает конфигурацию одной 3-канальной сцены 64x64 с 8 цифрами.
func Default() *Config {
	return &Config{
		Output:   "output/scene",
		Encoding: "raw",
		Scenes:   1,
		Workers:  runtime.NumCPU(),
		Seed:     42,
		LogLevel: "info",
		Scene: SceneConfig{
			Width:     64,
			Height:    64,
			Bands:     3,
			Horizon:   10,
			Placement: "grid",
			Cell:      [2]int{16, 16},
			Jitter:    DistConfig{Kind: "normal", Mean: 0, Std: 2},
			Background: BackgroundConfig{
				Fill: []float64{0},
			},
		},
		Objects: ObjectsConfig{
			Count: 8,
			Kind:  "digit",
			Size:  [2]int{12, 12},
			Serie: SerieConfig{
				From: []float64{0.2},
				To:   []float64{1.0},
				Ease: "inOutQuad",
			},
		},
	}
}

// Load накладывает YAML-файл поверх Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save сохраняет cfg в YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate проверяет диапазоны и перечисления.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Output == "" {
		add("output is empty")
	}
	if c.Scenes <= 0 {
		add("scenes must be positive, got %d", c.Scenes)
	}
	if c.Workers <= 0 {
		add("workers must be positive, got %d", c.Workers)
	}

	s := c.Scene
	if s.Width <= 0 || s.Height <= 0 {
		add("scene size must be positive, got %dx%d", s.Width, s.Height)
	}
	if s.Bands <= 0 {
		add("scene bands must be positive, got %d", s.Bands)
	}
	if s.Horizon <= 0 {
		add("scene horizon must be positive, got %d", s.Horizon)
	}
	switch strings.ToLower(s.Placement) {
	case "random", "":
	case "grid":
		if s.Cell[0] <= 0 || s.Cell[1] <= 0 {
			add("grid cell must be positive, got %dx%d", s.Cell[0], s.Cell[1])
		}
	default:
		add("unknown placement %q", s.Placement)
	}
	switch strings.ToLower(s.Jitter.Kind) {
	case "", "none", "normal":
	case "uniform":
		if s.Jitter.Max < s.Jitter.Min {
			add("jitter max %v below min %v", s.Jitter.Max, s.Jitter.Min)
		}
	default:
		add("unknown jitter kind %q", s.Jitter.Kind)
	}
	if n := len(s.Background.Fill); n > 1 && n != s.Bands {
		add("background fill has %d values for %d bands", n, s.Bands)
	}
	for _, v := range s.Background.Fill {
		if v < 0 || v > 1 {
			add("background fill %v outside [0, 1]", v)
		}
	}

	o := c.Objects
	if o.Count < 0 {
		add("object count must not be negative, got %d", o.Count)
	}
	switch strings.ToLower(o.Kind) {
	case "digit", "qr", "mixed":
	default:
		add("unknown object kind %q", o.Kind)
	}
	if o.Size[0] <= 0 || o.Size[1] <= 0 {
		add("object size must be positive, got %dx%d", o.Size[0], o.Size[1])
	}
	if !o.Serie.Static && (len(o.Serie.From) == 0 || len(o.Serie.To) == 0) {
		add("serie needs from and to values")
	}
	if sc := o.Augment.Scale; len(sc) != 0 && (len(sc) != 2 || sc[0] <= 0 || sc[1] < sc[0]) {
		add("augment scale must be [min, max) with 0 < min <= max, got %v", sc)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
