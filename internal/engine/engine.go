package engine

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/toyscene/internal/blob"
	"github.com/ivlev/toyscene/internal/config"
	"github.com/ivlev/toyscene/internal/export"
	"github.com/ivlev/toyscene/internal/metrics"
	"github.com/ivlev/toyscene/internal/scene"
	"github.com/ivlev/toyscene/internal/source"
	"github.com/ivlev/toyscene/internal/system"
)

// Project генерирует cfg.Scenes независимых сцен. Сцена i получает зерно
// cfg.Seed+i, поэтому запуск воспроизводим посценно.
type Project struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *system.ArrayPool
	encoding export.Encoding
	bgs      *source.ImageSource
}

// Result описывает одну сгенерированную сцену.
type Result struct {
	Index    int
	Dir      string
	Seed     int64
	Objects  int
	Frames   int
	Duration time.Duration
	Err      error
}

func NewProject(cfg *config.Config, logger *slog.Logger) (*Project, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := export.ParseEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	if enc.IsImage() && cfg.Scene.Bands != 3 {
		return nil, fmt.Errorf("%w: %s frames need 3 bands, scene has %d",
			export.ErrEncodingCompatibility, enc, cfg.Scene.Bands)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &Project{
		Config:   cfg,
		Logger:   logger,
		Pool:     system.NewArrayPool(),
		encoding: enc,
	}
	if path := cfg.Scene.Background.Image; path != "" {
		p.bgs, err = source.NewImageSource(path)
		if err != nil {
			return nil, fmt.Errorf("engine: background source: %w", err)
		}
	}
	return p, nil
}

// SceneDir - директория сцены i. Единственная сцена пишется прямо в output.
func (p *Project) SceneDir(i int) string {
	if p.Config.Scenes == 1 {
		return p.Config.Output
	}
	return filepath.Join(p.Config.Output, fmt.Sprintf("scene_%03d", i))
}

func (p *Project) jitter() scene.Distribution {
	j := p.Config.Scene.Jitter
	switch strings.ToLower(j.Kind) {
	case "normal":
		return scene.Normal(j.Mean, j.Std)
	case "uniform":
		return scene.UniformRange(j.Min, j.Max)
	default:
		return nil
	}
}

func (p *Project) transform() scene.Transform {
	a := p.Config.Objects.Augment
	var ops []blob.Op
	if a.FlipX > 0 {
		ops = append(ops, blob.FlipX(a.FlipX))
	}
	if a.FlipY > 0 {
		ops = append(ops, blob.FlipY(a.FlipY))
	}
	if len(a.Scale) == 2 {
		ops = append(ops, blob.Scale(a.Scale[0], a.Scale[1]))
	}
	if len(ops) == 0 {
		return nil
	}
	return blob.Augment(ops...)
}

func (p *Project) serie() (*blob.Serie, error) {
	sc := p.Config.Objects.Serie
	if sc.Static {
		return nil, nil
	}
	fn, err := blob.EaseByName(sc.Ease)
	if err != nil {
		return nil, err
	}
	return blob.TweenSerie(p.Config.Scene.Horizon, sc.From, sc.To, fn)
}

func (p *Project) newObject(i, k int, rng *rand.Rand, serie *blob.Serie) (*blob.Blob, error) {
	o := p.Config.Objects
	bands := p.Config.Scene.Bands
	size := image.Pt(o.Size[0], o.Size[1])

	kind := strings.ToLower(o.Kind)
	if kind == "mixed" {
		kind = "digit"
		if rng.Intn(2) == 1 {
			kind = "qr"
		}
	}

	var b *blob.Blob
	var err error
	switch kind {
	case "qr":
		b, err = blob.NewQR(fmt.Sprintf("toyscene/%d/%d", i, k), min(size.X, size.Y), bands)
	default:
		b, err = blob.NewDigit(rng.Intn(blob.NumLabels), size, bands)
	}
	if err != nil {
		return nil, err
	}
	if err := b.SetSerie(serie); err != nil {
		return nil, err
	}
	return b, nil
}

// BuildScene создает сцену i и регистрирует ее объекты.
func (p *Project) BuildScene(i int) (*scene.Scene, error) {
	cfg := p.Config
	placement, err := scene.ParsePlacement(cfg.Scene.Placement)
	if err != nil {
		return nil, err
	}

	opts := scene.Options{
		Width:      cfg.Scene.Width,
		Height:     cfg.Scene.Height,
		Bands:      cfg.Scene.Bands,
		Horizon:    cfg.Scene.Horizon,
		Placement:  placement,
		Cell:       image.Pt(cfg.Scene.Cell[0], cfg.Scene.Cell[1]),
		Jitter:     p.jitter(),
		Background: cfg.Scene.Background.Fill,
		Transform:  p.transform(),
		Rand:       scene.NewRand(cfg.Seed + int64(i)),
		Allocator:  p.Pool,
		Logger:     p.Logger.With("scene", i),
	}
	if p.bgs != nil {
		bg, err := p.bgs.Background(i, opts.Width, opts.Height, opts.Bands)
		if err != nil {
			return nil, err
		}
		opts.BackgroundArray = bg
	}

	s, err := scene.New(opts)
	if err != nil {
		return nil, err
	}

	serie, err := p.serie()
	if err != nil {
		return nil, err
	}
	// Содержимое объектов берется из отдельного потока, размещение зависит
	// только от генератора сцены
	contentRng := scene.NewRand(cfg.Seed + int64(i) + 1<<32)
	for k := 0; k < cfg.Objects.Count; k++ {
		obj, err := p.newObject(i, k, contentRng, serie)
		if err != nil {
			return nil, err
		}
		if _, err := s.RandomRegister(obj); err != nil {
			return nil, fmt.Errorf("engine: scene %d object %d: %w", i, k, err)
		}
	}
	return s, nil
}

func (p *Project) runScene(ctx context.Context, i int) Result {
	res := Result{Index: i, Dir: p.SceneDir(i), Seed: p.Config.Seed + int64(i)}
	start := time.Now()
	defer func() {
		res.Duration = time.Since(start)
		metrics.ObserveScene(res.Duration.Seconds(), res.Err)
	}()

	s, err := p.BuildScene(i)
	if err != nil {
		res.Err = err
		return res
	}
	res.Objects = s.Len()

	var frames atomic.Int64
	exp := export.NewExporter(res.Dir, p.encoding, p.Config.Overwrite, p.Logger)
	exp.OnFrame = func(string) {
		frames.Add(1)
		metrics.IncFramesWritten()
	}

	res.Err = s.Generate(ctx, exp)
	res.Frames = int(frames.Load())
	return res
}

// Run генерирует все сцены в пуле из cfg.Workers горутин. Внутри сцены
// шаги идут последовательно. Первая ошибка отменяет незавершенные сцены;
// результаты возвращаются в порядке сцен.
func (p *Project) Run(ctx context.Context) ([]Result, error) {
	cfg := p.Config
	workers := min(cfg.Workers, cfg.Scenes)

	report, err := system.CheckMemory(cfg.Scene.Width, cfg.Scene.Height, cfg.Scene.Bands, scene.AnnotationBands, workers)
	if err != nil {
		p.Logger.Debug("memory preflight skipped", "error", err)
	} else if !report.Fits() {
		p.Logger.Warn("generation may exceed available memory", "report", report.String())
	}

	p.Logger.Info("project started",
		"scenes", cfg.Scenes, "workers", workers, "output", cfg.Output,
		"encoding", p.encoding.String(), "seed", cfg.Seed)

	results := make([]Result, cfg.Scenes)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < cfg.Scenes; i++ {
		i := i
		g.Go(func() error {
			res := p.runScene(gctx, i)
			results[i] = res
			if res.Err != nil {
				p.Logger.Error("scene failed", "scene", i, "dir", res.Dir, "error", res.Err)
				return fmt.Errorf("scene %d: %w", i, res.Err)
			}
			p.Logger.Info("scene generated", "scene", i, "dir", res.Dir,
				"frames", res.Frames, "objects", res.Objects, "duration", res.Duration)
			return nil
		})
	}

	err = g.Wait()
	return results, err
}
