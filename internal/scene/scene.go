// Package scene composites moving objects onto a background canvas over a
// fixed time horizon, producing frames and pixel-aligned annotation masks.
package scene

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ivlev/toyscene/internal/tensor"
)

// AnnotationBands is the channel count of annotation masks.
const AnnotationBands = 2

// State is a scene lifecycle stage.
type State int

const (
	StateConstructed State = iota
	StatePrepared
	StateGenerating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StatePrepared:
		return "prepared"
	case StateGenerating:
		return "generating"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Sink persists what Generate produces. export.Exporter implements it.
type Sink interface {
	Open() error
	FrameName(step int) string
	AnnotationName(step int) string
	DumpFrame(frame *tensor.Array, name string) error
	DumpAnnotation(mask *tensor.Array, name string) error
	DumpIndex(idx *Index) error
	Close() error
}

// Allocator hands out timestep accumulators. Arrays are returned with Put
// once the sink has persisted them.
type Allocator interface {
	Get(w, h, c int) *tensor.Array
	Put(a *tensor.Array)
}

// Options configures a Scene.
type Options struct {
	Width, Height int
	Bands         int
	Horizon       int

	Placement Placement
	// Cell is the grid cell size, required for PlacementGrid.
	Cell image.Point
	// Jitter perturbs grid points. Nil keeps the grid regular.
	Jitter Distribution
	// Dist drives random placement. Defaults to Uniform.
	Dist Distribution

	// Background is the per-band fill in [0, 1]. A single value is
	// broadcast. BackgroundArray, when set, takes precedence.
	Background      []float64
	BackgroundArray *tensor.Array

	Transform Transform

	// Rand is the only source of randomness. Nil seeds one from the clock.
	Rand *rand.Rand

	Allocator Allocator
	Logger    *slog.Logger
}

type record struct {
	anchor image.Point
	src    Object // as passed by the caller
	obj    Object // after the transform
}

// Scene owns a registry of objects and their anchors and drives the
// per-timestep compositing loop. It is not meant to be shared between
// goroutines; registration is rejected once generation starts.
type Scene struct {
	width, height int
	bands         int
	horizon       int
	placement     Placement
	grid          *Grid
	dist          Distribution
	fill          []float64
	bgSource      *tensor.Array
	transform     Transform
	rng           *rand.Rand
	alloc         Allocator
	logger        *slog.Logger

	mu      sync.Mutex
	state   State
	records map[int]*record
	order   []int
	nextID  int
	bg      *tensor.Array
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// New validates opts and constructs a scene. In grid mode the anchor grid
// is built and shuffled here, drawing from opts.Rand.
func New(opts Options) (*Scene, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("scene: size must be positive, got %dx%d", opts.Width, opts.Height)
	}
	if opts.Bands <= 0 {
		return nil, fmt.Errorf("scene: band count must be positive, got %d", opts.Bands)
	}
	if opts.Horizon <= 0 {
		return nil, fmt.Errorf("scene: horizon must be positive, got %d", opts.Horizon)
	}

	fill := opts.Background
	if len(fill) == 0 {
		fill = []float64{0}
	}
	if len(fill) != 1 && len(fill) != opts.Bands {
		return nil, fmt.Errorf("scene: background has %d values for %d bands", len(fill), opts.Bands)
	}
	for _, v := range fill {
		if v < 0 || v > MaxValue {
			return nil, fmt.Errorf("scene: background value %v outside [0, 1]", v)
		}
	}
	if bg := opts.BackgroundArray; bg != nil {
		if bg.W != opts.Width || bg.H != opts.Height || bg.C != opts.Bands {
			return nil, fmt.Errorf("%w: background is %dx%dx%d, scene is %dx%dx%d",
				ErrCompatibility, bg.W, bg.H, bg.C, opts.Width, opts.Height, opts.Bands)
		}
	}

	rng := opts.Rand
	if rng == nil {
		rng = NewRand(time.Now().UnixNano())
	}
	dist := opts.Dist
	if dist == nil {
		dist = Uniform()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Scene{
		width:     opts.Width,
		height:    opts.Height,
		bands:     opts.Bands,
		horizon:   opts.Horizon,
		placement: opts.Placement,
		dist:      dist,
		fill:      fill,
		bgSource:  opts.BackgroundArray,
		transform: opts.Transform,
		rng:       rng,
		alloc:     opts.Allocator,
		logger:    logger,
		records:   make(map[int]*record),
	}

	switch opts.Placement {
	case PlacementRandom:
	case PlacementGrid:
		grid, err := NewGrid(image.Pt(opts.Width, opts.Height), opts.Cell, opts.Jitter, rng)
		if err != nil {
			return nil, err
		}
		s.grid = grid
	default:
		return nil, fmt.Errorf("scene: unsupported placement %v", opts.Placement)
	}

	return s, nil
}

// Size returns the canvas (width, height).
func (s *Scene) Size() image.Point { return image.Pt(s.width, s.height) }

func (s *Scene) Bands() int { return s.bands }

func (s *Scene) Horizon() int { return s.horizon }

func (s *Scene) Placement() Placement { return s.placement }

// Grid returns the anchor grid, or nil in random mode.
func (s *Scene) Grid() *Grid { return s.grid }

// State returns the current lifecycle state.
func (s *Scene) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Len is the number of registered objects.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// IDs returns the registered ids in draw order.
func (s *Scene) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// Lookup returns the anchor and the stored (possibly transformed) object
// registered under id.
func (s *Scene) Lookup(id int) (image.Point, Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return image.Point{}, nil, false
	}
	return rec.anchor, rec.obj, true
}

func (s *Scene) checkCompatible(obj Object) error {
	if obj.Bands() != s.bands {
		return fmt.Errorf("%w: object has %d bands while scene has %d", ErrCompatibility, obj.Bands(), s.bands)
	}
	if h, ok := obj.Horizon(); ok && h < s.horizon {
		return fmt.Errorf("%w: object has a %d horizon while scene has %d", ErrCompatibility, h, s.horizon)
	}
	return nil
}

// admit checks that obj may join the registry and returns the id it will
// be stored under. A registered object is only accepted again under the
// record it was registered with.
func (s *Scene) admit(obj Object) (int, error) {
	if err := s.checkCompatible(obj); err != nil {
		return 0, err
	}
	id, hasID := obj.ID()
	if !hasID {
		return s.nextID, nil
	}
	if obj.Registered() {
		if rec, known := s.records[id]; !known || rec.src != obj {
			return 0, fmt.Errorf("%w: object %d", ErrAlreadyRegistered, id)
		}
	}
	return id, nil
}

// stage runs admission and the transform without touching the registry.
func (s *Scene) stage(obj Object) (int, Object, error) {
	if s.state != StateConstructed && s.state != StatePrepared {
		return 0, nil, fmt.Errorf("%w: cannot register while %s", ErrState, s.state)
	}
	id, err := s.admit(obj)
	if err != nil {
		return 0, nil, err
	}

	stored := obj
	if s.transform != nil {
		t, err := s.transform(obj, s.rng)
		if err != nil {
			return 0, nil, fmt.Errorf("scene: transform object %d: %w", id, err)
		}
		if t != nil {
			if err := s.checkCompatible(t); err != nil {
				return 0, nil, err
			}
			stored = t
		}
	}
	return id, stored, nil
}

func (s *Scene) commit(id int, obj, stored Object, anchor image.Point) int {
	obj.SetID(id)
	stored.SetID(id)
	if id >= s.nextID {
		s.nextID = id + 1
	}

	if rec, ok := s.records[id]; ok {
		rec.anchor = anchor
		rec.src = obj
		rec.obj = stored
	} else {
		s.records[id] = &record{anchor: anchor, src: obj, obj: stored}
		s.order = append(s.order, id)
	}

	obj.MarkRegistered()
	stored.MarkRegistered()
	return id
}

// Register stores obj at anchor and returns its id. An object carrying an
// id keeps it; re-registering that id moves its anchor without changing
// draw order. The scene's transform is applied to the stored object.
func (s *Scene) Register(obj Object, anchor image.Point) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, stored, err := s.stage(obj)
	if err != nil {
		return 0, err
	}
	return s.commit(id, obj, stored, anchor), nil
}

// RandomRegister allocates an anchor with the scene's placement strategy
// and registers obj there. In grid mode it fails with ErrCapacity once the
// grid is exhausted. A rejected object consumes no anchor.
func (s *Scene) RandomRegister(obj Object) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, stored, err := s.stage(obj)
	if err != nil {
		return 0, err
	}
	anchor, err := s.allocate()
	if err != nil {
		return 0, err
	}
	return s.commit(id, obj, stored, anchor), nil
}

// Prepare materializes the background array. It is idempotent and is
// called by Generate when needed.
func (s *Scene) Prepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prepare()
}

func (s *Scene) prepare() error {
	switch s.state {
	case StateConstructed:
	case StatePrepared:
		return nil
	default:
		return fmt.Errorf("%w: cannot prepare while %s", ErrState, s.state)
	}

	if s.bgSource != nil {
		s.bg = s.bgSource.Clone()
	} else {
		s.bg = tensor.Full(s.width, s.height, s.bands, s.fill...)
	}
	s.state = StatePrepared
	return nil
}

// Background returns a copy of the prepared background.
func (s *Scene) Background() (*tensor.Array, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bg == nil {
		return nil, fmt.Errorf("%w: scene not prepared", ErrState)
	}
	return s.bg.Clone(), nil
}

// View composites every object's first frame onto the background.
func (s *Scene) View() (*tensor.Array, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.prepare(); err != nil {
		return nil, err
	}

	img := s.bg.Clone()
	for _, id := range s.order {
		rec := s.records[id]
		patch, err := rec.obj.FrameAt(0)
		if err != nil {
			return nil, fmt.Errorf("scene: view object %d: %w", id, err)
		}
		if err := Composite(img, patch, rec.anchor); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func (s *Scene) get(w, h, c int) *tensor.Array {
	if s.alloc != nil {
		return s.alloc.Get(w, h, c)
	}
	return tensor.New(w, h, c)
}

func (s *Scene) put(a *tensor.Array) {
	if s.alloc != nil && a != nil {
		s.alloc.Put(a)
	}
}

// step composites timestep t into fresh frame and annotation accumulators.
// Objects are drawn in registration order so later ones paint over earlier
// ones.
func (s *Scene) step(t int, order []int, records map[int]*record) (*tensor.Array, *tensor.Array, error) {
	frame := s.get(s.width, s.height, s.bands)
	if err := frame.CopyFrom(s.bg); err != nil {
		s.put(frame)
		return nil, nil, err
	}
	annotation := s.get(s.width, s.height, AnnotationBands)
	annotation.Fill()

	fail := func(err error) (*tensor.Array, *tensor.Array, error) {
		s.put(frame)
		s.put(annotation)
		return nil, nil, err
	}

	for _, id := range order {
		rec := records[id]
		if h, ok := rec.obj.Horizon(); ok && t >= h {
			return fail(fmt.Errorf("%w: object %d has %d steps, asked for %d", ErrHorizonExhausted, id, h, t))
		}
		patch, err := rec.obj.FrameAt(t)
		if err != nil {
			return fail(fmt.Errorf("scene: object %d at step %d: %w", id, t, err))
		}
		mask := rec.obj.AnnotationMask(patch)

		if err := Composite(frame, patch, rec.anchor); err != nil {
			return fail(fmt.Errorf("scene: object %d frame: %w", id, err))
		}
		if err := Composite(annotation, mask, rec.anchor); err != nil {
			return fail(fmt.Errorf("scene: object %d annotation: %w", id, err))
		}
	}
	return frame, annotation, nil
}

// Generate runs the timestep loop and hands every frame and annotation to
// sink. The scene closes when it returns, successfully or not. ctx is
// checked between timesteps; on any abort the index is flushed with the
// frames completed so far before the error is returned.
func (s *Scene) Generate(ctx context.Context, sink Sink) error {
	s.mu.Lock()
	if err := s.prepare(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateGenerating
	order := make([]int, len(s.order))
	copy(order, s.order)
	records := s.records
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
	}()

	if err := sink.Open(); err != nil {
		return err
	}

	idx := NewIndex(s.width, s.height, s.bands, s.horizon, len(order))
	s.logger.Info("generation started",
		"width", s.width, "height", s.height, "bands", s.bands,
		"horizon", s.horizon, "objects", len(order), "placement", s.placement.String())

	for t := 0; t < s.horizon; t++ {
		if err := ctx.Err(); err != nil {
			return s.abort(sink, idx, err)
		}

		frame, annotation, err := s.step(t, order, records)
		if err != nil {
			return s.abort(sink, idx, err)
		}

		frameName := sink.FrameName(t)
		err = sink.DumpFrame(frame, frameName)
		if err == nil {
			err = sink.DumpAnnotation(annotation, sink.AnnotationName(t))
		}
		s.put(frame)
		s.put(annotation)
		if err != nil {
			return s.abort(sink, idx, err)
		}

		idx.Record(t, frameName)
		s.logger.Debug("frame written", "step", t, "file", frameName)
	}

	if err := sink.DumpIndex(idx); err != nil {
		return errors.Join(err, sink.Close())
	}
	if err := sink.Close(); err != nil {
		return err
	}
	s.logger.Info("generation finished", "frames", idx.Features.NFrames)
	return nil
}

func (s *Scene) abort(sink Sink, idx *Index, cause error) error {
	s.logger.Warn("generation aborted", "frames", idx.Features.NFrames, "error", cause)
	return errors.Join(cause, sink.DumpIndex(idx), sink.Close())
}
