package scene

import (
	"fmt"
	"image"
	"math/rand"
)

// BuildGrid lays out a lattice at multiples of cell over the canvas and
// perturbs every point by an integer jitter drawn per axis (x first, then
// y). Points come out row-major: y outer, x inner. A nil jitter keeps the
// lattice regular and draws nothing from rng.
func BuildGrid(canvas, cell image.Point, jitter Distribution, rng *rand.Rand) ([]image.Point, error) {
	if cell.X <= 0 || cell.Y <= 0 {
		return nil, fmt.Errorf("scene: grid cell must be positive, got %dx%d", cell.X, cell.Y)
	}
	if canvas.X <= 0 || canvas.Y <= 0 {
		return nil, fmt.Errorf("scene: canvas must be positive, got %dx%d", canvas.X, canvas.Y)
	}

	nx := (canvas.X + cell.X - 1) / cell.X
	ny := (canvas.Y + cell.Y - 1) / cell.Y
	anchors := make([]image.Point, 0, nx*ny)

	for y := 0; y < canvas.Y; y += cell.Y {
		for x := 0; x < canvas.X; x += cell.X {
			p := image.Pt(x, y)
			if jitter != nil {
				// Truncation toward zero keeps small centered offsets at 0
				p.X += int(jitter(rng))
				p.Y += int(jitter(rng))
			}
			anchors = append(anchors, p)
		}
	}
	return anchors, nil
}

// Grid holds the ordered anchor enumeration and the shuffled queue that
// grid placement consumes without replacement.
type Grid struct {
	Cell    image.Point
	anchors []image.Point
	queue   []image.Point
}

// NewGrid builds the anchors, then shuffles a copy of them with rng.
func NewGrid(canvas, cell image.Point, jitter Distribution, rng *rand.Rand) (*Grid, error) {
	anchors, err := BuildGrid(canvas, cell, jitter, rng)
	if err != nil {
		return nil, err
	}

	queue := make([]image.Point, len(anchors))
	copy(queue, anchors)
	rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})

	return &Grid{Cell: cell, anchors: anchors, queue: queue}, nil
}

// Anchors returns every candidate anchor in lattice order.
func (g *Grid) Anchors() []image.Point {
	out := make([]image.Point, len(g.anchors))
	copy(out, g.anchors)
	return out
}

// Len is the total number of anchors.
func (g *Grid) Len() int {
	return len(g.anchors)
}

// Remaining is the number of anchors not yet allocated.
func (g *Grid) Remaining() int {
	return len(g.queue)
}

// Pop allocates the next shuffled anchor.
func (g *Grid) Pop() (image.Point, error) {
	if len(g.queue) == 0 {
		return image.Point{}, fmt.Errorf("%w: all %d anchors allocated", ErrCapacity, len(g.anchors))
	}
	p := g.queue[0]
	g.queue = g.queue[1:]
	return p, nil
}
