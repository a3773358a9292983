package scene

import (
	"fmt"
	"image"
	"strings"
)

// Placement selects how RandomRegister picks an anchor.
type Placement int

const (
	// PlacementRandom scales two independent draws by the canvas size.
	PlacementRandom Placement = iota
	// PlacementGrid pops anchors from a shuffled jittered grid.
	PlacementGrid
)

func (p Placement) String() string {
	switch p {
	case PlacementRandom:
		return "random"
	case PlacementGrid:
		return "grid"
	default:
		return fmt.Sprintf("placement(%d)", int(p))
	}
}

// ParsePlacement maps "random" or "grid" to a Placement.
func ParsePlacement(s string) (Placement, error) {
	switch strings.ToLower(s) {
	case "random", "":
		return PlacementRandom, nil
	case "grid":
		return PlacementGrid, nil
	default:
		return 0, fmt.Errorf("scene: unknown placement mode %q", s)
	}
}

// allocate picks the anchor for one registration. Callers hold s.mu.
func (s *Scene) allocate() (image.Point, error) {
	switch s.placement {
	case PlacementRandom:
		x := int(float64(s.width) * s.dist(s.rng))
		y := int(float64(s.height) * s.dist(s.rng))
		return image.Pt(x, y), nil
	case PlacementGrid:
		return s.grid.Pop()
	default:
		return image.Point{}, fmt.Errorf("scene: unsupported placement %v", s.placement)
	}
}
