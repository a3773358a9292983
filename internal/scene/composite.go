package scene

import (
	"fmt"
	"image"

	"github.com/ivlev/toyscene/internal/tensor"
)

// MaxValue is the upper bound canvases are clipped to after each composite.
const MaxValue = 1.0

// CenterToUpperLeft converts a patch center to its upper-left corner.
func CenterToUpperLeft(anchor image.Point, w, h int) image.Point {
	return image.Pt(anchor.X-w/2, anchor.Y-h/2)
}

// Window computes where a w x h patch centered on anchor lands on a cw x ch
// canvas. It returns the destination region and the offset (sx, sy) of the
// first patch element that is kept. The region is empty when nothing of
// the patch overlaps the canvas.
func Window(cw, ch, w, h int, anchor image.Point) (dst tensor.Region, sx, sy int) {
	ul := CenterToUpperLeft(anchor, w, h)
	x0, y0 := ul.X, ul.Y

	// Crop from the near edges
	if x0 < 0 {
		sx = -x0
		w += x0
		x0 = 0
	}
	if y0 < 0 {
		sy = -y0
		h += y0
		y0 = 0
	}

	// Truncate at the far edges
	w = min(w, cw-x0)
	h = min(h, ch-y0)

	return tensor.Region{X0: x0, Y0: y0, W: w, H: h}, sx, sy
}

// Composite adds patch into canvas centered on anchor, cropping whatever
// falls outside it, then clips canvas to MaxValue. A patch that does not
// overlap the canvas leaves it untouched. Only the upper bound is clipped.
func Composite(canvas, patch *tensor.Array, anchor image.Point) error {
	if patch.C != canvas.C {
		return fmt.Errorf("%w: patch has %d bands, canvas has %d", ErrCompatibility, patch.C, canvas.C)
	}

	dst, sx, sy := Window(canvas.W, canvas.H, patch.W, patch.H, anchor)
	if dst.Empty() {
		return nil
	}

	canvas.AddRegion(dst, patch, sx, sy)
	canvas.ClipMax(MaxValue)
	return nil
}
