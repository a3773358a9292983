// Package tensor provides the dense (width, height, bands) float64 arrays
// used for frames, patches and annotation masks.
package tensor

import "fmt"

// Array is a dense 3-D array laid out x-major: the element at (x, y, c)
// lives at Data[(x*H+y)*C+c].
type Array struct {
	W, H, C int
	Data    []float64
}

// New allocates a zero-filled array. Negative dimensions are treated as zero.
func New(w, h, c int) *Array {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	if c < 0 {
		c = 0
	}
	return &Array{W: w, H: h, C: c, Data: make([]float64, w*h*c)}
}

// Full allocates an array where band c of every pixel equals fill[c].
// A single fill value is broadcast to every band.
func Full(w, h, c int, fill ...float64) *Array {
	a := New(w, h, c)
	a.Fill(fill...)
	return a
}

// Shape returns (W, H, C).
func (a *Array) Shape() (int, int, int) {
	return a.W, a.H, a.C
}

// SameShape reports whether a and b have identical dimensions.
func (a *Array) SameShape(b *Array) bool {
	return a.W == b.W && a.H == b.H && a.C == b.C
}

func (a *Array) offset(x, y, c int) int {
	return (x*a.H+y)*a.C + c
}

// At returns the element at (x, y, c). It panics when out of range.
func (a *Array) At(x, y, c int) float64 {
	return a.Data[a.offset(x, y, c)]
}

// Set stores v at (x, y, c).
func (a *Array) Set(x, y, c int, v float64) {
	a.Data[a.offset(x, y, c)] = v
}

// Pixel returns the band values of (x, y) as a slice aliasing Data.
func (a *Array) Pixel(x, y int) []float64 {
	i := a.offset(x, y, 0)
	return a.Data[i : i+a.C]
}

// Fill sets every pixel to fill. With no values it zeroes the array.
func (a *Array) Fill(fill ...float64) {
	if len(fill) == 0 {
		clear(a.Data)
		return
	}
	for i := range a.Data {
		a.Data[i] = fill[(i%a.C)%len(fill)]
	}
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	b := &Array{W: a.W, H: a.H, C: a.C, Data: make([]float64, len(a.Data))}
	copy(b.Data, a.Data)
	return b
}

// CopyFrom overwrites a with the contents of b, which must have the same shape.
func (a *Array) CopyFrom(b *Array) error {
	if !a.SameShape(b) {
		return fmt.Errorf("tensor: shape mismatch %dx%dx%d vs %dx%dx%d", a.W, a.H, a.C, b.W, b.H, b.C)
	}
	copy(a.Data, b.Data)
	return nil
}

// Scale multiplies band c of every pixel by factors[c].
func (a *Array) Scale(factors []float64) {
	if len(factors) == 0 {
		return
	}
	for i := range a.Data {
		a.Data[i] *= factors[(i%a.C)%len(factors)]
	}
}

// Region is a rectangular window [X0, X0+W) x [Y0, Y0+H).
type Region struct {
	X0, Y0, W, H int
}

// Empty reports whether the region covers no pixel.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// AddRegion adds src[sx+i, sy+j, c] into a[dst.X0+i, dst.Y0+j, c] for
// every (i, j) in dst. Both arrays must share the band count and the caller
// guarantees the windows are in range.
func (a *Array) AddRegion(dst Region, src *Array, sx, sy int) {
	c := a.C
	for i := 0; i < dst.W; i++ {
		drow := a.offset(dst.X0+i, dst.Y0, 0)
		srow := src.offset(sx+i, sy, 0)
		n := dst.H * c
		d := a.Data[drow : drow+n]
		s := src.Data[srow : srow+n]
		for k := range d {
			d[k] += s[k]
		}
	}
}

// ClipMax caps every element at hi. Lower values are left untouched.
func (a *Array) ClipMax(hi float64) {
	for i, v := range a.Data {
		if v > hi {
			a.Data[i] = hi
		}
	}
}

// Max returns the largest element, or 0 for an empty array.
func (a *Array) Max() float64 {
	if len(a.Data) == 0 {
		return 0
	}
	m := a.Data[0]
	for _, v := range a.Data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Equal reports whether a and b have the same shape and elements.
func (a *Array) Equal(b *Array) bool {
	if !a.SameShape(b) {
		return false
	}
	for i, v := range a.Data {
		if b.Data[i] != v {
			return false
		}
	}
	return true
}
