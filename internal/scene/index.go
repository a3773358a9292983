package scene

import "sort"

// Features describes a generated scene in its index.
type Features struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	NBands  int `json:"nbands"`
	Horizon int `json:"horizon"`
	NDigit  int `json:"ndigit"`
	NFrames int `json:"nframes"`
}

// Index is the manifest written next to the generated frames.
type Index struct {
	Features Features       `json:"features"`
	Files    map[int]string `json:"files"`
}

// NewIndex returns an empty index for a scene of the given shape.
func NewIndex(width, height, bands, horizon, objects int) *Index {
	return &Index{
		Features: Features{
			Width:   width,
			Height:  height,
			NBands:  bands,
			Horizon: horizon,
			NDigit:  objects,
		},
		Files: make(map[int]string),
	}
}

// Record registers the frame persisted for step.
func (idx *Index) Record(step int, name string) {
	if idx.Files == nil {
		idx.Files = make(map[int]string)
	}
	if _, ok := idx.Files[step]; !ok {
		idx.Features.NFrames++
	}
	idx.Files[step] = name
}

// File returns the frame filename recorded for step.
func (idx *Index) File(step int) (string, bool) {
	name, ok := idx.Files[step]
	return name, ok
}

// Steps returns the recorded timesteps in increasing order.
func (idx *Index) Steps() []int {
	steps := make([]int, 0, len(idx.Files))
	for t := range idx.Files {
		steps = append(steps, t)
	}
	sort.Ints(steps)
	return steps
}
