package export

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/toyscene/internal/scene"
	"github.com/ivlev/toyscene/internal/tensor"
)

// Dataset reads a generated scene back by timestep.
type Dataset struct {
	root  string
	index *scene.Index
}

// OpenDataset loads index.json under root.
func OpenDataset(root string) (*Dataset, error) {
	idx, err := LoadIndex(filepath.Join(root, IndexName))
	if err != nil {
		return nil, err
	}
	return &Dataset{root: root, index: idx}, nil
}

func (d *Dataset) Index() *scene.Index { return d.index }

// Len is the number of frames recorded in the index.
func (d *Dataset) Len() int { return len(d.index.Files) }

// FramePath returns the on-disk path of the frame at step.
func (d *Dataset) FramePath(step int) (string, error) {
	name, ok := d.index.File(step)
	if !ok {
		return "", fmt.Errorf("%w: step %d", ErrFrameNotFound, step)
	}
	return filepath.Join(d.root, FramesDir, name), nil
}

// Frame loads the frame at step. Image-encoded frames are returned as 3-band
// arrays in [0, 1].
func (d *Dataset) Frame(step int) (*tensor.Array, error) {
	path, err := d.FramePath(step)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, "."+EncodingRaw.Ext()) {
		return LoadNPY(path)
	}
	return loadImage(path)
}

// Annotation loads the annotation mask at step.
func (d *Dataset) Annotation(step int) (*tensor.Array, error) {
	if _, ok := d.index.File(step); !ok {
		return nil, fmt.Errorf("%w: step %d", ErrFrameNotFound, step)
	}
	return LoadNPY(filepath.Join(d.root, AnnotationsDir, annotationFile(step)))
}

func loadImage(path string) (*tensor.Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("export: decode %s: %w", path, err)
	}
	b := img.Bounds()
	a := tensor.New(b.Dx(), b.Dy(), 3)
	for x := 0; x < b.Dx(); x++ {
		for y := 0; y < b.Dy(); y++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			p := a.Pixel(x, y)
			p[0] = float64(r>>8) / 255
			p[1] = float64(g>>8) / 255
			p[2] = float64(bl>>8) / 255
		}
	}
	return a, nil
}
