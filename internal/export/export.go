// Package export persists generated scenes as
//
//	<root>/
//	├── frames/
//	├── annotations/
//	└── index.json
//
// and reads them back for downstream consumers.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ivlev/toyscene/internal/scene"
	"github.com/ivlev/toyscene/internal/tensor"
)

const (
	FramesDir      = "frames"
	AnnotationsDir = "annotations"
	IndexName      = "index.json"
)

var (
	ErrEncodingCompatibility = errors.New("export: encoding incompatible with band count")
	ErrLayoutConflict        = errors.New("export: output directory already exists")
	ErrUnknownEncoding       = errors.New("export: unknown encoding")
	ErrSessionClosed         = errors.New("export: session not open")
	ErrFrameNotFound         = errors.New("export: frame not in index")
)

// Exporter writes one scene to a fixed directory layout. It implements
// scene.Sink. Every dump writes a complete file, so frames already
// persisted survive an interrupted session.
type Exporter struct {
	root      string
	encoding  Encoding
	overwrite bool
	logger    *slog.Logger
	open      bool

	// OnFrame, if set, is called after every persisted frame.
	OnFrame func(name string)
}

// NewExporter returns an exporter for root. Frames default to enc.
func NewExporter(root string, enc Encoding, overwrite bool, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Exporter{root: root, encoding: enc, overwrite: overwrite, logger: logger}
}

// Open creates the directory layout. An existing root is removed first when
// overwrite was requested and refused otherwise.
func (e *Exporter) Open() error {
	if _, err := os.Stat(e.root); err == nil {
		if !e.overwrite {
			return fmt.Errorf("%w: %s", ErrLayoutConflict, e.root)
		}
		if err := os.RemoveAll(e.root); err != nil {
			return fmt.Errorf("export: clear %s: %w", e.root, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	for _, dir := range []string{e.root, filepath.Join(e.root, FramesDir), filepath.Join(e.root, AnnotationsDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("export: create %s: %w", dir, err)
		}
	}
	e.open = true
	e.logger.Debug("export session opened", "root", e.root, "encoding", e.encoding.String())
	return nil
}

// FrameName is the file name of the frame at step.
func (e *Exporter) FrameName(step int) string {
	return fmt.Sprintf("frame_%d.%s", step, e.encoding.Ext())
}

// AnnotationName is the file name of the annotation mask at step.
func (e *Exporter) AnnotationName(step int) string {
	return annotationFile(step)
}

func annotationFile(step int) string {
	return fmt.Sprintf("annotation_%d.%s", step, EncodingRaw.Ext())
}

// DumpFrame writes frame under frames/ in the default encoding.
func (e *Exporter) DumpFrame(frame *tensor.Array, name string) error {
	return e.DumpFrameAs(frame, name, e.encoding)
}

// DumpFrameAs writes frame under frames/ in enc. Image encodings fail with
// ErrEncodingCompatibility unless the frame has 3 bands; the session stays
// usable afterwards.
func (e *Exporter) DumpFrameAs(frame *tensor.Array, name string, enc Encoding) error {
	if enc.IsImage() && frame.C != 3 {
		return fmt.Errorf("%w: %s needs 3 bands, frame has %d", ErrEncodingCompatibility, enc, frame.C)
	}
	if err := e.write(filepath.Join(FramesDir, name), frame, enc); err != nil {
		return err
	}
	if e.OnFrame != nil {
		e.OnFrame(name)
	}
	return nil
}

// DumpAnnotation writes mask under annotations/, always losslessly.
func (e *Exporter) DumpAnnotation(mask *tensor.Array, name string) error {
	return e.write(filepath.Join(AnnotationsDir, name), mask, EncodingRaw)
}

// DumpIndex writes index.json at the root.
func (e *Exporter) DumpIndex(idx *scene.Index) error {
	if !e.open {
		return ErrSessionClosed
	}
	return SaveIndex(filepath.Join(e.root, IndexName), idx)
}

// Close ends the session. Further dumps fail with ErrSessionClosed.
func (e *Exporter) Close() error {
	e.open = false
	return nil
}

func (e *Exporter) write(rel string, a *tensor.Array, enc Encoding) error {
	if !e.open {
		return ErrSessionClosed
	}
	path := filepath.Join(e.root, rel)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := enc.Encode(f, a); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("export: encode %s: %w", rel, err)
	}
	return f.Close()
}

// SaveIndex writes idx as indented JSON.
func SaveIndex(path string, idx *scene.Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadIndex reads an index written by SaveIndex.
func LoadIndex(path string) (*scene.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx scene.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("export: decode %s: %w", path, err)
	}
	if idx.Files == nil {
		idx.Files = make(map[int]string)
	}
	return &idx, nil
}
