// Package source загружает фоновые изображения для холста сцены.
package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/draw"

	"github.com/ivlev/toyscene/internal/tensor"
)

// ImageSource - одно изображение или директория с .jpg/.jpeg/.png,
// отсортированными по имени.
type ImageSource struct {
	paths []string
}

func NewImageSource(path string) (*ImageSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				ext := strings.ToLower(filepath.Ext(entry.Name()))
				if ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
					paths = append(paths, filepath.Join(path, entry.Name()))
				}
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("source: no images in %s", path)
	}
	return &ImageSource{paths: paths}, nil
}

func (s *ImageSource) Count() int {
	return len(s.paths)
}

// Path возвращает файл для фона с номером index, циклически по источнику.
func (s *ImageSource) Path(index int) string {
	return s.paths[index%len(s.paths)]
}

// Background декодирует изображение index, масштабирует до width x height
// и переводит в массив из bands каналов в [0, 1].
func (s *ImageSource) Background(index, width, height, bands int) (*tensor.Array, error) {
	f, err := os.Open(s.Path(index))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", s.Path(index), err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return tensor.FromImage(dst, bands), nil
}
