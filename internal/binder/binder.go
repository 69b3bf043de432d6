// Package binder pairs script segments with background images.
package binder

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/ivlev/script2video/internal/script"
)

// ImageResource is a decoded-header view of one pool image.
type ImageResource struct {
	Path   string
	Index  int
	Width  int
	Height int
	Format string
}

type ErrorKind string

const (
	CountMismatch   ErrorKind = "count_mismatch"
	UnreadableImage ErrorKind = "unreadable_image"
)

type BindingError struct {
	Kind     ErrorKind
	Expected int
	Actual   int
	Index    int
	Path     string
	Err      error
}

func (e *BindingError) Error() string {
	switch e.Kind {
	case CountMismatch:
		return fmt.Sprintf("bind: %s: %d segments, %d images", e.Kind, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("bind: %s: image %d (%s): %v", e.Kind, e.Index, e.Path, e.Err)
	}
}

func (e *BindingError) Unwrap() error { return e.Err }

// Bind assigns pool[i] to segments[i]. The pool must hold exactly one image
// per segment and every image must have a decodable header.
func Bind(segments []script.Segment, pool []string) ([]ImageResource, error) {
	if err := CheckCount(len(segments), len(pool)); err != nil {
		return nil, err
	}

	out := make([]ImageResource, len(pool))
	for i, path := range pool {
		res, err := inspect(path)
		if err != nil {
			return nil, &BindingError{Kind: UnreadableImage, Index: i, Path: path, Err: err}
		}
		res.Index = i
		out[i] = res
	}
	return out, nil
}

// CheckCount fails with CountMismatch unless there is one image per segment.
// Sources that must be rasterized are checked with it before any page is rendered.
func CheckCount(segments, images int) error {
	if segments != images {
		return &BindingError{Kind: CountMismatch, Expected: segments, Actual: images, Index: -1}
	}
	return nil
}

func inspect(path string) (ImageResource, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImageResource{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageResource{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageResource{}, fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}
	return ImageResource{Path: path, Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}
