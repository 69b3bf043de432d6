package source

import (
	"path/filepath"
	"strings"
)

// Source is an ordered pool of background images.
type Source interface {
	PageCount() int
	// Materialize returns one image file per page, in pool order.
	// Sources that are not plain image files write their pages into workDir.
	Materialize(workDir string) ([]string, error)
	Close() error
}

type Options struct {
	DPI     int
	MaxEdge int
}

// Open picks the source implementation by path: a .pdf file is rasterized
// page by page, anything else is treated as an image file or directory.
func Open(path string, opts Options) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		src, err := NewPDFSource(path, opts)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := NewImageSource(path)
	if err != nil {
		return nil, err
	}
	return src, nil
}
