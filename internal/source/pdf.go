package source

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/ivlev/script2video/internal/system"
)

// PDFSource uses the pages of a PDF as the image pool.
type PDFSource struct {
	doc  *fitz.Document
	path string
	opts Options
}

func NewPDFSource(path string, opts Options) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	return &PDFSource{doc: doc, path: path, opts: opts}, nil
}

func (f *PDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *PDFSource) RenderPage(index int) (image.Image, error) {
	return f.doc.ImageDPI(index, float64(f.opts.DPI))
}

func (f *PDFSource) Materialize(workDir string) ([]string, error) {
	dir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	paths := make([]string, f.PageCount())
	for i := range paths {
		img, err := f.RenderPage(i)
		if err != nil {
			return nil, fmt.Errorf("страница %d: %w", i+1, err)
		}
		paths[i] = filepath.Join(dir, fmt.Sprintf("page_%03d.png", i))
		if err := writeScaledPNG(paths[i], img, f.opts.MaxEdge); err != nil {
			return nil, fmt.Errorf("страница %d: %w", i+1, err)
		}
	}
	return paths, nil
}

func (f *PDFSource) Close() error {
	return f.doc.Close()
}

// fitWithin scales w×h down so that the longer edge is at most maxEdge.
func fitWithin(w, h, maxEdge int) (int, int) {
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return w, h
	}
	if w >= h {
		return maxEdge, max(1, h*maxEdge/w)
	}
	return max(1, w*maxEdge/h), maxEdge
}

func writeScaledPNG(path string, img image.Image, maxEdge int) error {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxEdge)

	out := img
	if w != b.Dx() || h != b.Dy() {
		dst := system.GetFrame(w, h)
		defer system.PutFrame(dst)
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		out = dst
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, out); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
