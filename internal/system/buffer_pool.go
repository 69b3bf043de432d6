package system

import (
	"image"
	"sync"
)

// FramePool переиспользует буферы *image.RGBA одного размера.
// Страницы PDF одного документа почти всегда одного формата, поэтому
// буфер для масштабирования выделяется один раз на все страницы.
type FramePool struct {
	mu    sync.Mutex
	pools map[image.Point]*sync.Pool
}

var frames = &FramePool{pools: make(map[image.Point]*sync.Pool)}

// GetFrame возвращает RGBA буфер размером w×h с началом координат в (0,0).
// Содержимое буфера не очищается.
func GetFrame(w, h int) *image.RGBA {
	return frames.Get(w, h)
}

// PutFrame возвращает буфер в пул.
func PutFrame(img *image.RGBA) {
	frames.Put(img)
}

func (p *FramePool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	pool, ok := p.pools[size]
	if !ok {
		pool = &sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rectangle{Max: size})
			},
		}
		p.pools[size] = pool
	}
	return pool
}

func (p *FramePool) Get(w, h int) *image.RGBA {
	return p.pool(image.Pt(w, h)).Get().(*image.RGBA)
}

func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}
