package effects

import (
	"fmt"

	"github.com/ivlev/script2video/internal/config"
)

// Effect produces the ffmpeg filter chain that turns one still image into a
// hold of exactly p.Frames frames at p.Width x p.Height.
type Effect interface {
	GenerateFilter(p config.SegmentParams) string
}

// SingleFrameInput reports whether the effect expects the image as one input
// frame rather than a looped stream.
func SingleFrameInput(p config.SegmentParams) bool {
	return p.Motion == config.MotionZoom
}

type DefaultEffect struct{}

func (e *DefaultEffect) GenerateFilter(p config.SegmentParams) string {
	if p.Motion == config.MotionZoom {
		return e.zoomFilter(p)
	}
	return fmt.Sprintf("%s,setsar=1,fps=%d,%s", FitFilter(p.Fit, p.Width, p.Height), p.FPS, trimFilter(p.Frames))
}

// zoomFilter is a slow centered push-in. Upscaling before zoompan reduces jitter.
func (e *DefaultEffect) zoomFilter(p config.SegmentParams) string {
	zSpeed := p.ZoomSpeed
	if zSpeed <= 0 {
		zSpeed = 0.0005
	}

	// Пик зума ограничен 1.5, дальше кадр стоит
	zFormula := fmt.Sprintf("min(1.0+%f*on,1.5)", zSpeed)

	aspectFilter := FitFilter(p.Fit, p.Width*2, p.Height*2)
	zoomFilter := fmt.Sprintf(
		"zoompan=z='%s':d=%d:s=%dx%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':fps=%d",
		zFormula, max(p.Frames, 1), p.Width, p.Height, p.FPS,
	)

	return fmt.Sprintf("%s,%s,setsar=1,%s", aspectFilter, zoomFilter, trimFilter(p.Frames))
}

// FitFilter maps an image of any size onto w x h according to the fit policy.
func FitFilter(fit string, w, h int) string {
	switch fit {
	case config.FitCrop:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h)
	case config.FitPad:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h, w, h)
	default: // stretch
		return fmt.Sprintf("scale=%d:%d", w, h)
	}
}

func trimFilter(frames int) string {
	return fmt.Sprintf("trim=end_frame=%d,setpts=PTS-STARTPTS", max(frames, 1))
}
