package effects

import (
	"strings"
	"testing"

	"github.com/ivlev/script2video/internal/config"
)

func TestFitFilter(t *testing.T) {
	tests := []struct {
		fit  string
		want string
	}{
		{config.FitCrop, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920"},
		{config.FitPad, "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2"},
		{config.FitStretch, "scale=1080:1920"},
	}
	for _, tt := range tests {
		if got := FitFilter(tt.fit, 1080, 1920); got != tt.want {
			t.Errorf("FitFilter(%s) = %s, want %s", tt.fit, got, tt.want)
		}
	}
}

func TestDefaultEffectStatic(t *testing.T) {
	e := &DefaultEffect{}
	p := config.SegmentParams{Width: 1920, Height: 1080, FPS: 30, Duration: 1.2, Frames: 36, Fit: config.FitStretch, Motion: config.MotionNone}

	filter := e.GenerateFilter(p)
	if !strings.HasPrefix(filter, "scale=1920:1080,") {
		t.Errorf("Expected stretch scale first, got %s", filter)
	}
	if !strings.Contains(filter, "fps=30") || !strings.HasSuffix(filter, "trim=end_frame=36,setpts=PTS-STARTPTS") {
		t.Errorf("Expected frame-exact trim, got %s", filter)
	}
	if strings.Contains(filter, "zoompan") || SingleFrameInput(p) {
		t.Errorf("Static hold must not zoom: %s", filter)
	}
}

func TestDefaultEffectZoom(t *testing.T) {
	e := &DefaultEffect{}
	p := config.SegmentParams{Width: 1080, Height: 1920, FPS: 25, Frames: 50, Fit: config.FitCrop, Motion: config.MotionZoom, ZoomSpeed: 0.001}

	filter := e.GenerateFilter(p)
	if !SingleFrameInput(p) {
		t.Error("Zoom expects a single input frame")
	}
	if !strings.HasPrefix(filter, "scale=2160:3840:force_original_aspect_ratio=increase,crop=2160:3840,") {
		t.Errorf("Expected 2x crop before zoompan, got %s", filter)
	}
	if !strings.Contains(filter, "zoompan=z='min(1.0+0.001000*on,1.5)':d=50:s=1080x1920") {
		t.Errorf("Unexpected zoompan: %s", filter)
	}
	if !strings.HasSuffix(filter, "trim=end_frame=50,setpts=PTS-STARTPTS") {
		t.Errorf("Expected trim to 50 frames, got %s", filter)
	}
}
