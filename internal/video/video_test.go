package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/script2video/internal/binder"
	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/timeline"
)

const ms = time.Millisecond

func buildTimeline(t *testing.T, speech []time.Duration, music *timeline.BackgroundMusic) *timeline.Timeline {
	t.Helper()
	segs := make([]script.Segment, len(speech))
	narr := make([]timeline.Narration, len(speech))
	imgs := make([]binder.ImageResource, len(speech))
	for i, d := range speech {
		segs[i] = script.Segment{Index: i, Text: fmt.Sprintf("line %d", i)}
		narr[i] = timeline.Narration{Path: fmt.Sprintf("/work/narration/%03d.wav", i), Duration: d}
		imgs[i] = binder.ImageResource{Path: fmt.Sprintf("/images/%02d.png", i), Index: i, Width: 800, Height: 600}
	}
	tl, err := timeline.Build(segs, narr, imgs, music, timeline.Options{MinCueDuration: 250 * ms})
	if err != nil {
		t.Fatalf("timeline.Build failed: %v", err)
	}
	return tl
}

func TestBuildTrackSpecFrames(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{1200 * ms, 2500 * ms, 1000 * ms}, nil)
	profile := config.DefaultProfiles()[1]

	spec := BuildTrackSpec(tl, profile, SpecOptions{FPS: 30, Motion: config.MotionNone})

	want := []int{36, 75, 30}
	for i, h := range spec.Holds {
		if h.Frames != want[i] {
			t.Errorf("hold %d: %d frames, want %d", i, h.Frames, want[i])
		}
		if !strings.Contains(h.Filter, "crop=1080:1920") {
			t.Errorf("hold %d: vertical profile should crop, got %s", i, h.Filter)
		}
	}
	if spec.TotalFrames != 141 || spec.Duration != 4700*ms {
		t.Errorf("Expected 141 frames / 4.7s, got %d / %v", spec.TotalFrames, spec.Duration)
	}
	if spec.Narration[1].Start != 1200*ms || spec.Narration[1].Length != 2500*ms {
		t.Errorf("Unexpected narration clip: %+v", spec.Narration[1])
	}
	if spec.Music != nil {
		t.Error("Expected no music track")
	}
	if spec.SubtitleStyle != profile.SubtitleStyle || len(spec.Subtitles) != 3 {
		t.Errorf("Unexpected subtitle track: %q %d", spec.SubtitleStyle, len(spec.Subtitles))
	}
}

func TestBuildTrackSpecNoDrift(t *testing.T) {
	speech := make([]time.Duration, 30)
	for i := range speech {
		speech[i] = 333*ms + 333*time.Microsecond
	}
	tl := buildTimeline(t, speech, nil)

	for _, fps := range []int{24, 25, 30, 60} {
		spec := BuildTrackSpec(tl, config.DefaultProfiles()[0], SpecOptions{FPS: fps})
		sum := 0
		for _, h := range spec.Holds {
			sum += h.Frames
		}
		if sum != spec.TotalFrames {
			t.Errorf("fps %d: holds sum to %d frames, timeline has %d", fps, sum, spec.TotalFrames)
		}
	}
}

func TestBuildArgs(t *testing.T) {
	music := &timeline.BackgroundMusic{Path: "/music/bgm.mp3", Loop: true, GainDB: -10.5, SourceDuration: 2 * time.Second}
	tl := buildTimeline(t, []time.Duration{1200 * ms, 2500 * ms, 1000 * ms}, music)

	spec := BuildTrackSpec(tl, config.DefaultProfiles()[0], SpecOptions{FPS: 30})
	spec.SubtitlePath = "/work/landscape/subtitles.srt"
	spec.QR = &QROverlay{Path: "/work/landscape/qr.png", Margin: 24}

	e := &FFmpegEncoder{VideoEncoder: "libx264", Quality: 23, BurnSubtitles: true}
	args := e.buildArgs(spec, "/out/landscape/demo_landscape.mp4")
	joined := strings.Join(args, " ")

	inputs := 0
	for _, a := range args {
		if a == "-i" {
			inputs++
		}
	}
	if inputs != 8 {
		t.Errorf("Expected 3 images + 3 narration + music + qr inputs, got %d", inputs)
	}

	var graph string
	for i, a := range args {
		if a == "-filter_complex" {
			graph = args[i+1]
		}
	}

	checks := []string{
		"-stream_loop -1 -i /music/bgm.mp3",
		"-loop 1 -framerate 30",
		"-crf 23 -preset medium",
		"-t 4.700000",
		"-frames:v 141",
	}
	for _, c := range checks {
		if !strings.Contains(joined, c) {
			t.Errorf("args missing %q: %s", c, joined)
		}
	}

	graphChecks := []string{
		"[v0][v1][v2]concat=n=3:v=1:a=0[vcat]",
		`subtitles=filename=/work/landscape/subtitles.srt:charenc=UTF-8:force_style=FontName=Noto Sans CJK JP\,FontSize=30`,
		"[7:v]overlay=W-w-24:H-h-24[vqr]",
		"[4:a]aresample=48000,aformat=sample_fmts=fltp:channel_layouts=stereo,apad,atrim=duration=2.500000",
		"[a0][a1][a2]concat=n=3:v=0:a=1[narr]",
		"[6:a]aresample=48000,aformat=sample_fmts=fltp:channel_layouts=stereo,volume=-10.50dB",
		"amix=inputs=2:duration=first",
	}
	for _, c := range graphChecks {
		if !strings.Contains(graph, c) {
			t.Errorf("filter graph missing %q:\n%s", c, graph)
		}
	}
	if args[len(args)-1] != "/out/landscape/demo_landscape.mp4" {
		t.Errorf("Expected output path last, got %s", args[len(args)-1])
	}
}

func TestBuildArgsWithoutMusicOrSubtitles(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{time.Second}, nil)
	spec := BuildTrackSpec(tl, config.DefaultProfiles()[1], SpecOptions{FPS: 25, Motion: config.MotionZoom})
	spec.SubtitlePath = "/work/vertical/subtitles.srt"

	e := &FFmpegEncoder{VideoEncoder: "h264_videotoolbox", Quality: 75}
	joined := strings.Join(e.buildArgs(spec, "out.mp4"), " ")

	if strings.Contains(joined, "stream_loop") || strings.Contains(joined, "amix") {
		t.Errorf("Unexpected music in args: %s", joined)
	}
	if strings.Contains(joined, "subtitles=") {
		t.Errorf("Subtitles burned although disabled: %s", joined)
	}
	if strings.Contains(joined, "-loop 1") || !strings.Contains(joined, "zoompan") {
		t.Errorf("Zoom hold should use a single input frame: %s", joined)
	}
	if !strings.Contains(joined, "-b:v 7500k") || !strings.Contains(joined, "-map [narr]") {
		t.Errorf("Unexpected args: %s", joined)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/work/landscape/subtitles.srt", "/work/landscape/subtitles.srt"},
		{"/tmp/it's:a,b[1]/subtitles.srt", `/tmp/it\\\'s\\:a\,b\[1\]/subtitles.srt`},
		{"FontSize=24,MarginV=50", `FontSize=24\,MarginV=50`},
	}
	for _, tt := range tests {
		if got := escapeFilterValue(tt.in); got != tt.want {
			t.Errorf("escapeFilterValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestBuildArgsQuotedWorkDir(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{time.Second}, nil)
	spec := BuildTrackSpec(tl, config.DefaultProfiles()[0], SpecOptions{FPS: 30})
	spec.SubtitlePath = "/tmp/script2video_it's_1/landscape/subtitles.srt"

	e := &FFmpegEncoder{VideoEncoder: "libx264", Quality: 23, BurnSubtitles: true}
	joined := strings.Join(e.buildArgs(spec, "out.mp4"), " ")

	if strings.Contains(joined, "filename='") {
		t.Errorf("subtitle path must not be quoted: %s", joined)
	}
	if !strings.Contains(joined, `subtitles=filename=/tmp/script2video_it\\\'s_1/landscape/subtitles.srt:charenc=UTF-8`) {
		t.Errorf("subtitle path not escaped for the filter graph: %s", joined)
	}
}

type fakeEncoder struct {
	mu    sync.Mutex
	fail  map[string]error
	skip  map[string]bool
	block bool
	seen  []string
}

func (f *fakeEncoder) Encode(ctx context.Context, spec TrackSpec, outputPath string) error {
	f.mu.Lock()
	f.seen = append(f.seen, spec.Profile.Name)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := f.fail[spec.Profile.Name]; err != nil {
		return err
	}
	if _, err := os.Stat(spec.SubtitlePath); err != nil {
		return fmt.Errorf("subtitle file missing: %w", err)
	}
	if f.skip[spec.Profile.Name] {
		return nil
	}
	return os.WriteFile(outputPath, []byte("mp4"), 0644)
}

func TestRenderAllIsolatesProfiles(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{1200 * ms, 2500 * ms, 1000 * ms}, nil)
	out := t.TempDir()
	enc := &fakeEncoder{fail: map[string]error{"vertical": errors.New("boom")}}
	r := &Renderer{Encoder: enc, OutputDir: out, WorkDir: t.TempDir(), Spec: SpecOptions{FPS: 30}}

	results := r.RenderAll(context.Background(), tl, config.DefaultProfiles(), "demo")
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	land, vert := results[0], results[1]
	if land.Err != nil {
		t.Errorf("landscape should succeed, got %v", land.Err)
	}
	if land.OutputPath != filepath.Join(out, "landscape", "demo_landscape.mp4") {
		t.Errorf("Unexpected output path %s", land.OutputPath)
	}
	if _, err := os.Stat(land.OutputPath); err != nil {
		t.Errorf("landscape output missing: %v", err)
	}

	var re *RenderError
	if !errors.As(vert.Err, &re) {
		t.Fatalf("Expected *RenderError for vertical, got %v", vert.Err)
	}
	if re.Kind != EncodeFailed || re.Profile != "vertical" || re.ExitCode != -1 {
		t.Errorf("Unexpected render error: %+v", re)
	}
	if len(enc.seen) != 2 {
		t.Errorf("Expected both profiles to be encoded, got %v", enc.seen)
	}
}

func TestRenderMissingOutput(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{time.Second}, nil)
	r := &Renderer{
		Encoder:    &fakeEncoder{skip: map[string]bool{"landscape": true}},
		OutputDir:  t.TempDir(),
		WorkDir:    t.TempDir(),
		Sequential: true,
		Spec:       SpecOptions{FPS: 30},
	}

	res := r.Render(context.Background(), tl, config.DefaultProfiles()[0], "demo")
	var re *RenderError
	if !errors.As(res.Err, &re) || re.Kind != EncodeFailed {
		t.Errorf("Expected EncodeFailed for missing output, got %v", res.Err)
	}
}

func TestRenderTimeout(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{time.Second}, nil)
	r := &Renderer{
		Encoder:   &fakeEncoder{block: true},
		OutputDir: t.TempDir(),
		WorkDir:   t.TempDir(),
		Timeout:   20 * ms,
		Spec:      SpecOptions{FPS: 30},
	}

	res := r.Render(context.Background(), tl, config.DefaultProfiles()[1], "demo")
	var re *RenderError
	if !errors.As(res.Err, &re) || re.Kind != EncodeFailed {
		t.Fatalf("Expected EncodeFailed, got %v", res.Err)
	}
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", res.Err)
	}
}

func TestRenderWritesQR(t *testing.T) {
	tl := buildTimeline(t, []time.Duration{time.Second}, nil)
	work := t.TempDir()
	r := &Renderer{
		Encoder:   &fakeEncoder{},
		OutputDir: t.TempDir(),
		WorkDir:   work,
		Spec:      SpecOptions{FPS: 30},
		QR:        config.QRConfig{Content: "https://example.com", Size: 128, Margin: 16},
	}

	res := r.Render(context.Background(), tl, config.DefaultProfiles()[0], "demo")
	if res.Err != nil {
		t.Fatalf("Render failed: %v", res.Err)
	}
	if _, err := os.Stat(filepath.Join(work, "landscape", "qr.png")); err != nil {
		t.Errorf("QR image missing: %v", err)
	}
}

type exitEncoder struct {
	code int
}

func (e *exitEncoder) Encode(ctx context.Context, spec TrackSpec, outputPath string) error {
	err := exec.CommandContext(ctx, "sh", "-c", fmt.Sprintf("exit %d", e.code)).Run()
	if err != nil {
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, "")
	}
	return nil
}

func TestRenderReportsExitCode(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tl := buildTimeline(t, []time.Duration{time.Second}, nil)
	r := &Renderer{
		Encoder:   &exitEncoder{code: 3},
		OutputDir: t.TempDir(),
		WorkDir:   t.TempDir(),
		Timeout:   10 * time.Second,
		Spec:      SpecOptions{FPS: 30},
	}

	res := r.Render(context.Background(), tl, config.DefaultProfiles()[1], "demo")
	var re *RenderError
	if !errors.As(res.Err, &re) {
		t.Fatalf("Expected *RenderError, got %v", res.Err)
	}
	if re.Kind != EncodeFailed || re.Profile != "vertical" || re.ExitCode != 3 {
		t.Errorf("Expected vertical EncodeFailed with exit code 3, got %+v", re)
	}
	var exitErr *exec.ExitError
	if !errors.As(res.Err, &exitErr) {
		t.Errorf("Expected wrapped *exec.ExitError, got %v", res.Err)
	}
	if !strings.Contains(res.Err.Error(), "exit code 3") {
		t.Errorf("Error message should carry the exit code: %v", res.Err)
	}
}
