package video

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Encoder renders a track spec into a single media file.
type Encoder interface {
	Encode(ctx context.Context, spec TrackSpec, outputPath string) error
}

type FFmpegEncoder struct {
	VideoEncoder string
	Quality      int
	// BurnSubtitles is false when ffmpeg is built without libass.
	BurnSubtitles bool
}

func (e *FFmpegEncoder) Encode(ctx context.Context, spec TrackSpec, outputPath string) error {
	args := e.buildArgs(spec, outputPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, tail(string(out), 2000))
	}
	return nil
}

func secs(d time.Duration) string {
	return fmt.Sprintf("%.6f", d.Seconds())
}

func (e *FFmpegEncoder) buildArgs(spec TrackSpec, outputPath string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// 1. Входы: картинки, озвучка, музыка, QR
	for _, h := range spec.Holds {
		if h.SingleFrame {
			args = append(args, "-i", h.Image)
			continue
		}
		// Запас в один кадр, точную длину задаёт trim
		holdLen := time.Duration(h.Frames+1) * time.Second / time.Duration(spec.FPS)
		args = append(args, "-loop", "1", "-framerate", fmt.Sprintf("%d", spec.FPS), "-t", secs(holdLen), "-i", h.Image)
	}

	narrationBase := len(spec.Holds)
	for _, n := range spec.Narration {
		args = append(args, "-i", n.Path)
	}

	next := narrationBase + len(spec.Narration)
	musicIndex := -1
	if spec.Music != nil {
		musicIndex = next
		next++
		if spec.Music.Loop {
			args = append(args, "-stream_loop", "-1")
		}
		args = append(args, "-i", spec.Music.Path)
	}

	qrIndex := -1
	if spec.QR != nil {
		qrIndex = next
		args = append(args, "-i", spec.QR.Path)
	}

	// 2. Видеоряд
	var graph []string
	concatIn := ""
	for i, h := range spec.Holds {
		graph = append(graph, fmt.Sprintf("[%d:v]%s[v%d]", i, h.Filter, i))
		concatIn += fmt.Sprintf("[v%d]", i)
	}
	graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vcat]", concatIn, len(spec.Holds)))
	lastOut := "[vcat]"

	if e.BurnSubtitles && spec.SubtitlePath != "" {
		sub := fmt.Sprintf("subtitles=filename=%s:charenc=UTF-8", escapeFilterValue(filepath.ToSlash(spec.SubtitlePath)))
		if spec.SubtitleStyle != "" {
			sub += fmt.Sprintf(":force_style=%s", escapeFilterValue(spec.SubtitleStyle))
		}
		graph = append(graph, fmt.Sprintf("%s%s[vsub]", lastOut, sub))
		lastOut = "[vsub]"
	}

	if qrIndex >= 0 {
		graph = append(graph, fmt.Sprintf("%s[%d:v]overlay=W-w-%d:H-h-%d[vqr]", lastOut, qrIndex, spec.QR.Margin, spec.QR.Margin))
		lastOut = "[vqr]"
	}
	graph = append(graph, fmt.Sprintf("%sformat=yuv420p[vout]", lastOut))

	// 3. Аудио: каждая реплика дополняется тишиной до длины своего отрезка
	concatIn = ""
	for i, n := range spec.Narration {
		graph = append(graph, fmt.Sprintf(
			"[%d:a]aresample=48000,aformat=sample_fmts=fltp:channel_layouts=stereo,apad,atrim=duration=%s,asetpts=PTS-STARTPTS[a%d]",
			narrationBase+i, secs(n.Length), i))
		concatIn += fmt.Sprintf("[a%d]", i)
	}
	graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[narr]", concatIn, len(spec.Narration)))
	audioOut := "[narr]"

	if musicIndex >= 0 {
		graph = append(graph, fmt.Sprintf(
			"[%d:a]aresample=48000,aformat=sample_fmts=fltp:channel_layouts=stereo,volume=%.2fdB,apad,atrim=duration=%s[bg]",
			musicIndex, spec.Music.GainDB, secs(spec.Duration)))
		graph = append(graph, "[narr][bg]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[aout]")
		audioOut = "[aout]"
	}

	args = append(args, "-filter_complex", strings.Join(graph, ";"))
	args = append(args, "-map", "[vout]", "-map", audioOut)

	args = append(args, "-c:v", e.VideoEncoder, "-r", fmt.Sprintf("%d", spec.FPS), "-frames:v", fmt.Sprintf("%d", spec.TotalFrames))
	args = append(args, qualityArgs(e.VideoEncoder, e.Quality)...)
	args = append(args, "-c:a", "aac", "-b:a", "192k")
	args = append(args, "-t", secs(spec.Duration), "-movflags", "+faststart", outputPath)
	return args
}

// Качество в зависимости от энкодера
func qualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v напрямую. Используем битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterValue escapes an option value for use inside -filter_complex:
// first for the filter's option parser, then for the graph parser.
func escapeFilterValue(v string) string {
	return graphEscaper.Replace(optionEscaper.Replace(v))
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
