package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/system"
	"github.com/ivlev/script2video/internal/timeline"
	"github.com/ivlev/script2video/internal/tts"
)

var narrationExts = []string{".wav", ".mp3"}

// prerecorded returns <dir>/NNN.wav or NNN.mp3 for segment i (1-based name), if present.
func prerecorded(dir string, i int) (string, bool) {
	if dir == "" {
		return "", false
	}
	for _, ext := range narrationExts {
		path := filepath.Join(dir, fmt.Sprintf("%03d%s", i+1, ext))
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, true
		}
	}
	return "", false
}

// narrate produces one measured narration clip per segment. Pre-recorded
// files are used where they exist; the rest are synthesized concurrently.
func (p *Project) narrate(ctx context.Context, segs []script.Segment, workDir string) ([]timeline.Narration, error) {
	out := make([]timeline.Narration, len(segs))

	var missing []int
	for i := range segs {
		path, ok := prerecorded(p.Config.NarrationDir, i)
		if !ok {
			missing = append(missing, i)
			continue
		}
		d, err := p.measure(ctx, path)
		if err != nil {
			return nil, &tts.SynthesisError{Kind: tts.Unavailable, Index: i, Err: err}
		}
		out[i] = timeline.Narration{Path: path, Duration: d, External: true}
	}

	if len(missing) == 0 {
		fmt.Printf("[*] Используется готовая озвучка: %s\n", p.Config.NarrationDir)
		return out, nil
	}
	if p.Synthesizer == nil {
		return nil, &tts.SynthesisError{Kind: tts.Unavailable, Index: missing[0], Err: errors.New("синтезатор речи не настроен")}
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = segs[i].Text
	}

	workers := p.Config.Synthesis.Workers
	if workers <= 0 {
		workers = system.RecommendedWorkers(4)
	}
	fmt.Printf("[*] Синтез речи: %d реплик, потоков: %d\n", len(texts), workers)

	audios, err := tts.SynthesizeAll(ctx, p.Synthesizer, texts, workers)
	if err != nil {
		var se *tts.SynthesisError
		if errors.As(err, &se) && se.Index >= 0 && se.Index < len(missing) {
			return nil, &tts.SynthesisError{Kind: se.Kind, Index: missing[se.Index], Err: se.Err}
		}
		return nil, err
	}

	dir := filepath.Join(workDir, "narration")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	for j, i := range missing {
		format := audios[j].Format
		if format == "" {
			format = "wav"
		}
		path := filepath.Join(dir, fmt.Sprintf("%03d.%s", i+1, format))
		if err := os.WriteFile(path, audios[j].Data, 0644); err != nil {
			return nil, err
		}
		out[i] = timeline.Narration{Path: path, Duration: audios[j].Duration}
	}
	return out, nil
}
