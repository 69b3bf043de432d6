package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/timeline"
)

// Renderer drives one encode per aspect profile. Profiles never share
// writable state: each gets its own work dir and output file.
type Renderer struct {
	Encoder    Encoder
	OutputDir  string
	WorkDir    string
	Timeout    time.Duration
	Sequential bool
	Spec       SpecOptions
	QR         config.QRConfig
}

type RenderResult struct {
	Profile    string
	OutputPath string
	Elapsed    time.Duration
	Err        error
}

// OutputPath is <root>/<profile>/<scriptID>_<profile>.mp4.
func OutputPath(root, profile, scriptID string) string {
	return filepath.Join(root, profile, fmt.Sprintf("%s_%s.mp4", scriptID, profile))
}

func (r *Renderer) Render(ctx context.Context, tl *timeline.Timeline, profile config.AspectProfile, scriptID string) RenderResult {
	start := time.Now()
	res := RenderResult{Profile: profile.Name, OutputPath: OutputPath(r.OutputDir, profile.Name, scriptID)}

	fail := func(exitCode int, err error) RenderResult {
		res.Err = &RenderError{Kind: EncodeFailed, Profile: profile.Name, ExitCode: exitCode, Err: err}
		res.Elapsed = time.Since(start)
		return res
	}

	workDir := filepath.Join(r.WorkDir, profile.Name)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fail(-1, err)
	}
	if err := os.MkdirAll(filepath.Dir(res.OutputPath), 0755); err != nil {
		return fail(-1, err)
	}
	if err := os.Remove(res.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail(-1, err)
	}

	spec := BuildTrackSpec(tl, profile, r.Spec)

	spec.SubtitlePath = filepath.Join(workDir, "subtitles.srt")
	if err := writeSubtitles(spec.SubtitlePath, spec.Subtitles); err != nil {
		return fail(-1, fmt.Errorf("subtitles: %w", err))
	}

	if r.QR.Content != "" {
		qrPath := filepath.Join(workDir, "qr.png")
		if err := qrcode.WriteFile(r.QR.Content, qrcode.Medium, r.QR.Size, qrPath); err != nil {
			return fail(-1, fmt.Errorf("qr: %w", err))
		}
		spec.QR = &QROverlay{Path: qrPath, Margin: r.QR.Margin}
	}

	encCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		encCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if err := r.Encoder.Encode(encCtx, spec, res.OutputPath); err != nil {
		if ctxErr := encCtx.Err(); ctxErr != nil {
			return fail(-1, fmt.Errorf("%w: %v", ctxErr, err))
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return fail(exitCode, err)
	}

	if fi, err := os.Stat(res.OutputPath); err != nil || fi.Size() == 0 {
		return fail(0, fmt.Errorf("encoder produced no output at %s", res.OutputPath))
	}

	res.Elapsed = time.Since(start)
	return res
}

// RenderAll renders every profile and returns one result per profile in
// input order. A failed profile does not cancel the others.
func (r *Renderer) RenderAll(ctx context.Context, tl *timeline.Timeline, profiles []config.AspectProfile, scriptID string) []RenderResult {
	results := make([]RenderResult, len(profiles))

	var g errgroup.Group
	if r.Sequential {
		g.SetLimit(1)
	}
	for i, p := range profiles {
		g.Go(func() error {
			results[i] = r.Render(ctx, tl, p, scriptID)
			return nil
		})
	}
	g.Wait()

	return results
}

func writeSubtitles(path string, entries []script.Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := script.WriteSRT(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
