package video

import (
	"time"

	"github.com/ivlev/script2video/internal/config"
	"github.com/ivlev/script2video/internal/effects"
	"github.com/ivlev/script2video/internal/script"
	"github.com/ivlev/script2video/internal/timeline"
)

// Hold shows one still image for a fixed number of frames.
type Hold struct {
	Image       string
	Start       time.Duration
	End         time.Duration
	Frames      int
	Filter      string
	SingleFrame bool
}

// NarrationClip is placed at Start and padded with silence to Length.
type NarrationClip struct {
	Path   string
	Start  time.Duration
	Length time.Duration
}

type MusicTrack struct {
	Path   string
	Loop   bool
	GainDB float64
}

// TrackSpec is everything the encoder needs to render one profile.
type TrackSpec struct {
	Profile       config.AspectProfile
	FPS           int
	Duration      time.Duration
	TotalFrames   int
	Holds         []Hold
	Narration     []NarrationClip
	Subtitles     []script.Entry
	SubtitlePath  string
	SubtitleStyle string
	Music         *MusicTrack
	QR            *QROverlay
}

type QROverlay struct {
	Path   string
	Margin int
}

type SpecOptions struct {
	FPS       int
	Motion    string
	ZoomSpeed float64
	Effect    effects.Effect
}

// frameAt returns the frame index nearest to d.
func frameAt(d time.Duration, fps int) int {
	return int((int64(d)*int64(fps) + int64(time.Second)/2) / int64(time.Second))
}

// BuildTrackSpec maps a timeline onto one profile. Hold lengths are derived
// from absolute cue boundaries so rounding never accumulates.
func BuildTrackSpec(tl *timeline.Timeline, profile config.AspectProfile, opts SpecOptions) TrackSpec {
	eff := opts.Effect
	if eff == nil {
		eff = &effects.DefaultEffect{}
	}

	cues := tl.Cues()
	spec := TrackSpec{
		Profile:       profile,
		FPS:           opts.FPS,
		Duration:      tl.Duration(),
		TotalFrames:   frameAt(tl.Duration(), opts.FPS),
		Holds:         make([]Hold, len(cues)),
		Narration:     make([]NarrationClip, len(cues)),
		Subtitles:     tl.SubtitleEntries(),
		SubtitleStyle: profile.SubtitleStyle,
	}

	for i, c := range cues {
		frames := frameAt(c.End, opts.FPS) - frameAt(c.Start, opts.FPS)
		params := config.SegmentParams{
			Width:     profile.Width,
			Height:    profile.Height,
			FPS:       opts.FPS,
			Duration:  c.Duration().Seconds(),
			Frames:    frames,
			Fit:       profile.Fit,
			Motion:    opts.Motion,
			ZoomSpeed: opts.ZoomSpeed,
			PageIndex: c.Image.Index,
		}
		spec.Holds[i] = Hold{
			Image:       c.Image.Path,
			Start:       c.Start,
			End:         c.End,
			Frames:      frames,
			Filter:      eff.GenerateFilter(params),
			SingleFrame: effects.SingleFrameInput(params),
		}
		spec.Narration[i] = NarrationClip{
			Path:   c.Narration.Path,
			Start:  c.Start,
			Length: c.Duration(),
		}
	}

	if music, ok := tl.Music(); ok {
		spec.Music = &MusicTrack{
			Path:   music.Path,
			Loop:   music.Loop,
			GainDB: music.GainDB,
		}
	}
	return spec
}
