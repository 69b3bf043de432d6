// Package timeline lays script segments out on a single contiguous time axis.
package timeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/ivlev/script2video/internal/binder"
	"github.com/ivlev/script2video/internal/script"
)

// Narration is a spoken clip on disk with its measured length.
type Narration struct {
	Path     string
	Duration time.Duration
	// External marks pre-recorded narration supplied by the user.
	External bool
}

// Cue is one segment placed on the timeline.
type Cue struct {
	Index     int
	Start     time.Duration
	End       time.Duration
	Narration Narration
	Subtitle  string
	Image     binder.ImageResource
}

func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

type Options struct {
	// MinCueDuration is the shortest cue the builder will emit.
	MinCueDuration time.Duration
}

// Timeline is immutable once built.
type Timeline struct {
	cues  []Cue
	music *BackgroundMusic
}

// Build computes cue boundaries from measured narration lengths.
//
// Untimed segments last exactly as long as their narration. Timed segments
// last max(narration, End-Start) so speech is never cut. Every cue lasts at
// least MinCueDuration and starts where the previous one ends.
func Build(segments []script.Segment, narrations []Narration, images []binder.ImageResource, music *BackgroundMusic, opts Options) (*Timeline, error) {
	if len(segments) == 0 {
		return nil, errors.New("timeline: no segments")
	}
	if len(narrations) != len(segments) || len(images) != len(segments) {
		return nil, fmt.Errorf("timeline: %d segments, %d narrations, %d images", len(segments), len(narrations), len(images))
	}

	cues := make([]Cue, len(segments))
	var cursor time.Duration
	for i, seg := range segments {
		n := narrations[i]
		if n.Duration < 0 {
			return nil, fmt.Errorf("timeline: segment %d: negative narration duration %v", i+1, n.Duration)
		}

		length := n.Duration
		if seg.Timed && seg.Span() > length {
			length = seg.Span()
		}
		if length < opts.MinCueDuration {
			length = opts.MinCueDuration
		}
		if length <= 0 {
			return nil, fmt.Errorf("timeline: segment %d has zero length", i+1)
		}

		cues[i] = Cue{
			Index:     i,
			Start:     cursor,
			End:       cursor + length,
			Narration: n,
			Subtitle:  seg.Text,
			Image:     images[i],
		}
		cursor += length
	}

	tl := &Timeline{cues: cues}
	if music != nil && music.Path != "" {
		m := *music
		tl.music = &m
	}
	return tl, nil
}

// Cues returns a copy of the cue list.
func (t *Timeline) Cues() []Cue {
	out := make([]Cue, len(t.cues))
	copy(out, t.cues)
	return out
}

func (t *Timeline) Len() int {
	return len(t.cues)
}

// Music returns the background track, if any.
func (t *Timeline) Music() (BackgroundMusic, bool) {
	if t.music == nil {
		return BackgroundMusic{}, false
	}
	return *t.music, true
}

// Duration is the end of the last cue.
func (t *Timeline) Duration() time.Duration {
	if len(t.cues) == 0 {
		return 0
	}
	return t.cues[len(t.cues)-1].End
}

// SubtitleEntries returns one subtitle block per cue, spanning the whole cue.
func (t *Timeline) SubtitleEntries() []script.Entry {
	entries := make([]script.Entry, len(t.cues))
	for i, c := range t.cues {
		entries[i] = script.Entry{Start: c.Start, End: c.End, Text: c.Subtitle}
	}
	return entries
}
