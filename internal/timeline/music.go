package timeline

import (
	"math"
	"time"
)

// BackgroundMusic is a track laid under the whole timeline.
type BackgroundMusic struct {
	Path string
	Loop bool
	// GainDB is applied relative to narration; negative values attenuate.
	GainDB float64
	// SourceDuration is the measured length of the file, 0 when unknown.
	SourceDuration time.Duration
}

// MusicSpan is one uninterrupted play of the source starting at Start.
type MusicSpan struct {
	Start  time.Duration
	Length time.Duration
}

// Spans lays the track over [0, total). A looping track restarts right
// after each full play; the last play is cut at total.
func (m BackgroundMusic) Spans(total time.Duration) []MusicSpan {
	if total <= 0 {
		return nil
	}
	src := m.SourceDuration
	if src <= 0 {
		return []MusicSpan{{Start: 0, Length: total}}
	}
	if !m.Loop || src >= total {
		return []MusicSpan{{Start: 0, Length: min(src, total)}}
	}

	var spans []MusicSpan
	for start := time.Duration(0); start < total; start += src {
		spans = append(spans, MusicSpan{Start: start, Length: min(src, total-start)})
	}
	return spans
}

// Volume converts GainDB to a linear factor.
func (m BackgroundMusic) Volume() float64 {
	return math.Pow(10, m.GainDB/20)
}
