package script

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timecodeLineRe = regexp.MustCompile(`^(\d{1,2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{3})`)

var timecodeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{3})$`)

// ParseTimecode parses "HH:MM:SS,mmm" (a '.' separator is accepted too).
func ParseTimecode(s string) (time.Duration, error) {
	m := timecodeRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4])
	if mins > 59 || sec > 59 {
		return 0, fmt.Errorf("invalid timecode %q", s)
	}
	return time.Duration(h)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FormatTimecode renders d as "HH:MM:SS,mmm", rounding to the nearest millisecond.
func FormatTimecode(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalMs := int64((d + time.Millisecond/2) / time.Millisecond)
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func parseSubtitles(src string) ([]Segment, error) {
	blocks := splitBlocks(src)
	segs := make([]Segment, 0, len(blocks))
	prevSeq := 0

	for i, lines := range blocks {
		malformed := func(format string, args ...any) error {
			return &ParseError{Kind: MalformedBlock, Block: i, Detail: fmt.Sprintf(format, args...)}
		}

		seqLine := strings.TrimSpace(lines[0])
		seq, err := strconv.Atoi(seqLine)
		if err != nil {
			return nil, malformed("sequence number expected, got %q", seqLine)
		}
		if seq <= prevSeq {
			return nil, malformed("sequence %d does not follow %d", seq, prevSeq)
		}
		prevSeq = seq

		if len(lines) < 2 {
			return nil, malformed("missing timecode line")
		}
		m := timecodeLineRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
		if m == nil {
			return nil, malformed("invalid timecode line %q", strings.TrimSpace(lines[1]))
		}
		start, err := ParseTimecode(m[1])
		if err != nil {
			return nil, malformed("%v", err)
		}
		end, err := ParseTimecode(m[2])
		if err != nil {
			return nil, malformed("%v", err)
		}
		if end <= start {
			return nil, malformed("end %s is not after start %s", m[2], m[1])
		}

		var text []string
		for _, line := range lines[2:] {
			if line = strings.TrimSpace(line); line != "" {
				text = append(text, line)
			}
		}
		if len(text) == 0 {
			return nil, malformed("empty subtitle text")
		}

		segs = append(segs, Segment{
			Index: len(segs),
			Text:  strings.Join(text, "\n"),
			Timed: true,
			Start: start,
			End:   end,
		})
	}

	if len(segs) == 0 {
		return nil, &ParseError{Kind: EmptySource, Block: -1}
	}
	return segs, nil
}

// Entry is one subtitle block to be written.
type Entry struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// WriteSRT writes entries as a numbered SRT document.
func WriteSRT(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for i, e := range entries {
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimecode(e.Start), FormatTimecode(e.End), e.Text)
	}
	return bw.Flush()
}
