// Package script turns narration text and SRT subtitle files into ordered segments.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceKind is resolved once from the file name and selects the parser.
type SourceKind int

const (
	NarrationText SourceKind = iota
	TimedSubtitle
)

func (k SourceKind) String() string {
	switch k {
	case NarrationText:
		return "narration-text"
	case TimedSubtitle:
		return "timed-subtitle"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Segment is one unit of narration. Start and End are meaningful only when Timed is set.
type Segment struct {
	Index int
	Text  string
	Timed bool
	Start time.Duration
	End   time.Duration
}

// Span returns the explicit subtitle duration, or zero for untimed segments.
func (s Segment) Span() time.Duration {
	if !s.Timed {
		return 0
	}
	return s.End - s.Start
}

type Options struct {
	// Boundary is "paragraph" (blank-line separated) or "line".
	Boundary string
}

// KindFromPath maps a file extension to a SourceKind.
func KindFromPath(path string) (SourceKind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return NarrationText, nil
	case ".srt":
		return TimedSubtitle, nil
	default:
		return 0, &ParseError{Kind: UnsupportedFormat, Block: -1, Detail: filepath.Base(path)}
	}
}

// ParseFile reads path and parses it according to its extension.
func ParseFile(path string, opts Options) ([]Segment, SourceKind, error) {
	kind, err := KindFromPath(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kind, err
	}
	segs, err := Parse(kind, string(data), opts)
	return segs, kind, err
}

// Parse is the single dispatch point between the two source formats.
func Parse(kind SourceKind, src string, opts Options) ([]Segment, error) {
	src = normalize(src)
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{Kind: EmptySource, Block: -1}
	}

	switch kind {
	case NarrationText:
		return parseNarration(src, opts.Boundary)
	case TimedSubtitle:
		return parseSubtitles(src)
	default:
		return nil, &ParseError{Kind: UnsupportedFormat, Block: -1, Detail: kind.String()}
	}
}

func normalize(src string) string {
	src = strings.TrimPrefix(src, "\ufeff")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return strings.ReplaceAll(src, "\r", "\n")
}

func parseNarration(src, boundary string) ([]Segment, error) {
	var units []string

	switch boundary {
	case "line":
		for _, line := range strings.Split(src, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				units = append(units, line)
			}
		}
	case "paragraph", "":
		for _, block := range splitBlocks(src) {
			var lines []string
			for _, line := range block {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			units = append(units, strings.Join(lines, "\n"))
		}
	default:
		return nil, &ParseError{Kind: UnsupportedFormat, Block: -1, Detail: "boundary " + boundary}
	}

	if len(units) == 0 {
		return nil, &ParseError{Kind: EmptySource, Block: -1}
	}

	segs := make([]Segment, len(units))
	for i, text := range units {
		segs[i] = Segment{Index: i, Text: text}
	}
	return segs, nil
}

// splitBlocks groups non-blank lines separated by one or more blank lines.
func splitBlocks(src string) [][]string {
	var blocks [][]string
	var cur []string
	for _, line := range strings.Split(src, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}
