package timeline

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/script2video/internal/script"
)

// Manifest is the YAML dump of a built timeline.
type Manifest struct {
	Version  string         `yaml:"version"`
	Duration float64        `yaml:"duration"` // seconds
	Cues     []ManifestCue  `yaml:"cues"`
	Music    *ManifestMusic `yaml:"music,omitempty"`
}

type ManifestCue struct {
	Index     int     `yaml:"index"`
	Start     float64 `yaml:"start"`
	End       float64 `yaml:"end"`
	Subtitle  string  `yaml:"subtitle"`
	Image     string  `yaml:"image"`
	Narration string  `yaml:"narration"`
	Speech    float64 `yaml:"speech"`
	External  bool    `yaml:"external,omitempty"`
}

type ManifestMusic struct {
	Path   string         `yaml:"path"`
	GainDB float64        `yaml:"gain_db"`
	Spans  []ManifestSpan `yaml:"spans"`
}

type ManifestSpan struct {
	Start  float64 `yaml:"start"`
	Length float64 `yaml:"length"`
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func (t *Timeline) Manifest() *Manifest {
	m := &Manifest{
		Version:  "1.0",
		Duration: seconds(t.Duration()),
		Cues:     make([]ManifestCue, len(t.cues)),
	}
	for i, c := range t.cues {
		m.Cues[i] = ManifestCue{
			Index:     c.Index,
			Start:     seconds(c.Start),
			End:       seconds(c.End),
			Subtitle:  c.Subtitle,
			Image:     c.Image.Path,
			Narration: c.Narration.Path,
			Speech:    seconds(c.Narration.Duration),
			External:  c.Narration.External,
		}
	}
	if music, ok := t.Music(); ok {
		mm := &ManifestMusic{Path: music.Path, GainDB: music.GainDB}
		for _, s := range music.Spans(t.Duration()) {
			mm.Spans = append(mm.Spans, ManifestSpan{Start: seconds(s.Start), Length: seconds(s.Length)})
		}
		m.Music = mm
	}
	return m
}

// WriteManifest writes the timeline to a YAML file
func (t *Timeline) WriteManifest(path string) error {
	data, err := yaml.Marshal(t.Manifest())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteSRT writes the generated subtitle file for the timeline.
func (t *Timeline) WriteSRT(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := script.WriteSRT(f, t.SubtitleEntries()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
