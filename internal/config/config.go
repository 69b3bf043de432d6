package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fit policy for images whose aspect ratio differs from the profile.
const (
	FitCrop    = "crop"
	FitPad     = "fit"
	FitStretch = "stretch"
)

// Segment boundary rules for narration text.
const (
	BoundaryParagraph = "paragraph"
	BoundaryLine      = "line"
)

// Motion applied to still images while they are held on screen.
const (
	MotionNone = "none"
	MotionZoom = "zoom"
)

type Config struct {
	InputDir     string `yaml:"input_dir"`
	Images       string `yaml:"images"`
	Music        string `yaml:"music"`
	OutputDir    string `yaml:"output_dir"`
	WorkDir      string `yaml:"work_dir"`
	KeepWorkDir  bool   `yaml:"keep_work_dir"`
	NarrationDir string `yaml:"narration_dir"`

	Script    ScriptConfig    `yaml:"script"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Render    RenderConfig    `yaml:"render"`

	ShowStats    bool   `yaml:"show_stats"`
	BuildVersion string `yaml:"-"`
}

type ScriptConfig struct {
	Boundary string `yaml:"boundary"`
}

type SynthesisConfig struct {
	Endpoint        string            `yaml:"endpoint"`
	Speaker         int               `yaml:"speaker"`
	SpeedScale      float64           `yaml:"speed_scale"`
	PitchScale      float64           `yaml:"pitch_scale"`
	IntonationScale float64           `yaml:"intonation_scale"`
	VolumeScale     float64           `yaml:"volume_scale"`
	Timeout         time.Duration     `yaml:"timeout"`
	Workers         int               `yaml:"workers"`
	Pronunciations  map[string]string `yaml:"pronunciations"`
}

type TimelineConfig struct {
	MinCueDuration time.Duration `yaml:"min_cue_duration"`
	MusicGainDB    float64       `yaml:"music_gain_db"`
}

type RenderConfig struct {
	FPS          int             `yaml:"fps"`
	Quality      int             `yaml:"quality"`
	VideoEncoder string          `yaml:"video_encoder"`
	Timeout      time.Duration   `yaml:"timeout"`
	Sequential   bool            `yaml:"sequential"`
	Motion       string          `yaml:"motion"`
	ZoomSpeed    float64         `yaml:"zoom_speed"`
	PDFDPI       int             `yaml:"pdf_dpi"`
	QR           QRConfig        `yaml:"qr"`
	Profiles     []AspectProfile `yaml:"profiles"`
}

// QRConfig describes an optional QR code stamped into the bottom-right corner.
type QRConfig struct {
	Content string `yaml:"content"`
	Size    int    `yaml:"size"`
	Margin  int    `yaml:"margin"`
}

// AspectProfile is a named output format: resolution, fit policy and subtitle style.
type AspectProfile struct {
	Name          string `yaml:"name"`
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	Fit           string `yaml:"fit"`
	SubtitleStyle string `yaml:"subtitle_style"`
}

// SegmentParams are the per-image parameters handed to an effect.
type SegmentParams struct {
	Width, Height int
	FPS           int
	Duration      float64
	Frames        int
	Fit           string
	Motion        string
	ZoomSpeed     float64
	PageIndex     int
}

func DefaultProfiles() []AspectProfile {
	return []AspectProfile{
		{
			Name:          "landscape",
			Width:         1920,
			Height:        1080,
			Fit:           FitStretch,
			SubtitleStyle: "FontName=Noto Sans CJK JP,FontSize=30",
		},
		{
			Name:          "vertical",
			Width:         1080,
			Height:        1920,
			Fit:           FitCrop,
			SubtitleStyle: "FontName=Noto Sans CJK JP,FontSize=24,MarginV=50",
		},
	}
}

// Default returns the configuration the tool runs with when no file is given.
func Default() *Config {
	return &Config{
		InputDir:  "inputs",
		Images:    "images",
		Music:     "bgm.mp3",
		OutputDir: "output",
		Script: ScriptConfig{
			Boundary: BoundaryParagraph,
		},
		Synthesis: SynthesisConfig{
			Endpoint: "http://localhost:50021",
			Speaker:  8,
			Timeout:  60 * time.Second,
			Pronunciations: map[string]string{
				"🐑": "ひつじ",
			},
		},
		Timeline: TimelineConfig{
			MinCueDuration: 250 * time.Millisecond,
			MusicGainDB:    -10.5,
		},
		Render: RenderConfig{
			FPS:       30,
			Timeout:   30 * time.Minute,
			Motion:    MotionNone,
			ZoomSpeed: 0.0005,
			PDFDPI:    150,
			QR:        QRConfig{Size: 160, Margin: 24},
			Profiles:  DefaultProfiles(),
		},
	}
}

// Load reads a YAML file on top of the defaults. A missing file is not an error
// when optional is true.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Render.Profiles) == 0 {
		cfg.Render.Profiles = DefaultProfiles()
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Script.Boundary {
	case BoundaryParagraph, BoundaryLine:
	default:
		return fmt.Errorf("unknown segment boundary %q", c.Script.Boundary)
	}
	if c.Synthesis.Endpoint == "" {
		return errors.New("synthesis endpoint is empty")
	}
	if c.Synthesis.Timeout <= 0 {
		return errors.New("synthesis timeout must be positive")
	}
	if c.Timeline.MinCueDuration <= 0 {
		return errors.New("min cue duration must be positive")
	}
	if c.Timeline.MusicGainDB > 0 {
		return fmt.Errorf("music gain %.1fdB would be louder than narration", c.Timeline.MusicGainDB)
	}
	if c.Render.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", c.Render.FPS)
	}
	switch c.Render.Motion {
	case MotionNone, MotionZoom:
	default:
		return fmt.Errorf("unknown motion %q", c.Render.Motion)
	}
	if len(c.Render.Profiles) == 0 {
		return errors.New("no aspect profiles configured")
	}
	seen := make(map[string]bool)
	for _, p := range c.Render.Profiles {
		if p.Name == "" {
			return errors.New("aspect profile without name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate aspect profile %q", p.Name)
		}
		seen[p.Name] = true
		if p.Width <= 0 || p.Height <= 0 || p.Width%2 != 0 || p.Height%2 != 0 {
			return fmt.Errorf("profile %s: size %dx%d must be positive and even", p.Name, p.Width, p.Height)
		}
		switch p.Fit {
		case FitCrop, FitPad, FitStretch:
		default:
			return fmt.Errorf("profile %s: unknown fit %q", p.Name, p.Fit)
		}
	}
	return nil
}
