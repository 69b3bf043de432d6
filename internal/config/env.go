package config

import (
	"os"
	"strconv"
	"time"
)

// ApplyEnv overrides selected fields from S2V_* environment variables.
func (c *Config) ApplyEnv() {
	c.Synthesis.Endpoint = envStr("S2V_TTS_ENDPOINT", c.Synthesis.Endpoint)
	c.Synthesis.Speaker = envInt("S2V_TTS_SPEAKER", c.Synthesis.Speaker)
	c.Music = envStr("S2V_MUSIC", c.Music)
	c.Images = envStr("S2V_IMAGES", c.Images)
	c.OutputDir = envStr("S2V_OUTPUT_DIR", c.OutputDir)
	c.Timeline.MinCueDuration = envDuration("S2V_MIN_CUE_DURATION", c.Timeline.MinCueDuration)
	c.Timeline.MusicGainDB = envFloat("S2V_MUSIC_GAIN_DB", c.Timeline.MusicGainDB)
	c.Render.VideoEncoder = envStr("S2V_VIDEO_ENCODER", c.Render.VideoEncoder)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
