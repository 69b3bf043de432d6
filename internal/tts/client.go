package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ivlev/script2video/internal/config"
)

// Client talks to a VOICEVOX engine: audio_query followed by synthesis.
type Client struct {
	baseURL    string
	speaker    int
	overrides  map[string]float64
	replacer   *strings.Replacer
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client from the synthesis section of the config.
func NewClient(cfg config.SynthesisConfig) *Client {
	overrides := make(map[string]float64)
	for key, v := range map[string]float64{
		"speedScale":      cfg.SpeedScale,
		"pitchScale":      cfg.PitchScale,
		"intonationScale": cfg.IntonationScale,
		"volumeScale":     cfg.VolumeScale,
	} {
		if v != 0 {
			overrides[key] = v
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.Endpoint, "/"),
		speaker:   cfg.Speaker,
		overrides: overrides,
		replacer:  newReplacer(cfg.Pronunciations),
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// newReplacer builds a replacer that tries longer keys first.
func newReplacer(pron map[string]string) *strings.Replacer {
	if len(pron) == 0 {
		return nil
	}
	keys := make([]string, 0, len(pron))
	for k := range pron {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, pron[k])
	}
	return strings.NewReplacer(pairs...)
}

// Prepare returns the text actually sent to the engine.
func (c *Client) Prepare(text string) string {
	if c.replacer != nil {
		text = c.replacer.Replace(text)
	}
	return strings.TrimSpace(text)
}

// Synthesize implements Synthesizer.
func (c *Client) Synthesize(ctx context.Context, text string) (Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query, err := c.audioQuery(ctx, c.Prepare(text))
	if err != nil {
		return Audio{}, unavailable(-1, err)
	}
	for k, v := range c.overrides {
		query[k] = v
	}

	data, err := c.synthesis(ctx, query)
	if err != nil {
		return Audio{}, unavailable(-1, err)
	}

	info, err := MeasureWAV(data)
	if err != nil {
		return Audio{}, unavailable(-1, fmt.Errorf("decode synthesized audio: %w", err))
	}

	return Audio{
		Data:       data,
		Format:     "wav",
		SampleRate: info.SampleRate,
		Duration:   info.Duration,
	}, nil
}

func (c *Client) audioQuery(ctx context.Context, text string) (map[string]any, error) {
	params := url.Values{}
	params.Set("speaker", strconv.Itoa(c.speaker))
	params.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio_query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("audio_query: %w", err)
	}

	var query map[string]any
	if err := json.Unmarshal(body, &query); err != nil {
		return nil, fmt.Errorf("audio_query decode: %w", err)
	}
	return query, nil
}

func (c *Client) synthesis(ctx context.Context, query map[string]any) ([]byte, error) {
	jsonBody, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/synthesis?speaker=%d", c.baseURL, c.speaker)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	data, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	return data, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
