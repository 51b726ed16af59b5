package stt

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"voicebot/core"
)

// DeepgramConfig holds configuration options for Deepgram prerecorded STT
type DeepgramConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	Model       string `json:"model"`
	Language    string `json:"language"`
	Punctuate   bool   `json:"punctuate"`
	SmartFormat bool   `json:"smart_format"`
}

// DefaultConfig returns a default configuration for Deepgram prerecorded STT
func DefaultConfig() *DeepgramConfig {
	return &DeepgramConfig{
		BaseURL:     "https://api.deepgram.com",
		Model:       "nova-2",
		Punctuate:   true,
		SmartFormat: true,
	}
}

// DeepgramSTTService transcribes complete audio clips via Deepgram's
// prerecorded listen API. One HTTP request per clip; no session state.
type DeepgramSTTService struct {
	config     *DeepgramConfig
	logger     *core.Logger
	httpClient *http.Client
}

// NewDeepgramSTTService creates a new Deepgram STT service instance.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewDeepgramSTTService(config *DeepgramConfig, logger *core.Logger) *DeepgramSTTService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.deepgram.com"
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	return &DeepgramSTTService{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Initialize validates the service configuration.
func (d *DeepgramSTTService) Initialize(ctx context.Context) error {
	if d.config.APIKey == "" {
		return fmt.Errorf("Deepgram API key is required")
	}
	return nil
}

// Transcribe sends a complete audio payload to Deepgram and returns the
// transcript of the first channel's best alternative. An empty transcript is
// returned as-is; deciding whether that counts as "no speech" is the caller's
// concern.
func (d *DeepgramSTTService) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	listenURL, err := d.buildListenURL()
	if err != nil {
		return "", fmt.Errorf("failed to build listen URL: %w", err)
	}

	if contentType == "" {
		contentType = "audio/wav"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, listenURL, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach Deepgram: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Deepgram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Deepgram listen returned %d: %s", resp.StatusCode, string(body))
	}

	var result listenV1Response
	if err := sonic.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse Deepgram response: %w", err)
	}

	transcript := result.transcript()
	d.logger.With(map[string]any{"chars": len(transcript)}).Debug("transcription complete")
	return transcript, nil
}

// buildListenURL constructs the listen URL with query parameters
func (d *DeepgramSTTService) buildListenURL() (string, error) {
	base, err := url.Parse(d.config.BaseURL + "/v1/listen")
	if err != nil {
		return "", err
	}

	q := base.Query()
	if d.config.Model != "" {
		q.Set("model", d.config.Model)
	}
	if d.config.Language != "" {
		q.Set("language", d.config.Language)
	}
	q.Set("punctuate", boolToString(d.config.Punctuate))
	q.Set("smart_format", boolToString(d.config.SmartFormat))

	base.RawQuery = q.Encode()
	return base.String(), nil
}

func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Response structs based on the Deepgram prerecorded API schema

type listenV1Response struct {
	Metadata struct {
		RequestID string  `json:"request_id"`
		Duration  float64 `json:"duration"`
		Channels  int     `json:"channels"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// transcript returns the first channel's best alternative, or "" when the
// provider returned no alternatives at all.
func (r *listenV1Response) transcript() string {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return ""
	}
	return r.Results.Channels[0].Alternatives[0].Transcript
}
