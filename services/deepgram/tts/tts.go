package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"voicebot/core"
)

// MimeType is the container Deepgram's speak API produces by default.
const MimeType = "audio/mpeg"

// DeepgramTTSConfig holds configuration for the Deepgram TTS service
type DeepgramTTSConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// DefaultConfig returns a DeepgramTTSConfig with sensible defaults
func DefaultConfig() DeepgramTTSConfig {
	return DeepgramTTSConfig{
		BaseURL: "https://api.deepgram.com",
		Model:   "aura-asteria-en",
	}
}

// DeepgramTTSService synthesizes speech via Deepgram's speak API. Each call
// is a single HTTP request; the response is staged through a scratch file and
// deleted after being read back, so no audio is retained after the call.
type DeepgramTTSService struct {
	config     DeepgramTTSConfig
	logger     *core.Logger
	httpClient *http.Client
}

// speakV1Request is the JSON body for the speak endpoint.
type speakV1Request struct {
	Text string `json:"text"`
}

// NewDeepgramTTSService creates a new Deepgram TTS service with the provided config.
// Use DefaultConfig() to get a config with sensible defaults and override only what you need.
func NewDeepgramTTSService(config DeepgramTTSConfig, logger *core.Logger) *DeepgramTTSService {
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &DeepgramTTSService{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Initialize validates the service configuration.
func (d *DeepgramTTSService) Initialize(ctx context.Context) error {
	if d.config.APIKey == "" {
		return errors.New("Deepgram API key is required")
	}
	return nil
}

// Synthesize converts text to speech and returns the audio bytes plus their
// mime type.
func (d *DeepgramTTSService) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	if text == "" {
		return nil, "", errors.New("text cannot be empty")
	}

	payload, err := sonic.Marshal(speakV1Request{Text: text})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal speak request: %w", err)
	}

	speakURL := fmt.Sprintf("%s/v1/speak?model=%s", d.config.BaseURL, d.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, speakURL, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to reach Deepgram: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("Deepgram speak returned %d: %s", resp.StatusCode, string(body))
	}

	audio, err := d.stageThroughScratchFile(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if len(audio) == 0 {
		return nil, "", errors.New("Deepgram speak returned no audio")
	}

	d.logger.With(map[string]any{"bytes": len(audio)}).Debug("synthesis complete")
	return audio, MimeType, nil
}

// stageThroughScratchFile writes the provider response to a temp file, reads
// it back and removes it. Audio only ever lives on disk for the duration of
// the call.
func (d *DeepgramTTSService) stageThroughScratchFile(r io.Reader) ([]byte, error) {
	tmp, err := os.CreateTemp("", "speak-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close scratch file: %w", err)
	}

	audio, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read scratch file: %w", err)
	}
	return audio, nil
}
