package session

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"voicebot/core"
	"voicebot/protocol"
)

// APIClient is a typed HTTP client for the orchestration service. Every call
// is bounded by the client timeout; there are no retries.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *core.Logger
}

// NewAPIClient creates a client for the orchestration service at baseURL.
func NewAPIClient(baseURL string, timeout time.Duration, logger *core.Logger) *APIClient {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Health checks the service root and reports provider connectivity.
func (c *APIClient) Health(ctx context.Context) (protocol.RootResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return protocol.RootResponse{}, err
	}
	return doJSON[protocol.RootResponse](c, req)
}

// Transcribe uploads a recorded clip to /speech-to-text.
func (c *APIClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req, err := c.newAudioUpload(ctx, "/speech-to-text", "audio", audio)
	if err != nil {
		return "", err
	}
	resp, err := doJSON[protocol.TranscriptResponse](c, req)
	if err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

// Chat posts a message plus prior history to /chat.
func (c *APIClient) Chat(ctx context.Context, message string, history []core.Message) (string, error) {
	body, err := sonic.Marshal(protocol.ChatRequest{
		Message:             message,
		ConversationHistory: history,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doJSON[protocol.ChatResponse](c, req)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Synthesize posts text to /text-to-speech and returns the decoded audio and
// its mime type.
func (c *APIClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	body, err := sonic.Marshal(protocol.SpeakRequest{Text: text})
	if err != nil {
		return nil, "", fmt.Errorf("marshal speak request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := doJSON[protocol.SpeakResponse](c, req)
	if err != nil {
		return nil, "", err
	}
	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, "", fmt.Errorf("decode audio payload: %w", err)
	}
	return audio, resp.MimeType, nil
}

// Voice runs the composed single-turn pipeline on /voice.
func (c *APIClient) Voice(ctx context.Context, audio []byte) (protocol.VoiceResponse, error) {
	req, err := c.newAudioUpload(ctx, "/voice", "file", audio)
	if err != nil {
		return protocol.VoiceResponse{}, err
	}
	return doJSON[protocol.VoiceResponse](c, req)
}

// newAudioUpload builds a multipart POST carrying one wav clip.
func (c *APIClient) newAudioUpload(ctx context.Context, path, field string, audio []byte) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// doJSON executes a request and decodes a typed response. Non-200 responses
// are surfaced with the service's error detail when present.
func doJSON[T any](c *APIClient, req *http.Request) (T, error) {
	var zero T
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return zero, fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope protocol.ErrorResponse
		if unmarshalErr := sonic.Unmarshal(body, &envelope); unmarshalErr == nil && envelope.Detail != "" {
			return zero, fmt.Errorf("%s returned %d: %s", req.URL.Path, resp.StatusCode, envelope.Detail)
		}
		return zero, fmt.Errorf("%s returned %d: %s", req.URL.Path, resp.StatusCode, string(body))
	}

	var v T
	if err := sonic.Unmarshal(body, &v); err != nil {
		return zero, fmt.Errorf("unmarshal response: %w", err)
	}
	return v, nil
}
