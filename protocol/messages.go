// Package protocol defines the wire contract between the session controller
// and the orchestration service. Every endpoint has an explicit request and
// response schema; nothing is passed as loose maps.
package protocol

import "voicebot/core"

// RootResponse is returned by GET /. The connectivity booleans are derived
// once at startup from credential presence and are stable for the process
// lifetime.
type RootResponse struct {
	Message           string `json:"message"`
	DeepgramConnected bool   `json:"deepgram_connected"`
	GroqConnected     bool   `json:"groq_connected"`
}

// TranscriptResponse is returned by POST /speech-to-text. An empty transcript
// with Success=true means the provider heard no speech; that is not an error.
type TranscriptResponse struct {
	Transcript string `json:"transcript"`
	Success    bool   `json:"success"`
}

// ChatRequest is the body of POST /chat. ConversationHistory is ordered
// oldest-first and is capped server-side to the most recent entries before
// being forwarded to the language model.
type ChatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []core.Message `json:"conversation_history"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

// SpeakRequest is the body of POST /text-to-speech.
type SpeakRequest struct {
	Text string `json:"text"`
}

// SpeakResponse is returned by POST /text-to-speech. Audio is the synthesized
// payload encoded as base64 for transport.
type SpeakResponse struct {
	Audio    string `json:"audio"`
	MimeType string `json:"mime_type"`
	Success  bool   `json:"success"`
}

// VoiceResponse is returned by POST /voice, the single-call composition of
// all three pipeline stages with no conversation history.
type VoiceResponse struct {
	UserText  string `json:"user_text"`
	BotText   string `json:"bot_text"`
	BotAudio  string `json:"bot_audio"`
	AudioMime string `json:"audio_mime"`
	Success   bool   `json:"success"`
}

// TTSProbeResponse is returned by GET /test-tts.
type TTSProbeResponse struct {
	Success   bool   `json:"success"`
	AudioSize int    `json:"audio_size,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the uniform error envelope for upstream failures.
// Detail always starts with "Error:".
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Service       string  `json:"service"`
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
}
