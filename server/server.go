// Package server exposes the orchestration service: stateless HTTP adapters
// over the speech-to-text, chat and speech-synthesis providers, plus one
// endpoint composing all three. The service keeps no memory between calls;
// conversation history is whatever the caller supplies.
package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"voicebot/core"
	"voicebot/protocol"
)

// maxHistoryMessages caps the conversation history forwarded to the language
// model, regardless of how much the caller sends.
const maxHistoryMessages = 6

// maxUploadBytes bounds multipart audio uploads.
const maxUploadBytes = 32 << 20

// STTService transcribes a complete audio clip.
type STTService interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// LLMService produces one chat completion for a message plus prior history.
type LLMService interface {
	Complete(ctx context.Context, message string, history []core.Message) (string, error)
}

// TTSService synthesizes speech, returning audio bytes and their mime type.
type TTSService interface {
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// Server holds the provider adapters and startup-derived state.
type Server struct {
	logger *core.Logger
	stt    STTService
	llm    LLMService
	tts    TTSService

	// Connectivity booleans reported by GET /, determined once at startup
	// from credential presence and stable for the process lifetime.
	deepgramConnected bool
	groqConnected     bool

	startTime time.Time
}

// Options configures a Server.
type Options struct {
	Logger            *core.Logger
	STT               STTService
	LLM               LLMService
	TTS               TTSService
	DeepgramConnected bool
	GroqConnected     bool
}

// New creates a Server from the given provider adapters.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		logger:            logger,
		stt:               opts.STT,
		llm:               opts.LLM,
		tts:               opts.TTS,
		deepgramConnected: opts.DeepgramConnected,
		groqConnected:     opts.GroqConnected,
		startTime:         time.Now(),
	}
}

// Handler returns the fully-routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/speech-to-text", s.handleSpeechToText)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/text-to-speech", s.handleTextToSpeech)
	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc("/test-tts", s.handleTestTTS)
	mux.HandleFunc("/status", s.handleStatus)
	return s.withCORS(s.withRequestLog(mux))
}

// withRequestLog tags every request with an id and logs method, path and
// duration once the handler returns.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r.WithContext(withRequestLogger(r.Context(), s.logger.With(map[string]any{
			"request_id": requestID,
		}))))
		s.logger.With(map[string]any{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"duration":   time.Since(start).String(),
		}).Info("request handled")
	})
}

// withCORS allows any origin; the front end is served from elsewhere.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestLoggerKey struct{}

func withRequestLogger(ctx context.Context, logger *core.Logger) context.Context {
	return context.WithValue(ctx, requestLoggerKey{}, logger)
}

// requestLogger returns the per-request logger, falling back to the server's.
func (s *Server) requestLogger(r *http.Request) *core.Logger {
	if logger, ok := r.Context().Value(requestLoggerKey{}).(*core.Logger); ok {
		return logger
	}
	return s.logger
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.RootResponse{
		Message:           "Voice Bot API is running",
		DeepgramConnected: s.deepgramConnected,
		GroqConnected:     s.groqConnected,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.StatusResponse{
		Service:       "voicebot",
		Status:        "operational",
		Uptime:        time.Since(s.startTime).String(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(m.Alloc) / 1024 / 1024,
	})
}
