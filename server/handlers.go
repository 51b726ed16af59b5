package server

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"voicebot/core"
	"voicebot/protocol"
	"voicebot/speech"
)

// readUploadedAudio pulls the audio payload out of a multipart form.
func readUploadedAudio(r *http.Request, field string) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("invalid multipart form: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", fmt.Errorf("missing %q file field: %w", field, err)
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	return audio, header.Header.Get("Content-Type"), nil
}

// capHistory returns at most the last maxHistoryMessages entries.
func capHistory(history []core.Message) []core.Message {
	if len(history) > maxHistoryMessages {
		return history[len(history)-maxHistoryMessages:]
	}
	return history
}

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := s.requestLogger(r)

	audio, contentType, err := readUploadedAudio(r, "audio")
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("speech-to-text upload failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	transcript, err := s.stt.Transcribe(r.Context(), audio, contentType)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("transcription failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	logger.With(map[string]any{"transcript": transcript}).Info("transcribed")
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.TranscriptResponse{
		Transcript: transcript,
		Success:    true,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := s.requestLogger(r)

	req, err := protocol.DecodeJSON[protocol.ChatRequest](r.Body)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("chat request decode failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	response, err := s.llm.Complete(r.Context(), req.Message, capHistory(req.ConversationHistory))
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("chat completion failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	logger.With(map[string]any{"chars": len(response)}).Info("chat complete")
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.ChatResponse{
		Response: response,
		Success:  true,
	})
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := s.requestLogger(r)

	req, err := protocol.DecodeJSON[protocol.SpeakRequest](r.Body)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("text-to-speech request decode failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	audio, mimeType, err := s.tts.Synthesize(r.Context(), speech.Normalize(req.Text))
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("synthesis failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	logger.With(map[string]any{"bytes": len(audio)}).Info("synthesized")
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.SpeakResponse{
		Audio:    base64.StdEncoding.EncodeToString(audio),
		MimeType: mimeType,
		Success:  true,
	})
}

// handleVoice composes all three stages in one call with no conversation
// history; a deliberately stateless single-turn variant.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := s.requestLogger(r)

	audio, contentType, err := readUploadedAudio(r, "file")
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("voice upload failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	userText, err := s.stt.Transcribe(r.Context(), audio, contentType)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("voice transcription failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	botText, err := s.llm.Complete(r.Context(), userText, nil)
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("voice completion failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	botAudio, mimeType, err := s.tts.Synthesize(r.Context(), speech.Normalize(botText))
	if err != nil {
		logger.With(map[string]any{"error": err}).Error("voice synthesis failed")
		protocol.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	logger.With(map[string]any{"user_chars": len(userText), "bot_chars": len(botText)}).Info("voice pipeline complete")
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.VoiceResponse{
		UserText:  userText,
		BotText:   botText,
		BotAudio:  base64.StdEncoding.EncodeToString(botAudio),
		AudioMime: mimeType,
		Success:   true,
	})
}

// handleTestTTS is a synthesis probe. Unlike the other endpoints it reports
// failure in the body with status 200, so it stays easy to poke from a
// browser.
func (s *Server) handleTestTTS(w http.ResponseWriter, r *http.Request) {
	audio, _, err := s.tts.Synthesize(r.Context(), "Hello, this is a test message.")
	if err != nil {
		_ = protocol.WriteJSON(w, http.StatusOK, protocol.TTSProbeResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}
	_ = protocol.WriteJSON(w, http.StatusOK, protocol.TTSProbeResponse{
		Success:   true,
		AudioSize: len(audio),
	})
}
