package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voicebot/core"
	"voicebot/server"
)

type fakeSTT struct {
	transcript string
	err        error
	gotAudio   []byte
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	f.gotAudio = audio
	return f.transcript, f.err
}

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(ctx context.Context, message string, history []core.Message) (string, error) {
	return f.response, f.err
}

type fakeTTS struct {
	audio []byte
	err   error
}

func (f *fakeTTS) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	return f.audio, "audio/mpeg", f.err
}

func newClientAgainst(t *testing.T, stt *fakeSTT, llm *fakeLLM, tts *fakeTTS) *APIClient {
	t.Helper()
	srv := server.New(server.Options{
		STT:               stt,
		LLM:               llm,
		TTS:               tts,
		DeepgramConnected: true,
		GroqConnected:     true,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewAPIClient(ts.URL, 5*time.Second, nil)
}

func TestHealth(t *testing.T) {
	client := newClientAgainst(t, &fakeSTT{}, &fakeLLM{}, &fakeTTS{})

	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !health.DeepgramConnected || !health.GroqConnected {
		t.Fatalf("connectivity not reported: %+v", health)
	}
	if health.Message == "" {
		t.Fatal("expected a message")
	}
}

func TestTranscribeUpload(t *testing.T) {
	stt := &fakeSTT{transcript: "turn on the lights"}
	client := newClientAgainst(t, stt, &fakeLLM{}, &fakeTTS{})

	transcript, err := client.Transcribe(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "turn on the lights" {
		t.Fatalf("unexpected transcript: %q", transcript)
	}
	if !bytes.Equal(stt.gotAudio, []byte("RIFFdata")) {
		t.Fatal("uploaded clip did not survive the multipart round trip")
	}
}

func TestChatRoundTrip(t *testing.T) {
	client := newClientAgainst(t, &fakeSTT{}, &fakeLLM{response: "Four."}, &fakeTTS{})

	history := []core.Message{{Role: core.RoleUser, Content: "hi"}}
	response, err := client.Chat(context.Background(), "What is 2+2?", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response != "Four." {
		t.Fatalf("unexpected response: %q", response)
	}
}

func TestSynthesizeDecodesAudio(t *testing.T) {
	payload := []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02}
	client := newClientAgainst(t, &fakeSTT{}, &fakeLLM{}, &fakeTTS{audio: payload})

	audio, mimeType, err := client.Synthesize(context.Background(), "read this aloud")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(audio, payload) {
		t.Fatal("audio did not survive the base64 round trip")
	}
	if mimeType != "audio/mpeg" {
		t.Fatalf("unexpected mime type: %q", mimeType)
	}
}

func TestVoiceRoundTrip(t *testing.T) {
	payload := []byte{0xFF, 0xFB, 0x90, 0x00}
	client := newClientAgainst(t,
		&fakeSTT{transcript: "hello"},
		&fakeLLM{response: "Hi there."},
		&fakeTTS{audio: payload},
	)

	out, err := client.Voice(context.Background(), []byte("RIFFdata"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Success || out.UserText != "hello" || out.BotText != "Hi there." {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestErrorEnvelopeSurfaced(t *testing.T) {
	client := newClientAgainst(t, &fakeSTT{}, &fakeLLM{err: fmt.Errorf("groq down")}, &fakeTTS{})

	_, err := client.Chat(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("expected the service failure to surface")
	}
	// The client unwraps the error envelope's detail, not the raw body.
	if !strings.Contains(err.Error(), "Error: groq down") {
		t.Fatalf("error detail not surfaced: %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("error should carry the status code: %v", err)
	}
}
