// Package session drives one conversational turn at a time against the
// orchestration service and holds the client-side conversation state.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"voicebot/core"
)

// historyWindow caps the history forwarded with a chat call. The client
// retains the full transcript for display but forwards only the most recent
// entries; the service trims further on its side.
const historyWindow = 10

// Stage-distinct failures surfaced to the presentation layer. Each pipeline
// stage gets its own signal so the front end never shows a generic error.
var (
	ErrBusy           = errors.New("a turn is already being processed")
	ErrEmptyInput     = errors.New("message is empty")
	ErrDuplicateAudio = errors.New("recording already processed")
	ErrNoSpeech       = errors.New("no speech detected")
	ErrEmptyReply     = errors.New("assistant returned an empty reply")
	ErrSynthesis      = errors.New("failed to generate speech audio")
)

// Backend is the slice of the orchestration service the controller needs.
type Backend interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Chat(ctx context.Context, message string, history []core.Message) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// PlaybackFunc receives the synthesized reply for playback. It is called on
// the turn's goroutine after the turn has fully succeeded.
type PlaybackFunc func(audio []byte, mimeType string)

// TurnResult is the outcome of one fully successful turn.
type TurnResult struct {
	TurnID        string
	UserText      string
	AssistantText string
	Audio         []byte
	MimeType      string
}

// Controller sequences turns and prevents overlap. Exactly one lives per
// client instance; there is a single mutator, so the processing flag is a
// cooperative guard rather than a scheduling primitive.
type Controller struct {
	backend  Backend
	logger   *core.Logger
	playback PlaybackFunc

	mu         sync.Mutex
	turns      []core.ConversationTurn
	history    []core.Message
	processing bool
	// lastAudio remembers the single most recently processed clip for
	// byte-identity dedup. No TTL, no hash: replaying an older clip after a
	// different one is processed again.
	lastAudio []byte
}

// NewController creates a session controller. playback may be nil.
func NewController(backend Backend, playback PlaybackFunc, logger *core.Logger) *Controller {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Controller{
		backend:  backend,
		logger:   logger,
		playback: playback,
	}
}

// RunAudioTurn runs one turn from a recorded clip: transcribe, chat,
// synthesize. A clip byte-identical to the previous one is rejected without
// touching the pipeline.
func (c *Controller) RunAudioTurn(ctx context.Context, audio []byte) (*TurnResult, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.lastAudio != nil && bytes.Equal(c.lastAudio, audio) {
		c.mu.Unlock()
		return nil, ErrDuplicateAudio
	}
	c.lastAudio = bytes.Clone(audio)
	c.processing = true
	c.mu.Unlock()
	defer c.endTurn()

	turnID := uuid.NewString()
	logger := c.logger.With(map[string]any{"turn_id": turnID})
	logger.Info("processing voice input")

	transcript, err := c.backend.Transcribe(ctx, audio)
	if err != nil {
		// Forget the clip so the user may retry the same recording.
		c.forgetLastAudio()
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if strings.TrimSpace(transcript) == "" {
		c.forgetLastAudio()
		return nil, ErrNoSpeech
	}
	logger.With(map[string]any{"transcript": transcript}).Info("speech recognized")

	return c.completeTurn(ctx, turnID, transcript)
}

// RunTextTurn runs one turn from typed input, skipping the transcription
// stage.
func (c *Controller) RunTextTurn(ctx context.Context, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.processing = true
	c.mu.Unlock()
	defer c.endTurn()

	return c.completeTurn(ctx, uuid.NewString(), text)
}

// completeTurn runs the chat and synthesis stages. The user turn is recorded
// before the chat call; a failure after that point leaves an unanswered user
// turn and nothing else.
func (c *Controller) completeTurn(ctx context.Context, turnID, userText string) (*TurnResult, error) {
	logger := c.logger.With(map[string]any{"turn_id": turnID})

	c.mu.Lock()
	c.turns = append(c.turns, core.ConversationTurn{Role: core.RoleUser, Content: userText})
	c.history = append(c.history, core.Message{Role: core.RoleUser, Content: userText})
	outbound := lastN(c.history, historyWindow)
	c.mu.Unlock()

	logger.Info("thinking")
	reply, err := c.backend.Chat(ctx, userText, outbound)
	if err != nil {
		return nil, fmt.Errorf("chat failed: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return nil, ErrEmptyReply
	}

	logger.Info("generating speech")
	audio, mimeType, err := c.backend.Synthesize(ctx, reply)
	if err != nil {
		// A spoken reply without audio is treated as a failed turn; the
		// assistant text is not recorded.
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	c.mu.Lock()
	c.turns = append(c.turns, core.ConversationTurn{
		Role:     core.RoleAssistant,
		Content:  reply,
		Audio:    audio,
		MimeType: mimeType,
	})
	c.history = append(c.history, core.Message{Role: core.RoleAssistant, Content: reply})
	c.mu.Unlock()

	if c.playback != nil {
		c.playback(audio, mimeType)
	}

	logger.With(map[string]any{"chars": len(reply), "audio_bytes": len(audio)}).Info("turn complete")
	return &TurnResult{
		TurnID:        turnID,
		UserText:      userText,
		AssistantText: reply,
		Audio:         audio,
		MimeType:      mimeType,
	}, nil
}

func (c *Controller) forgetLastAudio() {
	c.mu.Lock()
	c.lastAudio = nil
	c.mu.Unlock()
}

func (c *Controller) endTurn() {
	c.mu.Lock()
	c.processing = false
	c.mu.Unlock()
}

// Processing reports whether a turn is currently in flight.
func (c *Controller) Processing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing
}

// Reset clears all session state: transcript, outbound history, the
// processing flag and the audio fingerprint.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.history = nil
	c.processing = false
	c.lastAudio = nil
}

// Turns returns a copy of the displayed transcript.
func (c *Controller) Turns() []core.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// History returns a copy of the outbound chat history.
func (c *Controller) History() []core.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Message, len(c.history))
	copy(out, c.history)
	return out
}

func lastN(msgs []core.Message, n int) []core.Message {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out
}
