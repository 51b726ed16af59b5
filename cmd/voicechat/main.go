// Command voicechat is a line-oriented front end for the voice bot. Typed
// lines become chat turns; /say <file.wav> runs a recorded clip through the
// full voice pipeline. Replies are printed and their synthesized audio is
// written next to the transcript.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"voicebot/config"
	"voicebot/core"
	"voicebot/session"
)

func main() {
	cfg := config.LoadClient()

	var serverURL string
	var timeout time.Duration
	flag.StringVar(&serverURL, "server", cfg.ServerURL, "voice bot API base URL")
	flag.DurationVar(&timeout, "timeout", cfg.Timeout, "per-call timeout")
	flag.Parse()

	logger := core.GetLogger().With(map[string]any{"component": "voicechat"})
	client := session.NewAPIClient(serverURL, timeout, logger)

	ctx := context.Background()
	health, err := client.Health(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicechat: backend offline at %s: %v\n", serverURL, err)
		os.Exit(1)
	}
	fmt.Printf("Backend connected: %s\n", health.Message)
	fmt.Printf("  deepgram_connected=%v groq_connected=%v\n", health.DeepgramConnected, health.GroqConnected)
	fmt.Println("Type a message, /say <file.wav> to send audio, /history to review, /reset to clear, /exit to quit.")

	controller := session.NewController(client, savePlayback(logger), logger)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/exit" || line == "/quit":
			fmt.Println("bye")
			return
		case line == "/reset":
			controller.Reset()
			fmt.Println("conversation cleared")
			continue
		case line == "/history":
			printHistory(controller)
			continue
		case strings.HasPrefix(line, "/say "):
			runAudio(ctx, controller, strings.TrimSpace(strings.TrimPrefix(line, "/say ")))
			continue
		}

		result, err := controller.RunTextTurn(ctx, line)
		if err != nil {
			reportTurnError(err)
			continue
		}
		fmt.Println(result.AssistantText)
	}
}

func runAudio(ctx context.Context, controller *session.Controller, path string) {
	audio, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", path, err)
		return
	}
	result, err := controller.RunAudioTurn(ctx, audio)
	if err != nil {
		reportTurnError(err)
		return
	}
	fmt.Printf("you said: %s\n", result.UserText)
	fmt.Println(result.AssistantText)
}

// reportTurnError maps each pipeline stage's failure to its own message.
func reportTurnError(err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(os.Stderr, "still processing the previous turn, please wait")
	case errors.Is(err, session.ErrDuplicateAudio):
		fmt.Fprintln(os.Stderr, "that recording was already processed")
	case errors.Is(err, session.ErrNoSpeech):
		fmt.Fprintln(os.Stderr, "no speech detected, please try again")
	case errors.Is(err, session.ErrEmptyReply):
		fmt.Fprintln(os.Stderr, "failed to get AI response")
	case errors.Is(err, session.ErrSynthesis):
		fmt.Fprintln(os.Stderr, "failed to generate speech audio")
	default:
		fmt.Fprintf(os.Stderr, "turn failed: %v\n", err)
	}
}

func printHistory(controller *session.Controller) {
	turns := controller.Turns()
	if len(turns) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, turn := range turns {
		fmt.Printf("[%s] %s\n", turn.Role, turn.Content)
	}
}

// savePlayback stands in for audio playback: the reply is written to a temp
// mp3 so the user can play it with whatever they have.
func savePlayback(logger *core.Logger) session.PlaybackFunc {
	return func(audio []byte, mimeType string) {
		tmp, err := os.CreateTemp("", "reply-*.mp3")
		if err != nil {
			logger.With(map[string]any{"error": err}).Warn("failed to save reply audio")
			return
		}
		defer tmp.Close()
		if _, err := tmp.Write(audio); err != nil {
			logger.With(map[string]any{"error": err}).Warn("failed to save reply audio")
			return
		}
		fmt.Printf("(reply audio: %s)\n", tmp.Name())
	}
}
