package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"voicebot/config"
	"voicebot/core"
	"voicebot/server"
	deepgramstt "voicebot/services/deepgram/stt"
	deepgramtts "voicebot/services/deepgram/tts"
	groqllm "voicebot/services/groq/llm"
)

func main() {
	logger := core.GetLogger().With(map[string]any{"component": "server"})

	cfg := config.LoadServer()
	if err := cfg.Validate(); err != nil {
		logger.With(map[string]any{"error": err}).Fatal("configuration invalid, refusing to start")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sttConfig := deepgramstt.DefaultConfig()
	sttConfig.APIKey = cfg.DeepgramAPIKey
	sttService := deepgramstt.NewDeepgramSTTService(sttConfig, logger)

	ttsConfig := deepgramtts.DefaultConfig()
	ttsConfig.APIKey = cfg.DeepgramAPIKey
	ttsService := deepgramtts.NewDeepgramTTSService(ttsConfig, logger)

	llmConfig := groqllm.DefaultConfig()
	llmConfig.APIKey = cfg.GroqAPIKey
	llmService := groqllm.NewGroqLLMService(llmConfig, logger)

	for _, svc := range []interface {
		Initialize(context.Context) error
	}{sttService, ttsService, llmService} {
		if err := svc.Initialize(ctx); err != nil {
			logger.With(map[string]any{"error": err}).Fatal("service initialization failed")
		}
	}

	srv := server.New(server.Options{
		Logger:            logger,
		STT:               sttService,
		LLM:               llmService,
		TTS:               ttsService,
		DeepgramConnected: cfg.DeepgramAPIKey != "",
		GroqConnected:     cfg.GroqAPIKey != "",
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.With(map[string]any{"port": cfg.Port}).Info("starting voice bot API")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.With(map[string]any{"error": err}).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
