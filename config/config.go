package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"voicebot/core"
)

const defaultPort = 8888

// ServerConfig holds everything the orchestration service needs to start.
// Both provider keys are required; the process refuses to serve without them.
type ServerConfig struct {
	Port           int
	DeepgramAPIKey string
	GroqAPIKey     string
}

// ClientConfig holds the session controller's connection settings.
type ClientConfig struct {
	ServerURL string
	Timeout   time.Duration
}

// LoadServer reads server configuration from .env.local (if present) and the
// environment.
func LoadServer() ServerConfig {
	loadDotenv()
	return ServerConfig{
		Port:           getEnvAsInt("PORT", defaultPort),
		DeepgramAPIKey: getEnv("DEEPGRAM_API_KEY", ""),
		GroqAPIKey:     getEnv("GROQ_API_KEY", ""),
	}
}

// LoadClient reads client configuration from .env.local (if present) and the
// environment.
func LoadClient() ClientConfig {
	loadDotenv()
	return ClientConfig{
		ServerURL: getEnv("VOICEBOT_SERVER_URL", "http://127.0.0.1:8888"),
		Timeout:   time.Duration(getEnvAsInt("VOICEBOT_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// Validate returns an error if a required credential is missing.
// A validation failure is fatal at startup.
func (c ServerConfig) Validate() error {
	if c.DeepgramAPIKey == "" {
		return errors.New("DEEPGRAM_API_KEY is not set")
	}
	if c.GroqAPIKey == "" {
		return errors.New("GROQ_API_KEY is not set")
	}
	return nil
}

func loadDotenv() {
	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Debug("No .env.local file found or failed to load")
	}
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a default fallback
func getEnvAsInt(key string, defaultValue int) int {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
