package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every configuration section of the service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Speech SpeechConfig
	Store  StoreConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Speech: speech, Store: loadStoreConfig()}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the OpenAI-compatible mentor backend.
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	MaxReplyTokens int
	MaxTitleTokens int
	Temperature    *float32
	RequestTimeout time.Duration
}

// Enabled reports whether the required credential is present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloat32Env("MENTOR_AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	replyTokens := 100
	if override, err := parseOptionalIntEnv("MENTOR_AI_MAX_REPLY_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		replyTokens = *override
	}

	titleTokens := 25
	if override, err := parseOptionalIntEnv("MENTOR_AI_MAX_TITLE_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		titleTokens = *override
	}

	timeout, err := parseOptionalIntEnv("MENTOR_AI_TIMEOUT")
	if err != nil {
		return AIConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil && *timeout > 0 {
		timeoutSeconds = *timeout
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("GOODFIRE_API_KEY")),
		BaseURL:        getEnvOrDefault("MENTOR_AI_BASE_URL", "https://api.goodfire.ai/api/inference/v1"),
		Model:          getEnvOrDefault("MENTOR_AI_MODEL", "meta-llama/Meta-Llama-3.1-8B-Instruct"),
		MaxReplyTokens: replyTokens,
		MaxTitleTokens: titleTokens,
		Temperature:    temperature,
		RequestTimeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// SpeechConfig describes the Google Cloud speech collaborators.
type SpeechConfig struct {
	APIKey       string
	STTBaseURL   string
	TTSBaseURL   string
	Language     string
	SpeakingRate float64
	Timeout      time.Duration
	Enabled      bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseOptionalIntEnv("SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 30
	if timeout != nil && *timeout > 0 {
		timeoutSeconds = *timeout
	}

	rate := 1.1
	if override, err := parseOptionalFloatEnv("SPEECH_SPEAKING_RATE"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil && *override > 0 {
		rate = *override
	}

	apiKey := strings.TrimSpace(os.Getenv("GOOGLE_SPEECH_API_KEY"))

	return SpeechConfig{
		APIKey:       apiKey,
		STTBaseURL:   getEnvOrDefault("SPEECH_STT_BASE_URL", "https://speech.googleapis.com"),
		TTSBaseURL:   getEnvOrDefault("SPEECH_TTS_BASE_URL", "https://texttospeech.googleapis.com"),
		Language:     getEnvOrDefault("SPEECH_LANGUAGE", "en-US"),
		SpeakingRate: rate,
		Timeout:      time.Duration(timeoutSeconds) * time.Second,
		Enabled:      apiKey != "",
	}, nil
}

// StoreConfig describes local persistence paths.
type StoreConfig struct {
	DBPath    string
	IndexPath string
}

func loadStoreConfig() StoreConfig {
	dbPath := getEnvOrDefault("SESSIONS_DB_PATH", "data/sessions.db")
	return StoreConfig{
		DBPath:    dbPath,
		IndexPath: getEnvOrDefault("SESSIONS_INDEX_PATH", dbPath+".bleve"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, err := parseOptionalFloatEnv(key)
	if err != nil || raw == nil {
		return nil, err
	}
	result := float32(*raw)
	return &result, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
