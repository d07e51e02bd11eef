package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string
	DatabaseURL string
	AuthSecret  string

	OpenAIKey   string
	ChatModel   string
	ChatTimeout time.Duration

	Transcriber string // "whisper" or "deepgram"
	DeepgramKey string

	ElevenLabsKey     string
	ElevenLabsVoiceID string
	ElevenLabsModelID string

	CacheDir      string
	CacheMaxAge   time.Duration
	CacheMaxBytes int64
	StatsPath     string

	RecorderBinary    string
	RecordingsDir     string
	PlayerBinary      string
	EarpieceDevice    string
	LoudspeakerDevice string

	TelegramToken  string
	TelegramChatID int64

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3Secure    bool
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process env")
	}

	cfg := Config{
		HTTPAddress: envOr("HTTP_ADDRESS", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		AuthSecret:  os.Getenv("AUTH_SECRET"),

		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		ChatModel:   envOr("CHAT_MODEL", "gpt-4o-mini"),
		ChatTimeout: envDuration("CHAT_TIMEOUT", 120*time.Second),

		Transcriber: envOr("TRANSCRIBER", "whisper"),
		DeepgramKey: os.Getenv("DEEPGRAM_API_KEY"),

		ElevenLabsKey:     os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsVoiceID: os.Getenv("ELEVENLABS_VOICE_ID"),
		ElevenLabsModelID: os.Getenv("ELEVENLABS_MODEL_ID"),

		CacheDir:      envOr("TTS_CACHE_DIR", "data/tts-cache"),
		CacheMaxAge:   envDuration("TTS_CACHE_MAX_AGE", 30*24*time.Hour),
		CacheMaxBytes: envBytes("TTS_CACHE_MAX_BYTES", 100<<20),
		StatsPath:     envOr("TTS_STATS_PATH", "data/tts-usage.db"),

		RecorderBinary:    envOr("RECORDER_BIN", "arecord"),
		RecordingsDir:     envOr("RECORDINGS_DIR", os.TempDir()),
		PlayerBinary:      envOr("PLAYER_BIN", "ffplay"),
		EarpieceDevice:    envOr("AUDIO_EARPIECE_DEVICE", "default"),
		LoudspeakerDevice: envOr("AUDIO_LOUDSPEAKER_DEVICE", "default"),

		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID: envInt64("TELEGRAM_ADMIN_CHAT_ID", 0),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Region:    os.Getenv("S3_REGION"),
		S3Secure:    envBool("S3_SECURE", true),
	}

	if cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - chat completion will not work")
	}
	if cfg.ElevenLabsKey == "" {
		log.Println("Warning: ELEVENLABS_API_KEY not set - speech synthesis will not work")
	}
	if cfg.AuthSecret == "" {
		log.Println("Warning: AUTH_SECRET not set - issued tokens will not survive restarts")
	}
	if cfg.Transcriber == "deepgram" && cfg.DeepgramKey == "" {
		log.Println("Warning: TRANSCRIBER=deepgram but DEEPGRAM_API_KEY not set")
	}

	log.Printf("config: HTTP_ADDRESS=%s transcriber=%s cache=%s/%s",
		cfg.HTTPAddress, cfg.Transcriber, cfg.CacheDir, humanize.Bytes(uint64(cfg.CacheMaxBytes)))

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func envBytes(key string, fallback uint64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return int64(fallback)
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %s", key, raw, humanize.Bytes(fallback))
		return int64(fallback)
	}
	return int64(n)
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %t", key, raw, fallback)
		return fallback
	}
	return b
}
