package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/Vovarama1992/go-utils/logger"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ai"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/audio"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/config"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/conversation"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/delivery"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/history"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/infra"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/notifier"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/profile"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/speech"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / DB INIT
	// =========================================================================

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}
	defer db.Close()

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	var alertTransport notifier.Notifier
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifier.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("telegram notifier disabled: %v", err)
		} else {
			alertTransport = tg
		}
	}
	alerts := notifier.NewService(alertTransport)

	// =========================================================================
	// INFRASTRUCTURE (AUDIO / STORAGE)
	// =========================================================================

	recorder := audio.NewExecRecorder(cfg.RecorderBinary, nil, cfg.RecordingsDir)
	player := audio.NewExecPlayer(cfg.PlayerBinary, nil, map[ports.OutputRoute]string{
		ports.RouteEarpiece:    cfg.EarpieceDevice,
		ports.RouteLoudspeaker: cfg.LoudspeakerDevice,
	})

	var archive ports.S3Client
	if cfg.S3Endpoint != "" {
		archive, err = infra.NewS3Client(infra.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Secure:    cfg.S3Secure,
		})
		if err != nil {
			log.Printf("utterance archive disabled: %v", err)
			archive = nil
		}
	}

	ttsCache, err := speech.NewCache(cfg.CacheDir, cfg.CacheMaxAge, cfg.CacheMaxBytes)
	if err != nil {
		log.Fatalf("failed to init tts cache: %v", err)
	}

	ttsStats, err := speech.OpenStatsStore(cfg.StatsPath)
	if err != nil {
		log.Fatalf("failed to open tts stats: %v", err)
	}
	defer ttsStats.Close()

	// =========================================================================
	// REPOSITORIES
	// =========================================================================

	sessionRepo := history.NewRepo(db)
	userRepo := profile.NewRepo(db)

	// =========================================================================
	// CLIENTS (AI / TTS / STT)
	// =========================================================================

	chatClient := ai.NewOpenAIClient(cfg.OpenAIKey)
	ttsClient := speech.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsModelID)

	var stt ports.Transcriber
	switch cfg.Transcriber {
	case "deepgram":
		stt = speech.NewDeepgramClient(cfg.DeepgramKey)
	default:
		stt = speech.NewWhisperClient(cfg.OpenAIKey)
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	tokens := profile.NewTokenService(cfg.AuthSecret)
	authService := profile.NewService(userRepo)
	historyService := history.NewService(sessionRepo, alerts, cfg.ChatModel)
	speechService := speech.NewService(ttsClient, ttsCache, ttsStats, player, cfg.ElevenLabsVoiceID)

	flow := conversation.NewService(
		authService,
		chatClient,
		stt,
		speechService,
		recorder,
		historyService,
		cfg.ChatModel,
		cfg.ChatTimeout,
	)
	if archive != nil {
		flow.SetArchive(archive)
	}
	speechService.SetPauseProbe(flow.IsPaused)

	flow.SetErrorObserver(func(convErr error) {
		detail := "conversation failure"
		if cerr, ok := converr.As(convErr); ok && cerr.Kind == converr.KindAPI {
			detail = ai.Diagnose(convErr)
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = alerts.Notify(ctx, convErr, detail)
		}()
	})

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// HANDLERS
	convHandler := delivery.NewConversationHandler(flow, zl)
	histHandler := delivery.NewHistoryHandler(historyService, zl)
	speechHandler := delivery.NewSpeechHandler(ttsStats)

	// ROUTES
	delivery.RegisterRoutes(
		r,
		convHandler,
		histHandler,
		speechHandler,
		tokens,
	)

	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})

	// =========================================================================
	// BACKGROUND JOBS
	// =========================================================================

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			ttsCache.Sweep(true)
		}
	}()

	// =========================================================================
	// START SERVER
	// =========================================================================

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + cfg.HTTPAddress,
		Service: "language-tutor",
	})

	if err := http.ListenAndServe(cfg.HTTPAddress, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
