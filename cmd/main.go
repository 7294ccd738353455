package main

import (
	"errors"
	"log/slog"
	"os"
	"time"

	httpapi "github.com/havenward/sanctum/internal/api/http"
	"github.com/havenward/sanctum/internal/broadcast"
	"github.com/havenward/sanctum/internal/cache"
	"github.com/havenward/sanctum/internal/config"
	"github.com/havenward/sanctum/internal/external"
	"github.com/havenward/sanctum/internal/moderation"
	"github.com/havenward/sanctum/internal/repository"
	"github.com/havenward/sanctum/internal/repository/model"
	"github.com/havenward/sanctum/internal/service"
	"github.com/havenward/sanctum/lib/logger/slogpretty"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	db, err := connectDatabase(cfg.Database)
	if err != nil {
		log.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := openCache(cfg.Cache, log)
	if err != nil {
		log.Error("failed to open cache", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	sessionRepo := repository.NewPostgresSessionRepository(db)
	invitationRepo := repository.NewPostgresInvitationRepository(db)
	ackRepo := repository.NewPostgresAcknowledgmentRepository(db)

	hub := broadcast.NewHub(log)
	pipeline := setupModeration(cfg.Moderation, store, log)

	var tokens external.ChannelTokenIssuer
	if cfg.Voice.TokenSecret != "" {
		issuer, err := external.NewHMACTokenIssuer(cfg.Voice.TokenSecret)
		if err != nil {
			log.Error("failed to build token issuer", slog.Any("error", err))
			os.Exit(1)
		}
		tokens = issuer
	} else {
		log.Warn("channel token secret missing, sessions get placeholder tokens")
	}

	var synthesizer external.SpeechSynthesizer
	if cfg.Voice.SynthesisURL != "" {
		s, err := external.NewHTTPSynthesizer(cfg.Voice.SynthesisURL, cfg.Voice.SynthesisAPIKey, log)
		if err != nil {
			log.Error("failed to build synthesizer", slog.Any("error", err))
			os.Exit(1)
		}
		synthesizer = s
	} else {
		log.Warn("synthesis url missing, speak requests degrade to text only")
	}

	sessionService := service.NewSessionService(sessionRepo, ackRepo, store, hub, pipeline, log)
	inviteService := service.NewInviteService(invitationRepo, ackRepo, sessionService, tokens, log)
	voiceService := service.NewVoiceService(sessionService, ackRepo, store, synthesizer, log)

	sessionController := httpapi.NewSessionController(sessionService, hub)
	inviteController := httpapi.NewInviteController(inviteService)
	voiceController := httpapi.NewVoiceController(voiceService)

	router := httpapi.SetupRouter(sessionController, inviteController, voiceController)

	log.Info("starting application", slog.String("addr", cfg.HTTP.Address))
	if err := router.Run(cfg.HTTP.Address); err != nil {
		log.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = setupPrettySlog()
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func setupModeration(cfg config.ModerationConfig, store *cache.Store, log *slog.Logger) *moderation.Pipeline {
	if !cfg.Enabled {
		log.Warn("moderation disabled by configuration")
		return nil
	}

	detector, err := moderation.NewCrisisDetector()
	if err != nil {
		// The pipeline fails closed without a detector; sessions stay
		// usable but every message escalates.
		log.Error("failed to build crisis detector", slog.Any("error", err))
		detector = nil
	}

	var analyzer moderation.Analyzer
	if cfg.OpenAIAPIKey != "" {
		a, err := external.NewOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.Model, log)
		if err != nil {
			log.Warn("deep content analyzer unavailable", slog.Any("error", err))
		} else {
			analyzer = a
		}
	} else {
		log.Warn("openai api key missing, tier two runs heuristics only")
	}

	return moderation.NewPipeline(detector, analyzer, store, log)
}

func openCache(cfg config.CacheConfig, log *slog.Logger) (*cache.Store, error) {
	if cfg.InMemory {
		c := cache.InMemoryConfig()
		c.Logger = log
		return cache.Open(c)
	}
	c := cache.DefaultConfig(cfg.Path)
	c.Logger = log
	return cache.Open(c)
}

func connectDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.AutoMigrate(&model.Session{}, &model.Participant{}, &model.Invitation{}, &model.InvitationUse{}, &model.Acknowledgment{})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}
