package main

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"symptom-checker/internal/catalog"
	"symptom-checker/internal/config"
	"symptom-checker/internal/consultation"
	"symptom-checker/internal/facility"
	"symptom-checker/internal/metrics"
	"symptom-checker/internal/platform/database"
	"symptom-checker/internal/platform/telegram"
	"symptom-checker/internal/report"
	"symptom-checker/internal/speech"
	"symptom-checker/internal/symptom"
)

// app holds everything wired from config.
type app struct {
	service    consultation.Service
	metrics    *metrics.Metrics
	conditions *catalog.Conditions
	facilities *catalog.Facilities
	db         *sql.DB
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{metrics: metrics.New()}

	rules := symptom.DefaultRules()
	if cfg.LexiconPath != "" {
		loaded, err := symptom.LoadRules(cfg.LexiconPath)
		if err != nil {
			return nil, err
		}
		rules = loaded
		logger.Info().Str("path", cfg.LexiconPath).Int("labels", rules.Lexicon.Len()).Msg("symptom rules loaded")
	}

	a.conditions = catalog.LoadConditions(cfg.DiseasesPath, logger)
	a.facilities = catalog.LoadFacilities(cfg.HospitalsPath, logger)
	a.metrics.SetCatalog("conditions", string(a.conditions.Status), len(a.conditions.Conditions), a.conditions.Skipped)
	a.metrics.SetCatalog("facilities", string(a.facilities.Status), len(a.facilities.Facilities), a.facilities.Skipped)

	locator := facility.NewLocator(a.facilities.Facilities, a.facilities.Specializations, facility.Config{
		MaxDistanceKm: cfg.MaxDistanceKm,
		AvgSpeedKmh:   cfg.AvgSpeedKmh,
	}, logger)

	deps := consultation.Deps{
		Repo:       consultation.NewMemoryRepository(),
		Extractor:  symptom.NewExtractor(rules),
		Conditions: a.conditions.Conditions,
		Locator:    locator,
		Recorder:   a.metrics,
		Logger:     logger,
	}

	if cfg.Persistent() {
		if err := database.Migrate(cfg.MigrationsDir, cfg.DatabaseURL, database.Up, logger); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.metrics.Registry().MustRegister(collectors.NewDBStatsCollector(db, "consultations"))
		deps.Repo = consultation.NewRepository(db)
		logger.Info().Msg("connected to database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set, consultations are kept in memory")
	}

	if cfg.SpeechEnabled() {
		deps.STT = speech.NewWhisperClient(cfg.STTURL, speech.WithVocabulary(rules.Lexicon.Labels()))
	}
	if cfg.TTSAPIKey != "" {
		deps.TTS = speech.NewElevenLabsClient(cfg.TTSURL, cfg.TTSAPIKey)
	}
	if cfg.ReportsEnabled() {
		deps.Report = report.NewService(telegram.NewClient(cfg.TelegramToken), cfg.CareTeamChatID, logger)
	} else {
		logger.Info().Msg("care team reports disabled")
	}

	a.service = consultation.NewService(deps)
	return a, nil
}

func (a *app) health() map[string]any {
	status := "ok"
	if a.conditions.Degraded() || a.facilities.Degraded() {
		status = "degraded"
	}
	return map[string]any{
		"status":     status,
		"conditions": a.conditions.Status,
		"facilities": a.facilities.Status,
	}
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
