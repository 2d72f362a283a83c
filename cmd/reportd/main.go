// Command reportd serves the couple report API and runs the weekly and
// monthly report jobs on their cron schedules.
//
// @title                      Couple Reports API
// @version                    1.0
// @description                Weekly relationship scores and monthly emotional-track reports.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-couple-reports/docs"
	"github.com/tbourn/go-couple-reports/internal/analytics"
	"github.com/tbourn/go-couple-reports/internal/cache"
	"github.com/tbourn/go-couple-reports/internal/config"
	"github.com/tbourn/go-couple-reports/internal/genai"
	httpapi "github.com/tbourn/go-couple-reports/internal/http"
	"github.com/tbourn/go-couple-reports/internal/narrative"
	"github.com/tbourn/go-couple-reports/internal/observability"
	"github.com/tbourn/go-couple-reports/internal/repo"
	"github.com/tbourn/go-couple-reports/internal/scheduler"
	"github.com/tbourn/go-couple-reports/internal/scoring"
	"github.com/tbourn/go-couple-reports/internal/services"
	"github.com/tbourn/go-couple-reports/internal/sysutil"
)

var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version,
		attribute.String("report.timezone", cfg.Reports.Timezone))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(cfg.DBDriver, dsn(cfg))
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	rdb, reportCache := openCache(ctx, cfg.Redis)

	weekly, monthly, query := buildServices(cfg, db, reportCache)
	coord := &scheduler.Coordinator{
		Weekly:   weekly,
		Monthly:  monthly,
		Subjects: scheduler.DBSubjects{DB: db},
		Location: cfg.Reports.Location,
		Purge: func(ctx context.Context, now time.Time) (int64, error) {
			return repo.PurgeExpiredIdempotency(ctx, db, now)
		},
	}

	jobs, err := scheduler.NewCron(coord, scheduler.Specs{
		Weekly:  cfg.Reports.WeeklyCron,
		Monthly: cfg.Reports.MonthlyCron,
		Purge:   cfg.Reports.PurgeCron,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	if cfg.Reports.SchedulerEnabled {
		jobs.Start()
		log.Info().
			Str("timezone", cfg.Reports.Timezone).
			Str("weekly", cfg.Reports.WeeklyCron).
			Str("monthly", cfg.Reports.MonthlyCron).
			Msg("scheduler started")
	}

	gin.SetMode(cfg.HTTP.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	httpapi.RegisterRoutes(r, db, httpapi.Deps{
		Reports:   query,
		Generator: monthly,
		Jobs:      coord,
	}, cfg)
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Let a running batch finish; its per-subject writes are not resumable.
	select {
	case <-jobs.Stop().Done():
	case <-sctx.Done():
		log.Warn().Msg("job still running at shutdown deadline")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
}

func dsn(cfg config.Config) string {
	if cfg.DBDriver == repo.DriverPostgres {
		return cfg.DatabaseURL
	}
	return cfg.DBPath
}

// openCache connects to Redis when configured. A failed connection degrades
// to no caching rather than refusing to start.
func openCache(ctx context.Context, rc config.RedisConfig) (*redis.Client, cache.ReportCache) {
	if rc.Addr == "" {
		return nil, cache.Noop{}
	}
	client, err := cache.Connect(ctx, cache.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	if err != nil {
		log.Warn().Err(err).Msg("report cache disabled")
		return nil, cache.Noop{}
	}
	return client, cache.NewRedis(client, rc.TTL)
}

func buildServices(cfg config.Config, db *gorm.DB, rc cache.ReportCache) (*services.WeeklyReportService, *services.MonthlyReportService, *services.ReportQueryService) {
	loc := cfg.Reports.Location

	var client genai.Client
	if cfg.GenAI.Enabled() {
		client = genai.NewGemini(genai.GeminiConfig{
			APIKey:  cfg.GenAI.APIKey,
			BaseURL: cfg.GenAI.BaseURL,
			Model:   cfg.GenAI.Model,
			Timeout: cfg.GenAI.Timeout,
			RPS:     cfg.GenAI.RPS,
		})
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set; monthly narratives use the fallback")
	}

	weekly := &services.WeeklyReportService{
		DB:       db,
		Cache:    rc,
		Location: loc,
		Weights: scoring.Weights{
			CardSent:           cfg.Scoring.CardWeight,
			ChallengeCompleted: cfg.Scoring.ChallengeDoneWeight,
			ChallengeFailed:    cfg.Scoring.ChallengeFailWeight,
			Diagnosis:          cfg.Scoring.DiagnosisWeight,
			NoActivityPenalty:  cfg.Scoring.NoActivityPenalty,
		},
		Baseline: scoring.BaselineConfig{
			Default:       cfg.Scoring.DefaultBaseline,
			LookbackWeeks: cfg.Scoring.LookbackWeeks,
		},
	}
	monthly := &services.MonthlyReportService{
		DB:         db,
		Cache:      rc,
		Location:   loc,
		Calculator: analytics.NewCalculator(loc),
		Narrator:   narrative.New(client, narrative.WithTimeout(cfg.Reports.NarrativeTimeout)),
		MinDiaries: cfg.Reports.MonthlyMinDiaries,
	}
	query := &services.ReportQueryService{DB: db, Cache: rc}
	return weekly, monthly, query
}
