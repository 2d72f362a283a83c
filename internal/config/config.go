// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, report scheduling, the score model constants, the
// generative text service, caching, and observability settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	// Embedded zone database so REPORT_TIMEZONE resolves on minimal images.
	_ "time/tzdata"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ScoringConfig holds the tuned weekly score constants.
type ScoringConfig struct {
	DefaultBaseline     float64 // SCORE_DEFAULT_BASELINE
	CardWeight          float64 // SCORE_WEIGHT_CARD
	ChallengeDoneWeight float64 // SCORE_WEIGHT_CHALLENGE_COMPLETED
	ChallengeFailWeight float64 // SCORE_WEIGHT_CHALLENGE_FAILED
	DiagnosisWeight     float64 // SCORE_WEIGHT_DIAGNOSIS
	NoActivityPenalty   float64 // SCORE_NO_ACTIVITY_PENALTY (kept at 0)
	LookbackWeeks       int     // SCORE_LOOKBACK_WEEKS, previous week included
}

// ReportsConfig controls the batch jobs.
type ReportsConfig struct {
	Timezone          string         // REPORT_TIMEZONE
	Location          *time.Location // resolved from Timezone
	WeeklyCron        string         // WEEKLY_REPORT_CRON
	MonthlyCron       string         // MONTHLY_REPORT_CRON
	PurgeCron         string         // IDEMPOTENCY_PURGE_CRON
	SchedulerEnabled  bool           // SCHEDULER_ENABLED
	MonthlyMinDiaries int            // MONTHLY_MIN_DIARIES
	NarrativeTimeout  time.Duration  // NARRATIVE_TIMEOUT
	JobTimeout        time.Duration  // JOB_TIMEOUT, bounds one batch run
}

// GenAIConfig configures the external generative text service.
type GenAIConfig struct {
	APIKey  string        // GEMINI_API_KEY (empty disables the external call)
	BaseURL string        // GEMINI_BASE_URL
	Model   string        // GEMINI_MODEL
	Timeout time.Duration // GEMINI_TIMEOUT
	RPS     float64       // GEMINI_RPS, outbound throttle
}

// Enabled reports whether an API key is configured.
func (g GenAIConfig) Enabled() bool { return strings.TrimSpace(g.APIKey) != "" }

// RedisConfig configures the optional report read cache.
type RedisConfig struct {
	Addr     string        // REDIS_ADDR (empty disables caching)
	Password string        // REDIS_PASSWORD
	DB       int           // REDIS_DB
	TTL      time.Duration // REPORT_CACHE_TTL
}

// HTTPConfig holds the listener settings of the report API.
type HTTPConfig struct {
	Port           string
	GinMode        string
	MaxHeaderBytes int

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// Addr is the listen address for http.Server.
func (h HTTPConfig) Addr() string { return ":" + h.Port }

// Config holds all configuration values for the application.
type Config struct {
	HTTP HTTPConfig

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBDriver    string // sqlite|postgres
	DBPath      string // SQLite path
	DatabaseURL string // Postgres DSN

	// Auth boundary
	JWTSecret  string // empty -> X-User-ID header (dev)
	AdminToken string // empty -> admin job routes are not mounted

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	Reports ReportsConfig
	Scoring ScoringConfig
	GenAI   GenAIConfig
	Redis   RedisConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		HTTP: HTTPConfig{
			Port:           getenv("PORT", "8080"),
			GinMode:        strings.ToLower(getenv("GIN_MODE", "release")),
			MaxHeaderBytes: getint("MAX_HEADER_BYTES", 1<<20),

			ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
			ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
			WriteTimeout:      getdur("WRITE_TIMEOUT", 2*time.Minute),
			IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		},

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBDriver:    strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:      getenv("DB_PATH", "reports.db"),
		DatabaseURL: getenv("DATABASE_URL", ""),

		JWTSecret:  getenv("JWT_SECRET", ""),
		AdminToken: getenv("ADMIN_TOKEN", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		Reports: ReportsConfig{
			Timezone:          getenv("REPORT_TIMEZONE", "Asia/Seoul"),
			WeeklyCron:        getenv("WEEKLY_REPORT_CRON", "5 0 * * 1"),
			MonthlyCron:       getenv("MONTHLY_REPORT_CRON", "10 0 1 * *"),
			PurgeCron:         getenv("IDEMPOTENCY_PURGE_CRON", "30 3 * * *"),
			SchedulerEnabled:  getbool("SCHEDULER_ENABLED", true),
			MonthlyMinDiaries: getint("MONTHLY_MIN_DIARIES", 6),
			NarrativeTimeout:  getdur("NARRATIVE_TIMEOUT", 12*time.Second),
			JobTimeout:        getdur("JOB_TIMEOUT", 2*time.Hour),
		},
		Scoring: ScoringConfig{
			DefaultBaseline:     getfloat("SCORE_DEFAULT_BASELINE", 61),
			CardWeight:          getfloat("SCORE_WEIGHT_CARD", 0.005),
			ChallengeDoneWeight: getfloat("SCORE_WEIGHT_CHALLENGE_COMPLETED", 0.1),
			ChallengeFailWeight: getfloat("SCORE_WEIGHT_CHALLENGE_FAILED", 0.025),
			DiagnosisWeight:     getfloat("SCORE_WEIGHT_DIAGNOSIS", 0.5),
			NoActivityPenalty:   getfloat("SCORE_NO_ACTIVITY_PENALTY", 0),
			LookbackWeeks:       getint("SCORE_LOOKBACK_WEEKS", 4),
		},
		GenAI: GenAIConfig{
			APIKey:  getenv("GEMINI_API_KEY", ""),
			BaseURL: strings.TrimRight(getenv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"), "/"),
			Model:   getenv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: getdur("GEMINI_TIMEOUT", 12*time.Second),
			RPS:     getfloat("GEMINI_RPS", 2),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			TTL:      getdur("REPORT_CACHE_TTL", 10*time.Minute),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "couple-reports"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	if m := cfg.HTTP.GinMode; m != gin.DebugMode && m != gin.TestMode {
		cfg.HTTP.GinMode = gin.ReleaseMode
	}
	if cfg.DBDriver == "postgresql" || cfg.DBDriver == "pg" {
		cfg.DBDriver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if err := cfg.HTTP.validate(); err != nil {
		return cfg, err
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	loc, err := time.LoadLocation(cfg.Reports.Timezone)
	if err != nil {
		return cfg, errors.New("REPORT_TIMEZONE must be a valid IANA zone name")
	}
	cfg.Reports.Location = loc
	if cfg.Reports.MonthlyMinDiaries < 1 {
		return cfg, errors.New("MONTHLY_MIN_DIARIES must be >= 1")
	}
	if cfg.Reports.NarrativeTimeout <= 0 || cfg.GenAI.Timeout <= 0 {
		return cfg, errors.New("NARRATIVE_TIMEOUT and GEMINI_TIMEOUT must be positive durations")
	}
	if cfg.Reports.JobTimeout <= 0 {
		return cfg, errors.New("JOB_TIMEOUT must be > 0")
	}
	if cfg.Scoring.DefaultBaseline < 0 || cfg.Scoring.DefaultBaseline > 100 {
		return cfg, errors.New("SCORE_DEFAULT_BASELINE must be between 0 and 100")
	}
	if cfg.Scoring.LookbackWeeks < 0 {
		return cfg, errors.New("SCORE_LOOKBACK_WEEKS must be >= 0")
	}
	if cfg.GenAI.RPS < 0 {
		return cfg, errors.New("GEMINI_RPS must be >= 0")
	}
	if cfg.Redis.TTL <= 0 {
		return cfg, errors.New("REPORT_CACHE_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func (h HTTPConfig) validate() error {
	if _, err := strconv.ParseUint(h.Port, 10, 16); err != nil {
		return fmt.Errorf("PORT %q is not a valid port number", h.Port)
	}
	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":        h.ReadTimeout,
		"READ_HEADER_TIMEOUT": h.ReadHeaderTimeout,
		"WRITE_TIMEOUT":       h.WriteTimeout,
		"IDLE_TIMEOUT":        h.IdleTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	if h.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}
	return nil
}
