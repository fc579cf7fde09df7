// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the HTTP
// surface, persistence, the key-value store, pipeline timing, collaborator
// endpoints and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-chat-intake")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RedisConfig holds the connection settings for the Redis key-value backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PipelineConfig holds the timing knobs of the intake pipeline.
type PipelineConfig struct {
	PollEnabled     bool          // drive the coordinator from the ticker
	PollInterval    time.Duration // tick period
	CallTimeout     time.Duration // bound on every store/collaborator call
	DedupTTL        time.Duration // dedup key retention
	ActivityTTL     time.Duration // silence window before a burst flushes
	SessionTTL      time.Duration // dialogue session token lifetime
	HandoffTTL      time.Duration // how long a transferred buyer is left alone
	BurstPayloadTTL time.Duration // safety expiry on staged burst payloads
	BurstPolicy     string        // latest|first
}

// PlatformConfig holds the chat platform endpoint and transfer settings.
type PlatformConfig struct {
	BaseURL         string
	APIKey          string
	TransferMode    string // Group|Nick
	TransferTarget  string // group id or agent nick
	TransferMessage string // sent to the buyer before a transfer
}

// EngineConfig holds the dialogue engine endpoint settings.
type EngineConfig struct {
	BaseURL      string
	AppKey       string
	ResponseMode string // streaming|blocking
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Persistence
	DBDriver string // sqlite|mysql
	DBPath   string // SQLite path
	DBDSN    string // MySQL DSN

	// Key-value store
	KVBackend string // redis|sql
	Redis     RedisConfig

	Pipeline PipelineConfig

	// Rules
	RulesPath   string   // optional YAML override of the built-in rule tables
	TestUserIDs []string // buyers whose transfers are suppressed and unaudited

	// Collaborators
	Platform      PlatformConfig
	Engine        EngineConfig
	VisionBaseURL string // empty disables vision/OCR

	// Rate limiting (push endpoint)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	CORS CORSConfig

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
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Persistence
		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBPath:   getenv("DB_PATH", "app.db"),
		DBDSN:    getenv("DB_DSN", ""),

		// Key-value store
		KVBackend: strings.ToLower(getenv("KV_BACKEND", "redis")),
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		Pipeline: PipelineConfig{
			PollEnabled:     getbool("POLL_ENABLED", true),
			PollInterval:    getdur("POLL_INTERVAL", time.Second),
			CallTimeout:     getdur("CALL_TIMEOUT", 10*time.Second),
			DedupTTL:        getdur("DEDUP_TTL", 24*time.Hour),
			ActivityTTL:     getdur("ACTIVITY_TTL", 20*time.Second),
			SessionTTL:      getdur("SESSION_TTL", 24*time.Hour),
			HandoffTTL:      getdur("HANDOFF_TTL", 200*time.Second),
			BurstPayloadTTL: getdur("BURST_PAYLOAD_TTL", 10*time.Minute),
			BurstPolicy:     strings.ToLower(getenv("BURST_POLICY", "latest")),
		},

		RulesPath:   getenv("RULES_PATH", ""),
		TestUserIDs: splitCSV(getenv("TEST_USER_IDS", "")),

		Platform: PlatformConfig{
			BaseURL:         getenv("SAINIU_BASE_URL", ""),
			APIKey:          getenv("SAINIU_API_KEY", ""),
			TransferMode:    getenv("QN_TRANS_MODE", "Group"),
			TransferTarget:  getenv("QN_TRANS_TARGET", ""),
			TransferMessage: getenv("QN_TRANS_MESSAGE", "亲爱的，稍等给您转专席客服"),
		},
		Engine: EngineConfig{
			BaseURL:      getenv("DIFY_BASE_URL", ""),
			AppKey:       getenv("DIFY_APP_KEY", ""),
			ResponseMode: strings.ToLower(getenv("DIFY_RESPONSE_MODE", "streaming")),
		},
		VisionBaseURL: getenv("VISION_BASE_URL", ""),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 20.0),
		RateBurst: getint("RATE_BURST", 40),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-chat-intake"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch strings.ToLower(cfg.Platform.TransferMode) {
	case "nick":
		cfg.Platform.TransferMode = "Nick"
	case "group":
		cfg.Platform.TransferMode = "Group"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DBDriver {
	case "sqlite":
		if strings.TrimSpace(cfg.DBPath) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "mysql":
		if strings.TrimSpace(cfg.DBDSN) == "" {
			return cfg, errors.New("DB_DSN must be set when DB_DRIVER=mysql")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, mysql")
	}
	switch cfg.KVBackend {
	case "redis":
		if strings.TrimSpace(cfg.Redis.Addr) == "" {
			return cfg, errors.New("REDIS_ADDR must not be empty")
		}
	case "sql":
	default:
		return cfg, errors.New("KV_BACKEND must be one of: redis, sql")
	}
	p := cfg.Pipeline
	if p.PollInterval <= 0 || p.CallTimeout <= 0 || p.DedupTTL <= 0 || p.ActivityTTL <= 0 ||
		p.SessionTTL <= 0 || p.HandoffTTL <= 0 || p.BurstPayloadTTL <= 0 {
		return cfg, errors.New("pipeline durations must be positive")
	}
	if p.ActivityTTL >= p.BurstPayloadTTL {
		return cfg, errors.New("ACTIVITY_TTL must be shorter than BURST_PAYLOAD_TTL")
	}
	switch p.BurstPolicy {
	case "latest", "first":
	default:
		return cfg, errors.New("BURST_POLICY must be one of: latest, first")
	}
	switch cfg.Platform.TransferMode {
	case "Group", "Nick":
	default:
		return cfg, errors.New("QN_TRANS_MODE must be one of: Group, Nick")
	}
	switch cfg.Engine.ResponseMode {
	case "streaming", "blocking":
	default:
		return cfg, errors.New("DIFY_RESPONSE_MODE must be one of: streaming, blocking")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

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
