package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// CORS
	CORSAllowedOrigins map[string]struct{} // empty => disabled

	// Storage. An empty PostgresDSN selects the local file store under DataDir.
	PostgresDSN    string
	DataDir        string
	MigrateOnStart bool

	// Interview planning.
	QuestionBankPath string

	// Generation backend.
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	Model           string
	FillerModel     string
	MaxTokens       int64
	FillerMaxTokens int64
	Temperature     float64

	// Job execution.
	Workers        int
	JobQueueSize   int
	LLMCallTimeout time.Duration
	FinalRetries   int
	RetryBaseDelay time.Duration

	// Session behavior.
	FinalDeadline time.Duration
	FillerEnabled bool

	// Live WebSocket connections.
	WSPingInterval      time.Duration
	WSWriteTimeout      time.Duration
	WSReadTimeout       time.Duration
	WSMaxMessageBytes   int64
	WSOutboundQueueSize int

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("INTERVIEWD_ADDR", ":8080"),
		AuthMode:            AuthMode(envOr("INTERVIEWD_AUTH_MODE", string(AuthModeRequired))),
		APIKeys:             make(map[string]struct{}),
		CORSAllowedOrigins:  make(map[string]struct{}),
		PostgresDSN:         strings.TrimSpace(os.Getenv("INTERVIEWD_POSTGRES_DSN")),
		DataDir:             envOr("INTERVIEWD_DATA_DIR", "./data"),
		MigrateOnStart:      envBoolOr("INTERVIEWD_MIGRATE_ON_START", true),
		QuestionBankPath:    strings.TrimSpace(os.Getenv("INTERVIEWD_QUESTION_BANK")),
		OpenAIAPIKey:        strings.TrimSpace(os.Getenv("INTERVIEWD_OPENAI_API_KEY")),
		OpenAIBaseURL:       strings.TrimSpace(os.Getenv("INTERVIEWD_OPENAI_BASE_URL")),
		Model:               envOr("INTERVIEWD_MODEL", "gpt-4o-mini"),
		FillerModel:         strings.TrimSpace(os.Getenv("INTERVIEWD_FILLER_MODEL")),
		MaxTokens:           envInt64Or("INTERVIEWD_MAX_TOKENS", 512),
		FillerMaxTokens:     envInt64Or("INTERVIEWD_FILLER_MAX_TOKENS", 30),
		Temperature:         envFloat64Or("INTERVIEWD_TEMPERATURE", 0.7),
		Workers:             envIntOr("INTERVIEWD_WORKERS", 4),
		JobQueueSize:        envIntOr("INTERVIEWD_JOB_QUEUE_SIZE", 128),
		LLMCallTimeout:      envDurationOr("INTERVIEWD_LLM_CALL_TIMEOUT", 30*time.Second),
		FinalRetries:        envIntOr("INTERVIEWD_FINAL_RETRIES", 2),
		RetryBaseDelay:      envDurationOr("INTERVIEWD_RETRY_BASE_DELAY", 500*time.Millisecond),
		FinalDeadline:       envDurationOr("INTERVIEWD_FINAL_DEADLINE", 45*time.Second),
		FillerEnabled:       envBoolOr("INTERVIEWD_FILLER_ENABLED", true),
		WSPingInterval:      envDurationOr("INTERVIEWD_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout:      envDurationOr("INTERVIEWD_WS_WRITE_TIMEOUT", 5*time.Second),
		WSReadTimeout:       envDurationOr("INTERVIEWD_WS_READ_TIMEOUT", 0),
		WSMaxMessageBytes:   envInt64Or("INTERVIEWD_WS_MAX_MESSAGE_BYTES", 64*1024),
		WSOutboundQueueSize: envIntOr("INTERVIEWD_WS_OUTBOUND_QUEUE_SIZE", 64),
		ReadHeaderTimeout:   envDurationOr("INTERVIEWD_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("INTERVIEWD_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("INTERVIEWD_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("INTERVIEWD_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("INTERVIEWD_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}
	for _, origin := range splitCSV(os.Getenv("INTERVIEWD_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_API_KEYS must be set when INTERVIEWD_AUTH_MODE=required")
	}
	if cfg.PostgresDSN == "" && strings.TrimSpace(cfg.DataDir) == "" {
		return Config{}, fmt.Errorf("INTERVIEWD_DATA_DIR must not be empty when INTERVIEWD_POSTGRES_DSN is unset")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("INTERVIEWD_OPENAI_API_KEY must be set")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return Config{}, fmt.Errorf("INTERVIEWD_MODEL must not be empty")
	}
	if cfg.MaxTokens <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_MAX_TOKENS must be > 0")
	}
	if cfg.FillerMaxTokens <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_FILLER_MAX_TOKENS must be > 0")
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("INTERVIEWD_TEMPERATURE must be in [0, 2]")
	}
	if cfg.Workers <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_WORKERS must be > 0")
	}
	if cfg.JobQueueSize <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_JOB_QUEUE_SIZE must be > 0")
	}
	if cfg.LLMCallTimeout <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_LLM_CALL_TIMEOUT must be > 0")
	}
	if cfg.FinalRetries < 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_FINAL_RETRIES must be >= 0")
	}
	if cfg.RetryBaseDelay <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_RETRY_BASE_DELAY must be > 0")
	}
	if cfg.FinalDeadline <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_FINAL_DEADLINE must be > 0")
	}
	if cfg.FinalDeadline <= cfg.LLMCallTimeout {
		return Config{}, fmt.Errorf("INTERVIEWD_FINAL_DEADLINE must be > INTERVIEWD_LLM_CALL_TIMEOUT")
	}
	if cfg.WSPingInterval <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.WSReadTimeout < 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_WS_READ_TIMEOUT must be >= 0")
	}
	if cfg.WSMaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_WS_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.WSOutboundQueueSize <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_WS_OUTBOUND_QUEUE_SIZE must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("INTERVIEWD_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
