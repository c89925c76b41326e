package config

import (
	"strings"
	"testing"
	"time"
)

// setBaseEnv satisfies the required settings so individual tests only
// override what they exercise.
func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("INTERVIEWD_AUTH_MODE", "disabled")
	t.Setenv("INTERVIEWD_API_KEYS", "")
	t.Setenv("INTERVIEWD_OPENAI_API_KEY", "sk-test")
	t.Setenv("INTERVIEWD_POSTGRES_DSN", "")
	t.Setenv("INTERVIEWD_CORS_ORIGINS", "")
}

func TestLoadFromEnvDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.Workers != 4 || cfg.JobQueueSize != 128 {
		t.Fatalf("pool defaults = %d/%d", cfg.Workers, cfg.JobQueueSize)
	}
	if cfg.FinalDeadline != 45*time.Second {
		t.Fatalf("FinalDeadline = %v", cfg.FinalDeadline)
	}
	if !cfg.FillerEnabled {
		t.Fatal("FillerEnabled default should be true")
	}
	if cfg.DataDir != "./data" {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_ADDR", "127.0.0.1:9000")
	t.Setenv("INTERVIEWD_MODEL", "gpt-4o")
	t.Setenv("INTERVIEWD_WORKERS", "8")
	t.Setenv("INTERVIEWD_LLM_CALL_TIMEOUT", "10s")
	t.Setenv("INTERVIEWD_FINAL_DEADLINE", "25s")
	t.Setenv("INTERVIEWD_FILLER_ENABLED", "false")
	t.Setenv("INTERVIEWD_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.Model != "gpt-4o" || cfg.Workers != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LLMCallTimeout != 10*time.Second || cfg.FinalDeadline != 25*time.Second {
		t.Fatalf("timeouts = %v/%v", cfg.LLMCallTimeout, cfg.FinalDeadline)
	}
	if cfg.FillerEnabled {
		t.Fatal("FillerEnabled override not applied")
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("CORS origins = %v", cfg.CORSAllowedOrigins)
	}
	if _, ok := cfg.CORSAllowedOrigins["https://staging.example.com"]; !ok {
		t.Fatal("CSV origin was not trimmed")
	}
}

func TestLoadFromEnvAuthRequiredNeedsKeys(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_AUTH_MODE", "required")

	_, err := LoadFromEnv()
	if err == nil || !strings.Contains(err.Error(), "INTERVIEWD_API_KEYS") {
		t.Fatalf("err = %v, want API keys requirement", err)
	}
}

func TestLoadFromEnvAPIKeysParsed(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_AUTH_MODE", "required")
	t.Setenv("INTERVIEWD_API_KEYS", "key-a, key-b")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if len(cfg.APIKeys) != 2 {
		t.Fatalf("APIKeys = %v", cfg.APIKeys)
	}
	if _, ok := cfg.APIKeys["key-b"]; !ok {
		t.Fatal("second key missing")
	}
}

func TestLoadFromEnvRequiresOpenAIKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_OPENAI_API_KEY", "")

	_, err := LoadFromEnv()
	if err == nil || !strings.Contains(err.Error(), "INTERVIEWD_OPENAI_API_KEY") {
		t.Fatalf("err = %v, want OpenAI key requirement", err)
	}
}

func TestLoadFromEnvRejectsBadAuthMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_AUTH_MODE", "strict")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestLoadFromEnvDeadlineMustExceedCallTimeout(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_LLM_CALL_TIMEOUT", "30s")
	t.Setenv("INTERVIEWD_FINAL_DEADLINE", "30s")

	_, err := LoadFromEnv()
	if err == nil || !strings.Contains(err.Error(), "INTERVIEWD_FINAL_DEADLINE") {
		t.Fatalf("err = %v, want deadline ordering error", err)
	}
}

func TestLoadFromEnvInvalidValuesFallBack(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("INTERVIEWD_WORKERS", "not-a-number")
	t.Setenv("INTERVIEWD_WS_PING_INTERVAL", "soon")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Workers != 4 {
		t.Fatalf("Workers = %d, want default 4", cfg.Workers)
	}
	if cfg.WSPingInterval != 20*time.Second {
		t.Fatalf("WSPingInterval = %v, want default", cfg.WSPingInterval)
	}
}
