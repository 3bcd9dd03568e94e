package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("N8N_WEBHOOK_URL", "https://n8n.example.com/webhook/abc")
	t.Setenv("GROQ_API_KEY", "gsk_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 3000 {
		t.Fatalf("unexpected default port: %d", cfg.Port)
	}
	if cfg.HeartbeatInterval != 5*time.Minute {
		t.Fatalf("unexpected heartbeat interval: %s", cfg.HeartbeatInterval)
	}
	if cfg.WatchdogThreshold != 15*time.Minute {
		t.Fatalf("unexpected watchdog threshold: %s", cfg.WatchdogThreshold)
	}
	if cfg.ImageDebounce != 7*time.Second {
		t.Fatalf("unexpected image debounce: %s", cfg.ImageDebounce)
	}
	if !strings.Contains(cfg.GroqAPIBase, "api.groq.com") {
		t.Fatalf("unexpected groq api base: %s", cfg.GroqAPIBase)
	}

	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("expected valid config, got: %v", errs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("IMAGE_DEBOUNCE", "2s")
	t.Setenv("WATCHDOG_THRESHOLD", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Fatalf("port override not applied: %d", cfg.Port)
	}
	if cfg.ImageDebounce != 2*time.Second {
		t.Fatalf("debounce override not applied: %s", cfg.ImageDebounce)
	}
	if cfg.WatchdogThreshold != 30*time.Minute {
		t.Fatalf("watchdog override not applied: %s", cfg.WatchdogThreshold)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	t.Setenv("N8N_WEBHOOK_URL", "")
	t.Setenv("GROQ_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatalf("expected validation errors for missing required vars")
	}

	joined := make([]string, 0, len(errs))
	for _, e := range errs {
		joined = append(joined, e.Error())
	}
	all := strings.Join(joined, "; ")
	if !strings.Contains(all, "N8N_WEBHOOK_URL") {
		t.Fatalf("expected webhook url error, got: %s", all)
	}
	if !strings.Contains(all, "GROQ_API_KEY") {
		t.Fatalf("expected groq key error, got: %s", all)
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("HEARTBEAT_INTERVAL", "20m")
	t.Setenv("WATCHDOG_THRESHOLD", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatalf("expected error when watchdog threshold <= heartbeat interval")
	}
}

func TestExpandHome(t *testing.T) {
	t.Parallel()

	if got := expandHome(""); got != "" {
		t.Fatalf("empty path should stay empty, got %q", got)
	}
	if got := expandHome("/var/lib/zaprelay"); got != "/var/lib/zaprelay" {
		t.Fatalf("absolute path should be untouched, got %q", got)
	}
	if got := expandHome("~/data"); got == "~/data" || !strings.HasSuffix(got, "/data") {
		t.Fatalf("tilde path not expanded: %q", got)
	}
}
