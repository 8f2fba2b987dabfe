package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsForMemoryDriver(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("APP_TZ", "UTC")
	t.Setenv("ADMIN_EMAIL", " Owner@Example.com ")

	cfg := Load()
	if cfg.Port != "8080" || cfg.ResetSchedule != "0 0 * * 0" || cfg.RetentionDays != 7 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Loc.String() != "UTC" {
		t.Fatalf("APP_TZ not applied: %s", cfg.Loc)
	}
	if cfg.AdminEmail != "owner@example.com" {
		t.Fatalf("admin email not normalised: %q", cfg.AdminEmail)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("memory dev runs should get a fallback secret")
	}
	if cfg.LockBackend != "memory" || cfg.EventsEnabled {
		t.Fatalf("unexpected lock/events defaults: %+v", cfg)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "YES")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	t.Setenv("X_SET", "get, head,,")
	if !envBool("X_BOOL", false) {
		t.Fatal("YES should be true")
	}
	if envInt("X_INT", 3) != 3 {
		t.Fatal("unparsable int should fall back")
	}
	if envDur("X_DUR", 0) != 90*time.Second {
		t.Fatal("duration not parsed")
	}
	if m := envSet("X_SET", ""); !m["GET"] || !m["HEAD"] || len(m) != 2 {
		t.Fatalf("unexpected set %v", m)
	}
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg := LoadRateLimitConfig()
	if cfg.Capacity != 1 {
		t.Fatalf("capacity = %d", cfg.Capacity)
	}
	if cfg.TTL != 5*time.Minute {
		t.Fatalf("TTL should be raised to 5 intervals, got %s", cfg.TTL)
	}
}
