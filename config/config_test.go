package config

import (
	"testing"
	"time"
)

func TestGetDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_HOST", "DB_PORT", "DB_SSL_MODE", "JWT_ISSUER", "REDIS_URL",
		"LOCK_BACKEND", "SELECTION_HOOK_TIMEOUT", "OUTBOX_MAX_ATTEMPTS",
		"CRON_ENABLED", "ALLOWED_ORIGINS", "LOG_MODE", "GO_ENV",
	} {
		t.Setenv(key, "")
	}

	env, err := Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if env.PORT != 8080 {
		t.Errorf("expected port 8080, got %d", env.PORT)
	}
	if env.DB_HOST != "localhost" || env.DB_PORT != "5432" || env.DB_SSL_MODE != "disable" {
		t.Errorf("unexpected database defaults: %s:%s sslmode=%s", env.DB_HOST, env.DB_PORT, env.DB_SSL_MODE)
	}
	if env.LOCK_BACKEND != LockBackendLocal {
		t.Errorf("expected local lock backend, got %s", env.LOCK_BACKEND)
	}
	if env.SELECTION_HOOK_TIMEOUT != 5*time.Second {
		t.Errorf("expected 5s hook timeout, got %v", env.SELECTION_HOOK_TIMEOUT)
	}
	if env.OUTBOX_MAX_ATTEMPTS != 10 {
		t.Errorf("expected 10 attempts, got %d", env.OUTBOX_MAX_ATTEMPTS)
	}
	if !env.CRON_ENABLED {
		t.Error("expected cron to be enabled by default")
	}
	if env.ALLOWED_ORIGINS == "" || env.JWT_ISSUER == "" || env.REDIS_URL == "" {
		t.Errorf("expected non-empty defaults, got %+v", env)
	}
}

func TestGetOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOCK_BACKEND", "Redis")
	t.Setenv("SELECTION_HOOK_TIMEOUT", "750ms")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "4")
	t.Setenv("CRON_ENABLED", "false")
	t.Setenv("GO_ENV", "production")
	t.Setenv("LOG_MODE", "")

	env, err := Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if env.PORT != 9090 {
		t.Errorf("expected port 9090, got %d", env.PORT)
	}
	if env.LOCK_BACKEND != LockBackendRedis {
		t.Errorf("expected redis lock backend, got %s", env.LOCK_BACKEND)
	}
	if env.SELECTION_HOOK_TIMEOUT != 750*time.Millisecond {
		t.Errorf("expected 750ms, got %v", env.SELECTION_HOOK_TIMEOUT)
	}
	if env.OUTBOX_MAX_ATTEMPTS != 4 {
		t.Errorf("expected 4 attempts, got %d", env.OUTBOX_MAX_ATTEMPTS)
	}
	if env.CRON_ENABLED {
		t.Error("expected cron to be disabled")
	}
	if env.LOG_MODE != "production" {
		t.Errorf("expected log mode to follow GO_ENV, got %q", env.LOG_MODE)
	}
}

func TestGetRejectsInvalidValues(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "etcd")
	t.Setenv("SELECTION_HOOK_TIMEOUT", "-1s")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "zero")

	env, err := Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if env.LOCK_BACKEND != LockBackendLocal {
		t.Errorf("unknown backends fall back to local, got %s", env.LOCK_BACKEND)
	}
	if env.SELECTION_HOOK_TIMEOUT != 5*time.Second || env.OUTBOX_MAX_ATTEMPTS != 10 {
		t.Errorf("expected defaults for invalid values, got %v and %d", env.SELECTION_HOOK_TIMEOUT, env.OUTBOX_MAX_ATTEMPTS)
	}
}
