package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", config.Server.Port)
	}
	if config.Database.Name != "task_tracker" {
		t.Errorf("Expected default database name task_tracker, got %s", config.Database.Name)
	}
	if config.Recurrence.DefaultHorizonDays != 90 {
		t.Errorf("Expected default horizon of 90 days, got %d", config.Recurrence.DefaultHorizonDays)
	}
	if config.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("Expected 15m access token TTL, got %v", config.Auth.AccessTokenTTL)
	}
	if len(config.Worker.Queues) != 3 {
		t.Errorf("Expected 3 worker queues, got %v", config.Worker.Queues)
	}
	if config.Worker.Queues[2] != "retry_queue" {
		t.Errorf("Expected the retry queue to be drained, got %v", config.Worker.Queues)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RECURRENCE_HORIZON_DAYS", "30")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("READ_TIMEOUT", "45s")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", config.Server.Port)
	}
	if config.Recurrence.DefaultHorizonDays != 30 {
		t.Errorf("Expected horizon of 30 days, got %d", config.Recurrence.DefaultHorizonDays)
	}
	if config.RateLimit.Enabled {
		t.Error("Expected rate limiting disabled")
	}
	if config.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Expected 45s read timeout, got %v", config.Server.ReadTimeout)
	}
}

func TestLoadConfigProductionGuards(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for missing database password in production")
	}

	t.Setenv("DB_PASSWORD", "secret")
	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for default JWT secret in production")
	}

	t.Setenv("JWT_SECRET", "a-real-secret")
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !config.IsProduction() {
		t.Error("Expected production environment")
	}
}

func TestLoadConfigRejectsBadHorizon(t *testing.T) {
	t.Setenv("RECURRENCE_HORIZON_DAYS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for non-positive recurrence horizon")
	}
}

func TestLoadConfigRejectsZeroCleanupInterval(t *testing.T) {
	t.Setenv("RATE_LIMIT_CLEANUP", "0s")

	if _, err := LoadConfig(); err == nil {
		t.Error("Expected error for zero rate limit cleanup interval")
	}

	// With rate limiting off the interval is unused and may stay zero.
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	if _, err := LoadConfig(); err != nil {
		t.Errorf("LoadConfig failed with limiter disabled: %v", err)
	}
}

func TestDSNAndAddrs(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_HOST", "cache.internal")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	dsn := config.GetDatabaseDSN()
	if want := "host=db.internal"; len(dsn) == 0 || dsn[:len(want)] != want {
		t.Errorf("Unexpected DSN: %s", dsn)
	}
	if config.GetRedisAddr() != "cache.internal:6379" {
		t.Errorf("Unexpected redis addr: %s", config.GetRedisAddr())
	}
	if config.GetServerAddr() != "localhost:8080" {
		t.Errorf("Unexpected server addr: %s", config.GetServerAddr())
	}
}
