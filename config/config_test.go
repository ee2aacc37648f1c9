package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var c AppConfig
	applyDefaults(&c)

	if c.AppPort != "3001" {
		t.Errorf("AppPort = %q, want 3001", c.AppPort)
	}
	if c.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", c.DBDriver)
	}
	if c.BodyLimitBytes != 64<<10 {
		t.Errorf("BodyLimitBytes = %d, want %d", c.BodyLimitBytes, 64<<10)
	}
	if c.RateLimitMax != 300 || c.RateLimitWindow != 15*time.Minute {
		t.Errorf("rate limit = %d per %s, want 300 per 15m", c.RateLimitMax, c.RateLimitWindow)
	}
	if c.RedisEnabled {
		t.Error("redis must be disabled by default")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("FORCE_HTTPS", "yes")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	var c AppConfig
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.AppPort != "9000" {
		t.Errorf("AppPort = %q", c.AppPort)
	}
	if c.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q", c.DBDriver)
	}
	if !c.ForceHTTPS {
		t.Error("ForceHTTPS should be true")
	}
	if c.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %s", c.RateLimitWindow)
	}
	if len(c.AllowedOrigins) != 2 || c.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", c.AllowedOrigins)
	}
}

func TestLoadJSONConfigGroupedAndFlat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"LogLevel": "debug",
		"app": {"AppPort": "8081", "AllowedOrigins": ["https://x.example"]},
		"database": {"DBDriver": "mysql", "DBName": "metrics"},
		"ratelimit": {"RateLimitMax": 10, "RateLimitWindow": "30s"},
		"redis": {"RedisEnabled": true, "RedisPort": 6380}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		t.Fatalf("loadJSONConfig: %v", err)
	}
	if c.AppPort != "8081" || c.DBDriver != "mysql" || c.DBName != "metrics" {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.LogLevel != "debug" {
		t.Errorf("flat LogLevel not read: %q", c.LogLevel)
	}
	if c.RateLimitMax != 10 || c.RateLimitWindow != 30*time.Second {
		t.Errorf("rate limit = %d per %s", c.RateLimitMax, c.RateLimitWindow)
	}
	if !c.RedisEnabled || c.RedisPort != 6380 {
		t.Errorf("redis = %v:%d", c.RedisEnabled, c.RedisPort)
	}
}

func TestLoadJSONConfigMissingFile(t *testing.T) {
	var c AppConfig
	if err := loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &c); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
}

func TestLoadJSONConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var c AppConfig
	if err := loadJSONConfig(path, &c); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDialectorFor(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{"sqlite", "mysql", "postgres"} {
		c := AppConfig{DBDriver: driver, DBPath: filepath.Join(dir, "sub", "h.db")}
		d, err := dialectorFor(c)
		if err != nil {
			t.Fatalf("%s: %v", driver, err)
		}
		if d.Name() != driver {
			t.Errorf("dialector name = %q, want %q", d.Name(), driver)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); err != nil {
		t.Errorf("sqlite directory not created: %v", err)
	}
	if _, err := dialectorFor(AppConfig{DBDriver: "oracle"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestInitDatabaseSQLite(t *testing.T) {
	type sample struct {
		ID   uint
		Name string
	}
	c := AppConfig{DBDriver: "sqlite", DBPath: filepath.Join(t.TempDir(), "h.db"), LogLevel: "silent"}
	db, err := InitDatabase(c, &sample{})
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	if !db.Migrator().HasTable(&sample{}) {
		t.Error("sample table not migrated")
	}
}
