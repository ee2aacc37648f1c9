package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets such as database passwords have no defaults and must come from env files or the environment.
type AppConfig struct {
	AppPort        string
	StaticDir      string
	BodyLimitBytes int
	ForceHTTPS     bool
	TrustedProxies []string
	AllowedOrigins []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Storage: sqlite (default), mysql or postgres
	DBDriver    string
	DBPath      string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// API rate limiting, RateLimitMax requests per RateLimitWindow and client IP
	RateLimitMax    int
	RateLimitWindow time.Duration
	// Redis cache for the stats aggregate
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	StatsCacheTTL time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides.
	// godotenv never overrides variables that are already set in the process environment.
	_ = godotenv.Load()

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into out if present. Returns error only for invalid JSON.
// Both grouped sections ({"app": {...}, "database": {...}}) and flat top-level keys are accepted;
// grouped values win when both are present.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	// Flatten grouped sections over the top-level keys
	flat := map[string]any{}
	for k, v := range raw {
		if _, isGroup := v.(map[string]any); !isGroup {
			flat[k] = v
		}
	}
	for _, section := range []string{"app", "gin", "database", "ratelimit", "redis", "log"} {
		if m, ok := raw[section].(map[string]any); ok {
			for k, v := range m {
				flat[k] = v
			}
		}
	}

	getString := func(key string) string {
		if s, ok := flat[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(key string) int {
		if f, ok := flat[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(key string) bool {
		b, _ := flat[key].(bool)
		return b
	}
	getDuration := func(key string) time.Duration {
		if s := getString(key); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				return d
			}
		}
		return 0
	}
	getStringSlice := func(key string) []string {
		arr, ok := flat[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	out.AppPort = getString("AppPort")
	out.StaticDir = getString("StaticDir")
	out.BodyLimitBytes = getInt("BodyLimitBytes")
	out.ForceHTTPS = getBool("ForceHTTPS")
	out.TrustedProxies = getStringSlice("TrustedProxies")
	out.AllowedOrigins = getStringSlice("AllowedOrigins")

	out.GinMode = getString("GinMode")
	out.GinPath = getString("GinPath")

	out.DBDriver = getString("DBDriver")
	out.DBPath = getString("DBPath")
	out.DatabaseURI = getString("DatabaseURI")
	out.DBHost = getString("DBHost")
	out.DBPort = getString("DBPort")
	out.DBUser = getString("DBUser")
	out.DBPassword = getString("DBPassword")
	out.DBName = getString("DBName")

	out.RateLimitMax = getInt("RateLimitMax")
	out.RateLimitWindow = getDuration("RateLimitWindow")

	out.RedisEnabled = getBool("RedisEnabled")
	out.RedisHost = getString("RedisHost")
	out.RedisPort = getInt("RedisPort")
	out.RedisDB = getInt("RedisDB")
	out.RedisPassword = getString("RedisPassword")
	out.StatsCacheTTL = getDuration("StatsCacheTTL")

	out.LogLevel = getString("LogLevel")
	out.LogPath = getString("LogPath")
	out.LogMaxSizeMB = getInt("LogMaxSizeMB")
	out.LogMaxBackups = getInt("LogMaxBackups")
	out.LogMaxAgeDays = getInt("LogMaxAgeDays")
	out.LogCompress = getBool("LogCompress")
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3001"
	}
	if c.StaticDir == "" {
		c.StaticDir = "./public"
	}
	if c.BodyLimitBytes == 0 {
		c.BodyLimitBytes = 64 << 10
	}
	if len(c.TrustedProxies) == 0 {
		// equivalent of trusting the first hop only
		c.TrustedProxies = []string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if c.DBPath == "" {
		c.DBPath = "./data/health_tracker.db"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBName == "" {
		c.DBName = "health_tracker"
	}
	if c.RateLimitMax == 0 {
		c.RateLimitMax = 300
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = 15 * time.Minute
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.StatsCacheTTL == 0 {
		c.StatsCacheTTL = time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("PORT", ""); v != "" { // PaaS convention
		c.AppPort = v
	}
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("STATIC_DIR", ""); v != "" {
		c.StaticDir = v
	}
	if v := getEnv("BODY_LIMIT_BYTES", ""); v != "" {
		c.BodyLimitBytes = mustParseInt(v)
	}
	if v := getEnv("FORCE_HTTPS", ""); v != "" {
		c.ForceHTTPS = parseBool(v)
	}
	if v := getEnv("TRUSTED_PROXIES", ""); v != "" {
		c.TrustedProxies = readListEnv("TRUSTED_PROXIES", c.TrustedProxies)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DB_PATH", ""); v != "" {
		c.DBPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("RATE_LIMIT_MAX", ""); v != "" {
		c.RateLimitMax = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_WINDOW", ""); v != "" {
		c.RateLimitWindow = mustParseDuration(v)
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = parseBool(v)
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("STATS_CACHE_TTL", ""); v != "" {
		c.StatsCacheTTL = mustParseDuration(v)
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = parseBool(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func mustParseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Fatalf("invalid duration value %s: %v", val, err)
	}
	return d
}

// parseBool accepts 1/true/yes/on in any case.
func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
