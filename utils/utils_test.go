package utils

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/healthtracker/models"
)

func TestGinzapLogsRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(RequestIDKey, "req-1"); c.Next() })
	r.Use(Ginzap(zap.New(core), time.RFC3339, true))
	r.GET("/api/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/metrics?start=2024-01-01", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusOK) {
		t.Errorf("status field = %v", fields["status"])
	}
	if fields["query"] != "start=2024-01-01" {
		t.Errorf("query field = %v", fields["query"])
	}
	if fields["request_id"] != "req-1" {
		t.Errorf("request_id field = %v", fields["request_id"])
	}
}

func TestRecoveryWithZap(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryWithZap(zap.New(core), false))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, `"error":"Internal server error"`) || strings.Contains(body, "kaboom") {
		t.Errorf("body = %s", body)
	}
	if logs.FilterMessage("[Recovery from panic]").Len() != 1 {
		t.Error("panic was not logged")
	}
}

func TestNilStatsCacheIsNoop(t *testing.T) {
	var c *StatsCache
	ctx := context.Background()
	c.SetIfGeneration(ctx, c.Generation(ctx), models.Stats{TotalEntries: 1})
	c.Invalidate(ctx)
	if _, ok := c.Get(ctx); ok {
		t.Error("nil cache reported a hit")
	}

	c = NewStatsCache(nil, 0)
	if c.ttl != defaultCacheTTL {
		t.Errorf("ttl = %v", c.ttl)
	}
	if _, ok := c.Get(ctx); ok {
		t.Error("cache without client reported a hit")
	}
}

func TestStatsCacheUnreachableRedisMisses(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rc.Close()
	c := NewStatsCache(rc, time.Minute)

	ctx := context.Background()
	if c.Generation(ctx) >= 0 {
		t.Error("generation should be unavailable without redis")
	}
	if c.SetIfGeneration(ctx, 0, models.Stats{TotalEntries: 3}) {
		t.Error("set reported success against unreachable redis")
	}
	if _, ok := c.Get(ctx); ok {
		t.Error("unreachable redis reported a hit")
	}
	c.Invalidate(ctx)
}

func TestRollingFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gin.log")
	l, err := NewRollingFileLogger(path, "info", 1, 1, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if l == Logger {
		t.Error("expected a dedicated file logger")
	}
	l.Info("hello")
	_ = l.Sync()

	same, err := NewRollingFileLogger("", "info", 0, 0, 0, false)
	if err != nil || same != Logger {
		t.Errorf("empty path should reuse the app logger, got %v %v", same, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"bogus": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGraceServerStopRunsCleanup(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(ln.Addr().String(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), time.Second, time.Second)

	cleaned := make(chan struct{})
	srv.OnShutdown(func() { close(cleaned) })

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("request before shutdown: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d", resp.StatusCode)
	}

	srv.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v after graceful stop", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	select {
	case <-cleaned:
	default:
		t.Error("shutdown hook did not run")
	}
}
