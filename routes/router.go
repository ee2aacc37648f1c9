package routes

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/healthtracker/config"
	"github.com/cppla/healthtracker/controllers"
	"github.com/cppla/healthtracker/middleware"
	"github.com/cppla/healthtracker/store"
	"github.com/cppla/healthtracker/utils"
)

// SetupRouter wires routes, middlewares, and controllers around the given store.
func SetupRouter(cfg config.AppConfig, st store.Store, cache *utils.StatsCache) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		utils.Sugar.Warnf("invalid trusted proxies %v: %v", cfg.TrustedProxies, err)
	}

	// Access log goes to its own rolling file when GinPath is set, otherwise to the app logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		utils.Sugar.Warnf("gin log file unavailable, using app logger: %v", err)
		gl = utils.Logger
	}
	r.Use(middleware.RequestID())
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))
	r.Use(middleware.SecurityHeaders())
	if cfg.ForceHTTPS {
		r.Use(middleware.ForceHTTPS())
	}

	// Frontend and API share an origin by default; CORS only when origins are configured
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.Config{
			AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", middleware.RequestIDHeader},
			ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}
		if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
			corsCfg.AllowAllOrigins = true
		} else {
			corsCfg.AllowOrigins = cfg.AllowedOrigins
		}
		r.Use(cors.New(corsCfg))
	}

	metricController := controllers.NewMetricController(st, cache, time.Now)

	// Shared by the /api group and unmatched /api paths so both draw from one bucket per client
	apiChain := []gin.HandlerFunc{middleware.NoStore()}
	if cfg.RateLimitMax > 0 {
		apiChain = append(apiChain, middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow))
	}
	if cfg.BodyLimitBytes > 0 {
		apiChain = append(apiChain, middleware.BodyLimit(int64(cfg.BodyLimitBytes)))
	}

	api := r.Group("/api")
	api.Use(apiChain...)

	api.GET("/health", controllers.Health)

	// /entries and /entry-stats are kept for older clients; they share the handlers
	for _, base := range []string{"/metrics", "/entries"} {
		api.GET(base, metricController.ListMetrics)
		api.POST(base, metricController.CreateMetric)
		api.GET(base+"/:id", metricController.GetMetric)
		api.DELETE(base+"/:id", metricController.DeleteMetric)
	}
	api.GET("/stats", metricController.GetStats)
	api.GET("/entry-stats", metricController.GetStats)

	noRoute := make([]gin.HandlerFunc, 0, len(apiChain)+1)
	for _, h := range apiChain {
		noRoute = append(noRoute, apiOnly(h))
	}
	r.NoRoute(append(noRoute, spaFallback(cfg.StaticDir))...)

	return r
}

func isAPIPath(urlPath string) bool {
	return urlPath == "/api" || strings.HasPrefix(urlPath, "/api/")
}

// apiOnly runs h for /api paths and skips it for pages.
func apiOnly(h gin.HandlerFunc) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if isAPIPath(ctx.Request.URL.Path) {
			h(ctx)
			return
		}
		ctx.Next()
	}
}

// spaFallback answers unknown /api paths with a JSON 404, serves existing static files,
// and hands every other GET to the single-page app's index.html.
func spaFallback(staticDir string) gin.HandlerFunc {
	index := filepath.Join(staticDir, "index.html")
	return func(ctx *gin.Context) {
		urlPath := ctx.Request.URL.Path
		if isAPIPath(urlPath) {
			utils.Error(ctx, http.StatusNotFound, "Endpoint not found")
			return
		}
		if ctx.Request.Method != http.MethodGet && ctx.Request.Method != http.MethodHead {
			utils.Error(ctx, http.StatusNotFound, "Not found")
			return
		}

		// Clean against "/" so the result can never climb out of staticDir
		file := filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+urlPath)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			ctx.File(file)
			return
		}
		// NoRoute starts at 404; the SPA shell is a normal page
		ctx.Status(http.StatusOK)
		ctx.File(index)
	}
}
