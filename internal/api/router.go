// Package api wires together all HTTP routes of the activity signup service.
//
// Route layout:
//   - /activities/... is the JSON API used by the signup page. It is public
//     (there are no accounts) and is the only group behind the rate limiter.
//   - /static/... serves the signup page itself; / redirects there.
//   - /health, /ready and /version are operational probes.
//
// Prometheus metrics and pprof are not served here; cmd/server runs them on
// their own ports so they stay off the public listener.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mergington/activity-signup/internal/api/activities"
	"github.com/mergington/activity-signup/internal/config"
	"github.com/mergington/activity-signup/internal/middleware"
	"github.com/mergington/activity-signup/internal/redisclient"
	"github.com/mergington/activity-signup/web"
)

// Version is the service version reported by /version and the version
// subcommand. Release builds override it with -ldflags "-X".
var Version = "0.1.0"

const (
	staticPrefix = "/static"
	indexPage    = staticPrefix + "/index.html"
)

// BackgroundServices holds resources that must be released during graceful
// shutdown. cmd/server calls Shutdown once the HTTP server has drained.
type BackgroundServices struct {
	rateLimiter *middleware.RateLimiter
	redis       *redisclient.Client
}

// Shutdown stops the rate limiter janitor and closes the redis pool.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.rateLimiter != nil {
		bg.rateLimiter.Stop()
	}
	if err := bg.redis.Close(); err != nil {
		slog.Warn("failed to close redis client", "error", err)
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router around store.
func NewRouter(cfg *config.Config, store activities.Store) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	// Match activity names on the escaped path so "Robotics%2FEngineering"
	// stays one path segment. Params are still unescaped for the handlers.
	router.UseRawPath = true

	bg := &BackgroundServices{}
	if cfg.UsesRedis() {
		bg.redis = redisclient.New(cfg.Redis)
		slog.Info("using redis", "address", cfg.Redis.Address, "db", cfg.Redis.DB)
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware("/health", "/ready"))
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SplitSecurityHeadersMiddleware(
		middleware.APISecurityHeadersConfig().WithHSTS(cfg.Security.TLS.Enabled),
		middleware.FrontendSecurityHeadersConfig().WithHSTS(cfg.Security.TLS.Enabled),
		staticPrefix+"/",
	))

	router.GET("/health", healthCheckHandler())
	router.GET("/ready", readinessHandler(store, bg.redis))
	router.GET("/version", versionHandler())

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, indexPage)
	})

	if cfg.Static.Dir != "" {
		slog.Info("serving front-end from disk", "dir", cfg.Static.Dir)
		router.StaticFS(staticPrefix, gin.Dir(cfg.Static.Dir, false))
	} else {
		router.StaticFS(staticPrefix, http.FS(web.Static()))
	}

	h := activities.NewHandler(store)
	activityGroup := router.Group("/activities")
	if limiter := newLimiter(cfg, bg); limiter != nil {
		activityGroup.Use(middleware.RateLimitMiddleware(limiter))
	}
	{
		activityGroup.GET("", h.List)
		activityGroup.POST("/:name/signup", h.Signup)
		activityGroup.DELETE("/:name/participants", h.Unregister)
	}

	return router, bg
}

// newLimiter builds the configured rate limiter, or nil when rate limiting is off.
func newLimiter(cfg *config.Config, bg *BackgroundServices) middleware.Limiter {
	rl := cfg.Security.RateLimiting
	if !rl.Enabled {
		slog.Warn("rate limiting is disabled")
		return nil
	}

	limitCfg := middleware.DefaultRateLimitConfig()
	limitCfg.RequestsPerMinute = rl.RequestsPerMinute
	limitCfg.BurstSize = rl.Burst

	if rl.Backend == config.RateLimitBackendRedis {
		slog.Info("rate limiting via redis", "requests_per_minute", rl.RequestsPerMinute, "burst", rl.Burst)
		return middleware.NewRedisRateLimiter(bg.redis.Client, limitCfg)
	}

	slog.Info("rate limiting in memory", "requests_per_minute", rl.RequestsPerMinute, "burst", rl.Burst)
	bg.rateLimiter = middleware.NewRateLimiter(limitCfg)
	return bg.rateLimiter
}

// @Summary      Health check
// @Description  Liveness probe. The registry lives in process memory, so a running process is a healthy one.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Router       /health [get]
func healthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Probes redis when the redis rate limiter is in use.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
//
// readinessHandler reports not ready while redis is unreachable even though
// the limiter fails open, so an orchestrator can route around the replica.
func readinessHandler(store activities.Store, rdb *redisclient.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{"registry": "healthy", "activities": len(store.List())}

		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx); err != nil {
				slog.Warn("readiness check failed", "component", "redis", "error", err)
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version"
// @Router       /version [get]
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version})
	}
}

// LoggerMiddleware emits one structured record per request. Probe traffic is
// logged at debug so it does not drown out real requests.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		level := slog.LevelInfo
		if path == "/health" || path == "/ready" {
			level = slog.LevelDebug
		}

		// The handler (JSON or text) is picked by telemetry.SetupLogger.
		slog.LogAttrs(
			c.Request.Context(),
			level,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", middleware.RequestID(c)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS. There are no cookies or credentials involved, so
// a wildcard origin is answered with a literal "*".
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := cfg.Security.CORS.AllowedOrigins
	wildcard := slices.Contains(origins, "*")
	methods := strings.Join(cfg.Security.CORS.AllowedMethods, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case wildcard:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		default:
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		c.Header("Access-Control-Max-Age", "3600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
