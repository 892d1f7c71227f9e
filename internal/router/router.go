package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"quiz-backend/internal/app"
	"quiz-backend/internal/config"
	"quiz-backend/internal/handlers"
	"quiz-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		allowCredentials := true
		maxAge := 3600

		// Priority 1: environment variable
		envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if envOrigins != "" {
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			// Priority 2: YAML config
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			// Priority 3: default - allow all origins
			allowedOrigins = []string{"*"}
		}

		originAllowed := func() bool {
			for _, allowed := range allowedOrigins {
				if strings.TrimSpace(allowed) == origin {
					return true
				}
			}
			return false
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			if originAllowed() {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter builds the full HTTP surface from the service container.
func SetupRouter(container *app.ServiceContainer) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	logger := logrus.New()
	var allowedIPs []string
	if config.AppConfig != nil && len(config.AppConfig.Admin.AllowedIPs) > 0 {
		allowedIPs = config.AppConfig.Admin.AllowedIPs
		logger.WithFields(logrus.Fields{
			"allowed_ips": allowedIPs,
			"count":       len(allowedIPs),
		}).Info("Admin API IP whitelist configured")
	}
	localhostOnly := middleware.NewLocalhostOnly(logger, allowedIPs)

	// ============ Liveness ============
	r.GET("/ping", handlers.PingHandler)

	// ============ Health Check ============
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "quiz-backend",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ WebSocket event stream ============
	wsHandler := handlers.NewWebSocketHandler(container.PushService)
	r.GET("/ws", wsHandler.StreamHandler)

	// ============ API Routes ============
	SetupQuizRoutes(r, container, localhostOnly)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message":    "Endpoint not found",
			"path":       c.Request.URL.Path,
			"suggestion": "Check /api endpoints for available APIs",
		})
	})

	return r
}
