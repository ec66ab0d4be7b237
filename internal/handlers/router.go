package handlers

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterConfig holds what the router needs besides the handlers' collaborators
type RouterConfig struct {
	AllowedOrigins []string
	TriggerSecret  string
}

// NewRouter wires the monitoring and trigger routes
func NewRouter(runner ReminderRunner, ping func() error, cfg RouterConfig, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// Configure trusted proxies
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", TriggerSecretHeader},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/", HomeHandler)
	router.GET("/health", HealthHandler(ping, log))
	router.GET("/reminders/last", LastReport(runner))

	internal := router.Group("/internal")
	{
		internal.POST("/reminders/run", TriggerReminders(runner, cfg.TriggerSecret, log))
	}
	return router
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
