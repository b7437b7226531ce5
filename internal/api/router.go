package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/antrak/internal/config"
	"github.com/jengzang/antrak/internal/handler"
	"github.com/jengzang/antrak/internal/middleware"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Track *handler.TrackHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, log *slog.Logger, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "antrak API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		devices := api.Group("/devices/:device")

		devices.GET("/tracks", h.Track.ListTracks)
		devices.GET("/tracks/summary", h.Track.TrackSummary)
		devices.GET("/tracks/positions", h.Track.TrackPositions)

		write := devices.Group("", middleware.Auth(cfg.JWTSecret))
		write.POST("/positions", h.Track.UploadPositions)
		write.POST("/tracks", h.Track.AddTrack)
	}

	return r
}
