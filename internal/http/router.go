package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/pulseloop-backend/internal/http/handlers"
	httpMW "github.com/yungbote/pulseloop-backend/internal/http/middleware"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	// Metrics nil disables both the middleware and GET /metrics.
	Metrics *observability.Metrics

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler  *httpH.HealthHandler
	QuizHandler    *httpH.QuizHandler
	ContentHandler *httpH.ContentHandler
	FeedHandler    *httpH.FeedHandler
	UserHandler    *httpH.UserHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Quiz
	if cfg.QuizHandler != nil {
		api.GET("/quiz/content/:content_id", cfg.QuizHandler.GetQuiz)
		api.POST("/quiz/content/:content_id/submit", cfg.QuizHandler.Submit)
		api.GET("/quiz/content/:content_id/retry", cfg.QuizHandler.GetRetry)
	}

	// Content
	if cfg.ContentHandler != nil {
		api.GET("/content/:id", cfg.ContentHandler.GetContent)
		api.POST("/content/:id/complete", cfg.ContentHandler.MarkComplete)
		api.GET("/content/:id/summary", cfg.ContentHandler.GetSummary)
		if cfg.AuthMiddleware != nil {
			api.POST("/content/:id/transcribe", cfg.AuthMiddleware.RequireAdmin(), cfg.ContentHandler.Transcribe)
		} else {
			api.POST("/content/:id/transcribe", cfg.ContentHandler.Transcribe)
		}
	}

	// Feed
	if cfg.FeedHandler != nil {
		api.GET("/feed", cfg.FeedHandler.GetFeed)
		api.GET("/feed/today", cfg.FeedHandler.GetToday)
		api.GET("/feed/daily-options", cfg.FeedHandler.GetDailyOptions)
	}

	// User
	if cfg.UserHandler != nil {
		api.GET("/user/stats", cfg.UserHandler.GetStats)
		api.GET("/user/dashboard", cfg.UserHandler.GetDashboard)
		api.GET("/user/leaderboard", cfg.UserHandler.GetLeaderboard)
	}

	return r
}
