package app

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/http"
	httpH "github.com/yungbote/pulseloop-backend/internal/http/handlers"
	httpMW "github.com/yungbote/pulseloop-backend/internal/http/middleware"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Quiz    *httpH.QuizHandler
	Content *httpH.ContentHandler
	Feed    *httpH.FeedHandler
	User    *httpH.UserHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, rdb *goredis.Client, s Services) Handlers {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{}
	if db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return Handlers{
		Health:  httpH.NewHealthHandler(checks),
		Quiz:    httpH.NewQuizHandler(s.Quiz),
		Content: httpH.NewContentHandler(s.Content),
		Feed:    httpH.NewFeedHandler(s.Feed),
		User:    httpH.NewUserHandler(s.User),
	}
}

func wireMiddleware(log *logger.Logger, s Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, s.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers, mw Middleware, metrics *observability.Metrics) *http.Server {
	serviceName := ""
	if cfg.OTel.Enabled {
		serviceName = cfg.OTel.ServiceName
	}
	return http.NewServer(http.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Metrics:        metrics,
		AuthMiddleware: mw.Auth,
		HealthHandler:  h.Health,
		QuizHandler:    h.Quiz,
		ContentHandler: h.Content,
		FeedHandler:    h.Feed,
		UserHandler:    h.User,
	})
}
