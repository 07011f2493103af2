package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/modules/progress"
	"github.com/yungbote/pulseloop-backend/internal/modules/quiz"
	"github.com/yungbote/pulseloop-backend/internal/modules/summary"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

type Services struct {
	Auth    services.AuthService
	Quiz    services.QuizService
	Content services.ContentService
	Feed    services.FeedService
	User    services.UserService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	streaks := progress.New(progress.UsecasesDeps{
		DB:     db,
		Log:    log.With("module", "progress"),
		Users:  r.User,
		Events: r.Event,
	})

	quizzes := quiz.New(quiz.UsecasesDeps{
		DB:          db,
		Log:         log.With("module", "quiz"),
		AI:          c.AI,
		Users:       r.User,
		Contents:    r.Content,
		Quizzes:     r.Quiz,
		Attempts:    r.QuizAttempt,
		Events:      r.Event,
		Streaks:     streaks,
		Cache:       c.QuizCache,
		Leaderboard: c.Leaderboard,
		Metrics:     metrics,
		Config:      cfg.Quiz,
	})

	summaries := summary.New(summary.UsecasesDeps{
		Log:      log.With("module", "summary"),
		AI:       c.AI,
		TTS:      c.TTS,
		Bucket:   c.Bucket,
		Contents: r.Content,
		Config:   cfg.Summary,
	})

	return Services{
		Auth:    services.NewAuthService(log, c.Verifier, r.User, r.Organization, cfg.Entra),
		Quiz:    services.NewQuizService(log, quizzes),
		Content: services.NewContentService(log, r.Content, r.Event, summaries, c.Speech, c.Bucket, cfg.GCP.Speech),
		Feed:    services.NewFeedService(log, r.User, r.Organization, r.Content),
		User:    services.NewUserService(log, r.User, r.QuizAttempt, c.Leaderboard),
	}
}
