package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Organization repos.OrganizationRepo
	Content      repos.ContentRepo
	Quiz         repos.QuizRepo
	QuizAttempt  repos.QuizAttemptRepo
	Event        repos.EventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Organization: repos.NewOrganizationRepo(db, log),
		Content:      repos.NewContentRepo(db, log),
		Quiz:         repos.NewQuizRepo(db, log),
		QuizAttempt:  repos.NewQuizAttemptRepo(db, log),
		Event:        repos.NewEventRepo(db, log),
	}
}
