package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos/content"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/event"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/organization"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/quiz"
	"github.com/yungbote/pulseloop-backend/internal/data/repos/user"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type StreakUpdate = user.StreakUpdate
type OrganizationRepo = organization.OrganizationRepo

type ContentRepo = content.ContentRepo
type FeedFilter = content.FeedFilter

type QuizRepo = quiz.QuizRepo
type QuizAttemptRepo = quiz.QuizAttemptRepo
type PassCounts = quiz.PassCounts
type TypeCount = quiz.TypeCount

type EventRepo = event.EventRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return organization.NewOrganizationRepo(db, baseLog)
}

func NewContentRepo(db *gorm.DB, baseLog *logger.Logger) ContentRepo {
	return content.NewContentRepo(db, baseLog)
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo { return quiz.NewQuizRepo(db, baseLog) }
func NewQuizAttemptRepo(db *gorm.DB, baseLog *logger.Logger) QuizAttemptRepo {
	return quiz.NewQuizAttemptRepo(db, baseLog)
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return event.NewEventRepo(db, baseLog)
}
