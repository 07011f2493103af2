package domain

import (
	"github.com/yungbote/pulseloop-backend/internal/domain/content"
	"github.com/yungbote/pulseloop-backend/internal/domain/event"
	"github.com/yungbote/pulseloop-backend/internal/domain/quiz"
	"github.com/yungbote/pulseloop-backend/internal/domain/user"
)

const (
	EventContentViewed    = event.TypeContentViewed
	EventContentCompleted = event.TypeContentCompleted
	EventQuizAttempted    = event.TypeQuizAttempted
	EventQuizPassed       = event.TypeQuizPassed
	EventQuizFailed       = event.TypeQuizFailed
	EventStreakUpdated    = event.TypeStreakUpdated
)

const (
	QuizOptionCount      = quiz.OptionCount
	QuizPassMaxWrong     = quiz.PassMaxWrong
	QuizCanonicalVersion = quiz.CanonicalVersion
)

const (
	ContentArticle = content.TypeArticle
	ContentVideo   = content.TypeVideo
	ContentPodcast = content.TypePodcast
)

type (
	User         = user.User
	Organization = user.Organization

	ContentItem       = content.Item
	ContentType       = content.Type
	Source            = content.Source
	TranscriptSegment = content.TranscriptSegment
	StoryboardStep    = content.StoryboardStep
	AnimatedSummary   = content.AnimatedSummary

	Quiz         = quiz.Quiz
	QuizQuestion = quiz.Question
	QuizAttempt  = quiz.Attempt
	ReviewHints  = quiz.ReviewHints
	ParagraphRef = quiz.ParagraphRef
	TimeRange    = quiz.TimeRange

	Event = event.Event
)

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Organization{},
		&User{},
		&Source{},
		&ContentItem{},
		&Quiz{},
		&QuizAttempt{},
		&Event{},
	}
}
