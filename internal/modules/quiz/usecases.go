package quiz

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/modules/progress"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
	"github.com/yungbote/pulseloop-backend/internal/platform/redis"
)

// Config tunes generation and remediation.
type Config struct {
	QuestionCount        int           `mapstructure:"question_count"`
	CompletionTimeout    time.Duration `mapstructure:"completion_timeout"`
	RemediationTimeout   time.Duration `mapstructure:"remediation_timeout"`
	MaxCandidateSegments int           `mapstructure:"max_candidate_segments"`
	PerQuestionSegments  int           `mapstructure:"per_question_segments"`
	FallbackTimestamps   int           `mapstructure:"fallback_timestamps"`
}

func (c Config) withDefaults() Config {
	if c.QuestionCount <= 0 {
		c.QuestionCount = 5
	}
	if c.CompletionTimeout <= 0 {
		c.CompletionTimeout = 45 * time.Second
	}
	if c.RemediationTimeout <= 0 {
		c.RemediationTimeout = 30 * time.Second
	}
	if c.MaxCandidateSegments <= 0 {
		c.MaxCandidateSegments = DefaultMaxCandidates
	}
	if c.PerQuestionSegments < 0 {
		c.PerQuestionSegments = 0
	}
	if c.FallbackTimestamps <= 0 {
		c.FallbackTimestamps = 3
	}
	return c
}

type StreakRecorder interface {
	RecordPass(ctx context.Context, userID uuid.UUID) (progress.StreakResult, error)
}

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	// AI may be nil when no completion endpoint is configured.
	AI openai.Client

	Users    repos.UserRepo
	Contents repos.ContentRepo
	Quizzes  repos.QuizRepo
	Attempts repos.QuizAttemptRepo
	Events   repos.EventRepo

	// Streaks advances the learner's streak after a pass.
	Streaks StreakRecorder

	// Optional redis-backed helpers.
	Cache       redis.QuizCache
	Leaderboard redis.Leaderboard

	// Metrics may be nil.
	Metrics *observability.Metrics

	Tracer trace.Tracer
	Config Config
}

type Usecases struct {
	deps     UsecasesDeps
	validate *validator.Validate
}

func New(deps UsecasesDeps) Usecases {
	deps.Config = deps.Config.withDefaults()
	if deps.Tracer == nil {
		deps.Tracer = observability.Tracer()
	}
	return Usecases{deps: deps, validate: validator.New()}
}

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

func (u Usecases) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return u.deps.Tracer.Start(ctx, "quiz."+name)
}
