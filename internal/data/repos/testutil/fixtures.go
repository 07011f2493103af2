package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
)

func SeedOrganization(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID string) *domain.Organization {
	tb.Helper()
	o := &domain.Organization{TenantID: tenantID, Name: "org " + tenantID}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return o
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, externalID string, orgID *uuid.UUID) *domain.User {
	tb.Helper()
	u := &domain.User{
		ExternalID:     externalID,
		Email:          externalID + "@example.com",
		DisplayName:    "Test " + externalID,
		OrganizationID: orgID,
		Role:           "employee",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedContent(tb testing.TB, ctx context.Context, tx *gorm.DB, item *domain.ContentItem) *domain.ContentItem {
	tb.Helper()
	if item.Title == "" {
		item.Title = "content"
	}
	if item.Type == "" {
		item.Type = domain.ContentArticle
	}
	if err := tx.WithContext(ctx).Create(item).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return item
}

func SeedQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, contentID uuid.UUID, version int, questions []domain.QuizQuestion) *domain.Quiz {
	tb.Helper()
	q := &domain.Quiz{ContentID: contentID, Version: version, Questions: questions}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return q
}

// SeedRetryQuiz stores a retry version written for userID.
func SeedRetryQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, contentID uuid.UUID, version int, userID uuid.UUID, questions []domain.QuizQuestion) *domain.Quiz {
	tb.Helper()
	owner := userID
	q := &domain.Quiz{ContentID: contentID, Version: version, UserID: &owner, Questions: questions}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed retry quiz: %v", err)
	}
	return q
}

func SeedAttempt(tb testing.TB, ctx context.Context, tx *gorm.DB, a *domain.QuizAttempt) *domain.QuizAttempt {
	tb.Helper()
	if a.Answers == nil {
		a.Answers = []int{}
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed attempt: %v", err)
	}
	return a
}

func Questions(n int) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.QuizQuestion{
			Question:      "question " + string(rune('A'+i)),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		})
	}
	return out
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
