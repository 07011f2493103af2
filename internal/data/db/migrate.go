package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/pulseloop-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return dropLegacyIndexes(db)
}

// dropLegacyIndexes removes indexes older schemas created that the models no longer declare.
func dropLegacyIndexes(db *gorm.DB) error {
	m := db.Migrator()
	// Retry quizzes are per learner, so (content_id, version) is no longer unique.
	if m.HasIndex(&domain.Quiz{}, "idx_quiz_content_version") {
		if err := m.DropIndex(&domain.Quiz{}, "idx_quiz_content_version"); err != nil {
			return fmt.Errorf("drop idx_quiz_content_version: %w", err)
		}
	}
	return nil
}

// EnsureFeedIndexes adds the composite ordering indexes the feed and progress queries lean on.
// Postgres only; other dialects get the plain gorm-tag indexes.
func EnsureFeedIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	stmts := []struct {
		name string
		sql  string
	}{
		{
			name: "idx_content_items_feed_order",
			sql: `CREATE INDEX IF NOT EXISTS idx_content_items_feed_order
			ON content_items (priority_score DESC, published_at DESC NULLS LAST, created_at DESC);`,
		},
		{
			name: "idx_content_items_role_tags",
			sql: `CREATE INDEX IF NOT EXISTS idx_content_items_role_tags
			ON content_items USING GIN ((role_tags::jsonb));`,
		},
		{
			name: "idx_quiz_attempts_user_created",
			sql: `CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user_created
			ON quiz_attempts (user_id, created_at DESC);`,
		},
		{
			name: "idx_events_user_type_created",
			sql: `CREATE INDEX IF NOT EXISTS idx_events_user_type_created
			ON events (user_id, type, created_at DESC);`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
