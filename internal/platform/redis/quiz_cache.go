package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pulseloop-backend/internal/domain"
)

const defaultQuizTTL = time.Hour

// QuizCache holds immutable quiz versions keyed by content and version.
type QuizCache interface {
	Get(ctx context.Context, contentID uuid.UUID, version int) (*domain.Quiz, error)
	Put(ctx context.Context, q *domain.Quiz) error
}

type quizCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewQuizCache(rdb *goredis.Client, cfg Config) QuizCache {
	ttl := cfg.QuizTTL
	if ttl <= 0 {
		ttl = defaultQuizTTL
	}
	return &quizCache{rdb: rdb, prefix: cfg.KeyPrefix, ttl: ttl}
}

func QuizKey(contentID uuid.UUID, version int) string {
	return fmt.Sprintf("quiz:%s:v%d", contentID, version)
}

// Get returns nil, nil on a miss.
func (c *quizCache) Get(ctx context.Context, contentID uuid.UUID, version int) (*domain.Quiz, error) {
	raw, err := c.rdb.Get(ctx, prefixed(c.prefix, QuizKey(contentID, version))).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var q domain.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("decode cached quiz: %w", err)
	}
	return &q, nil
}

func (c *quizCache) Put(ctx context.Context, q *domain.Quiz) error {
	if q == nil || q.ID == uuid.Nil {
		return nil
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, prefixed(c.prefix, QuizKey(q.ContentID, q.Version)), raw, c.ttl).Err()
}
