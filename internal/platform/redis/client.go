package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// KeyPrefix namespaces every key so environments can share an instance.
	KeyPrefix string        `mapstructure:"key_prefix"`
	QuizTTL   time.Duration `mapstructure:"quiz_ttl"`
}

// NewClient returns nil, nil when no address is configured; callers treat a nil client as "no cache".
func NewClient(ctx context.Context, cfg Config, log *logger.Logger) (*goredis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		log.Info("Redis disabled (no address configured)")
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("Connected to Redis", "addr", addr, "db", cfg.DB)
	return rdb, nil
}

func prefixed(prefix, key string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, ":") + ":" + key
}
