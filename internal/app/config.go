package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/pulseloop-backend/internal/data/db"
	"github.com/yungbote/pulseloop-backend/internal/modules/quiz"
	"github.com/yungbote/pulseloop-backend/internal/modules/summary"
	"github.com/yungbote/pulseloop-backend/internal/observability"
	"github.com/yungbote/pulseloop-backend/internal/platform/elevenlabs"
	"github.com/yungbote/pulseloop-backend/internal/platform/gcp"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
	"github.com/yungbote/pulseloop-backend/internal/platform/redis"
	"github.com/yungbote/pulseloop-backend/internal/services"
)

type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type GCPConfig struct {
	// Credentials is a path to a service account file or the JSON itself.
	Credentials   string                  `mapstructure:"credentials"`
	Storage       gcp.ObjectStorageConfig `mapstructure:"storage"`
	SpeechEnabled bool                    `mapstructure:"speech_enabled"`
	Speech        gcp.SpeechConfig        `mapstructure:"speech"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type Config struct {
	Env string `mapstructure:"env"`

	HTTP       HTTPConfig               `mapstructure:"http"`
	Postgres   db.PostgresConfig        `mapstructure:"postgres"`
	Redis      redis.Config             `mapstructure:"redis"`
	OpenAI     openai.Config            `mapstructure:"openai"`
	GCP        GCPConfig                `mapstructure:"gcp"`
	ElevenLabs elevenlabs.Config        `mapstructure:"elevenlabs"`
	Entra      services.EntraConfig     `mapstructure:"entra"`
	OTel       observability.OtelConfig `mapstructure:"otel"`
	Metrics    MetricsConfig            `mapstructure:"metrics"`
	Quiz       quiz.Config              `mapstructure:"quiz"`
	Summary    summary.Config           `mapstructure:"summary"`
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	port := strings.TrimPrefix(strings.TrimSpace(c.HTTP.Port), ":")
	if port == "" {
		port = "8080"
	}
	return ":" + port
}

// LoadConfig reads ./config/config.yaml when present, then environment variables.
// Nested keys map to env names with "." replaced by "_", e.g. POSTGRES_HOST.
func LoadConfig(log *logger.Logger) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy variable names.
	_ = v.BindEnv("http.port", "HTTP_PORT", "PORT")
	_ = v.BindEnv("postgres.dsn", "POSTGRES_DSN", "DATABASE_URL")
	_ = v.BindEnv("gcp.credentials", "GCP_CREDENTIALS", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("entra.dev_user_external_id", "ENTRA_DEV_USER_EXTERNAL_ID", "AUTH_DEV_USER_EXTERNAL_ID")
	_ = v.BindEnv("env", "APP_ENV")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else if log != nil {
		log.Info("Loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.HTTP.AllowedOrigins = splitList(cfg.HTTP.AllowedOrigins)
	cfg.Entra.Audiences = splitList(cfg.Entra.Audiences)
	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "pulseloop-api"
	}
	if cfg.OTel.Environment == "" {
		cfg.OTel.Environment = cfg.Env
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.name", "pulseloop")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "pulseloop")
	v.SetDefault("redis.quiz_ttl", "24h")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.azure_endpoint", "")
	v.SetDefault("openai.azure_deployment", "")
	v.SetDefault("openai.azure_api_version", "")
	v.SetDefault("openai.timeout", "60s")
	v.SetDefault("openai.max_retries", 2)

	v.SetDefault("gcp.credentials", "")
	v.SetDefault("gcp.storage.mode", "")
	v.SetDefault("gcp.storage.emulator_host", "")
	v.SetDefault("gcp.storage.public_base_url", "")
	v.SetDefault("gcp.storage.bucket", "")
	v.SetDefault("gcp.storage.transcript_bucket", "")
	v.SetDefault("gcp.storage.audio_summary_bucket", "")
	v.SetDefault("gcp.storage.article_bucket", "")
	v.SetDefault("gcp.speech_enabled", false)
	v.SetDefault("gcp.speech.language_code", "en-US")
	v.SetDefault("gcp.speech.model", "")
	v.SetDefault("gcp.speech.use_enhanced", false)

	v.SetDefault("elevenlabs.api_key", "")
	v.SetDefault("elevenlabs.base_url", "")
	v.SetDefault("elevenlabs.voice_id", "")
	v.SetDefault("elevenlabs.model_id", "")
	v.SetDefault("elevenlabs.timeout", "60s")

	v.SetDefault("entra.tenant_id", "")
	v.SetDefault("entra.audiences", []string{})
	v.SetDefault("entra.authority", "")
	v.SetDefault("entra.default_role", "employee")
	v.SetDefault("entra.keys_ttl", "1h")
	v.SetDefault("entra.dev_user_external_id", "")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "pulseloop-api")
	v.SetDefault("otel.environment", "")
	v.SetDefault("otel.version", "")
	v.SetDefault("otel.sampler_ratio", 1.0)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.headers", "")
	v.SetDefault("otel.insecure", false)

	v.SetDefault("metrics.enabled", false)

	v.SetDefault("quiz.question_count", 5)
	v.SetDefault("quiz.completion_timeout", "45s")
	v.SetDefault("quiz.remediation_timeout", "30s")
	v.SetDefault("quiz.max_candidate_segments", 0)
	v.SetDefault("quiz.per_question_segments", 0)
	v.SetDefault("quiz.fallback_timestamps", 3)

	v.SetDefault("summary.storyboard_timeout", "45s")
	v.SetDefault("summary.narration_timeout", "60s")
}

// splitList flattens comma separated entries; env vars arrive as one string.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
