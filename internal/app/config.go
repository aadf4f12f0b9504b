package app

import (
	"time"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	"github.com/yungbote/vibecode-backend/internal/data/db"
	"github.com/yungbote/vibecode-backend/internal/observability"
	"github.com/yungbote/vibecode-backend/internal/platform/envutil"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

type Config struct {
	Port        string
	CORSOrigins []string

	LLMProviders []string
	LLMTimeout   time.Duration

	SessionTTL      time.Duration
	ChatLocale      string
	RequestDeadline time.Duration

	VersionStoreRoot  string
	InteractionLogDir string

	DB db.Config

	RedisAddr   string
	RedisPrefix string

	Otel observability.OtelConfig
}

// LoadConfig reads the environment once at start-up.
func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		CORSOrigins: envutil.List("CORS_ORIGINS", nil),

		LLMProviders: envutil.List("LLM_PROVIDERS", []string{"mock"}),
		LLMTimeout:   envutil.Seconds("LLM_TIMEOUT_SECONDS", llm.DefaultTimeout),

		SessionTTL:      envutil.Seconds("SESSION_TTL_SECONDS", time.Hour),
		ChatLocale:      envutil.String("CHAT_LOCALE", "ru"),
		RequestDeadline: envutil.Seconds("REQUEST_DEADLINE_SECONDS", 120*time.Second),

		VersionStoreRoot:  envutil.String("VERSION_STORE_ROOT", "projects"),
		InteractionLogDir: envutil.String("INTERACTION_LOG_DIR", "logs"),

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", db.DriverSQLite),
			SQLitePath:       envutil.String("SQLITE_PATH", "vibecode.db"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "vibecode"),
		},

		RedisAddr:   envutil.String("REDIS_ADDR", ""),
		RedisPrefix: envutil.String("REDIS_TOPIC_PREFIX", ""),

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "vibecode-backend"),
			Environment: envutil.String("APP_ENV", "development"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: float64(envutil.Int("OTEL_SAMPLE_PERCENT", 100)) / 100,
		},
	}
	if log != nil {
		log.Info("config loaded",
			"port", cfg.Port,
			"llm_providers", cfg.LLMProviders,
			"llm_timeout", cfg.LLMTimeout.String(),
			"session_ttl", cfg.SessionTTL.String(),
			"chat_locale", cfg.ChatLocale,
			"request_deadline", cfg.RequestDeadline.String(),
			"version_store_root", cfg.VersionStoreRoot,
			"interaction_log_dir", cfg.InteractionLogDir,
			"db_driver", cfg.DB.Driver,
			"redis", cfg.RedisAddr != "",
			"otel", cfg.Otel.Enabled,
		)
	}
	return cfg
}
