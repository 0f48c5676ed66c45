package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	Webhook struct {
		Secret string `envconfig:"WEBHOOK_SECRET"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Processor struct {
		BatchSize    int           `envconfig:"PROCESSOR_BATCH_SIZE" default:"100"`
		PollInterval time.Duration `envconfig:"PROCESSOR_POLL_INTERVAL" default:"5s"`
	} `envconfig:""`

	Stats struct {
		JobTimeout time.Duration `envconfig:"STATS_JOB_TIMEOUT" default:"10m"`
		CronSpec   string        `envconfig:"STATS_CRON_SPEC" default:"30 23 * * *"`
		AdminPort  int           `envconfig:"STATS_ADMIN_PORT" default:"8081"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
