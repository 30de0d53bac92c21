package main

import (
	"log/slog"
	"time"

	"github.com/user01samiul/jx-backend-sub008/internal/config"
)

type apiConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL" default:"INFO"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT" default:"15s"`
	HTTP            config.HTTPConfig
	Postgres        config.PostgresConfig
	Ledger          config.LedgerConfig
	Provider        config.ProviderConfig
	Admin           config.AdminConfig
}
