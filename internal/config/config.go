package config

import "time"

// HTTPConfig is the listener of the API process. WriteTimeout bounds a whole
// provider command, ledger lock retries included.
type HTTPConfig struct {
	Port              uint16        `env:"APP_PORT" default:"8080"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" default:"15s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes    int           `env:"HTTP_MAX_HEADER_BYTES" default:"65536"`
}

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

// LedgerConfig tunes the per-scope lock acquisition and the scope provider games settle against.
type LedgerConfig struct {
	LockRetries    int           `env:"LEDGER_LOCK_RETRIES" default:"8"`
	LockBackoff    time.Duration `env:"LEDGER_LOCK_BACKOFF" default:"10ms"`
	LockMaxBackoff time.Duration `env:"LEDGER_LOCK_MAX_BACKOFF" default:"250ms"`
	// WalletMode is "category" (games see their category balance) or "main".
	WalletMode string `env:"LEDGER_WALLET_MODE" default:"category"`
}

type ProviderConfig struct {
	Name       string        `env:"PROVIDER_NAME" default:"innova"`
	Secret     string        `env:"PROVIDER_SECRET"`
	SessionTTL time.Duration `env:"PROVIDER_SESSION_TTL" default:"12h"`
}

type AdminConfig struct {
	Token       string   `env:"ADMIN_TOKEN" default:""`
	CORSOrigins []string `env:"ADMIN_CORS_ORIGINS" default:"*"`
}
