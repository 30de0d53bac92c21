package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/logging"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/pkg/envconf"
)

//go:embed migrations/*.sql
var baseFS embed.FS

//go:embed test_data/*.sql
var devFS embed.FS

type migratorConfig struct {
	DSN      string     `env:"PG_DSN"`
	LogLevel slog.Level `env:"APP_LOG_LEVEL" default:"INFO"`
	AppEnv   string     `env:"APP_ENV" default:"PROD"`
}

func main() {
	err := migrateAll()
	if err != nil {
		slog.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migration run finished successfully")
}

func migrateAll() error {
	err := envconf.LoadDotenv()
	if err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}

	cfg := new(migratorConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	//nolint:errcheck
	defer db.Close()

	err = db.Ping()
	if err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	src, err := iofs.New(baseFS, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	err = pgutils.Migrate(db, "iofs", src)
	if err != nil {
		return fmt.Errorf("base migrations failed: %w", err)
	}

	slog.Info("base migrations applied")

	if cfg.AppEnv == "DEV" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err = seed(ctx, db, devFS, "test_data")
		if err != nil {
			return fmt.Errorf("dev seed failed: %w", err)
		}

		slog.Info("dev seed applied")
	}

	return nil
}

// seed executes every file in dir in name order. Seed files are written to be
// re-runnable (ON CONFLICT DO NOTHING), so they are not versioned.
func seed(ctx context.Context, db *sql.DB, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Name(), err)
		}

		_, err = db.ExecContext(ctx, string(body))
		if err != nil {
			return fmt.Errorf("exec %s: %w", e.Name(), err)
		}

		slog.Info("seed file applied", "file", e.Name())
	}

	return nil
}
