package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/user01samiul/jx-backend-sub008/internal/api"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/logging"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/metrics"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	pgsessions "github.com/user01samiul/jx-backend-sub008/internal/repos/sessions/postgres"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
	"github.com/user01samiul/jx-backend-sub008/internal/services/session"
	"github.com/user01samiul/jx-backend-sub008/pkg/envconf"
	"github.com/user01samiul/jx-backend-sub008/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	err := envconf.LoadDotenv()
	if err != nil {
		return fmt.Errorf("load dotenv: %w", err)
	}

	cfg := new(apiConfig)

	err = envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	db, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.AddNamed("postgres", func(context.Context) error {
		return db.Close()
	})

	m := metrics.New()

	// --- Services ---
	ldg := ledger.New(db, cfg.Ledger,
		ledger.WithLogger(slog.Default()),
		ledger.WithLockObserver(m),
	)
	sessions := session.New(pgsessions.New(db), cfg.Provider.SessionTTL)

	if cfg.Admin.Token == "" {
		slog.Warn("ADMIN_TOKEN is empty, admin endpoints will reject every call")
	}

	// --- HTTP server ---
	router := api.NewRouter(api.RouterDeps{
		Provider:    api.NewHandlerProvider(ldg, sessions, cfg.Provider.Name, cfg.Provider.Secret, m, slog.Default()),
		Admin:       api.NewHandlerAdmin(ldg, sessions),
		Metrics:     m.Handler(),
		AdminToken:  cfg.Admin.Token,
		CORSOrigins: cfg.Admin.CORSOrigins,
		Logger:      slog.Default(),
	})
	srv := api.NewServer(cfg.HTTP, router)

	shutdownqueue.AddNamed("http server", func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.HTTP.Port, "provider", cfg.Provider.Name, "wallet_mode", ldg.Mode())

	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
