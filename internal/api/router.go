package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/logging"
)

type RouterDeps struct {
	Provider *HandlerProvider
	Admin    *HandlerAdmin
	// Metrics is mounted on /metrics when set.
	Metrics     http.Handler
	AdminToken  string
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter wires the provider callback channel, the admin surface and the
// operational endpoints onto one chi router.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	if deps.Provider != nil {
		r.Method(http.MethodPost, "/provider", deps.Provider)
	}

	if deps.Admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: deps.CORSOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", "X-Admin-Token", "X-Admin-User"},
				MaxAge:         300,
			}))
			r.Use(requireToken(deps.AdminToken))

			h := deps.Admin
			r.Post("/wallets", h.CreateWalletHandler)
			r.Route("/wallets/{userId}", func(r chi.Router) {
				r.Get("/", h.GetWalletHandler)
				r.Get("/balance", h.GetBalanceHandler)
				r.Post("/entries", h.ApplyEntryHandler)
				r.Post("/transfers", h.TransferHandler)
				r.Post("/consolidate", h.ConsolidateHandler)
				r.Post("/launch", h.IssueLaunchHandler)
			})

			r.Get("/transactions", h.ListTransactionsHandler)
			r.Get("/transactions/{txId}", h.GetTransactionHandler)
			r.Post("/transactions/{txId}/cancel", h.CancelTransactionHandler)
			r.Get("/bets", h.ListBetsHandler)

			r.Put("/games/{gameId}", h.UpsertGameHandler)
			r.Put("/games/{gameId}/enabled", h.SetGameEnabledHandler)
			r.Put("/categories/{name}/enabled", h.SetCategoryEnabledHandler)
		})
	}

	return r
}

// requireToken rejects admin calls without the configured X-Admin-Token. An
// empty token disables the admin surface entirely.
func requireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			got := strings.TrimSpace(r.Header.Get("X-Admin-Token"))
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
