package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/games"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
)

// AdminLedger is the back office and collaborator view of the ledger.
type AdminLedger interface {
	CreateWallet(ctx context.Context, userID uint64, currency string, opening decimal.Decimal, by string) (ledger.Snapshot, error)
	Wallet(ctx context.Context, userID uint64) (ledger.WalletView, error)
	Balance(ctx context.Context, userID uint64, category string) (ledger.Snapshot, error)
	Apply(ctx context.Context, req ledger.EntryRequest) (ledger.Result, error)
	Transfer(ctx context.Context, req ledger.TransferRequest) (ledger.Snapshot, error)
	Consolidate(ctx context.Context, userID uint64, by string) (ledger.Snapshot, error)
	Transaction(ctx context.Context, id int64) (transactions.Transaction, error)
	ListTransactions(ctx context.Context, f transactions.Filter) ([]transactions.Transaction, error)
	ListBets(ctx context.Context, f bets.Filter) ([]bets.Bet, error)
	CancelByID(ctx context.Context, id int64, by string) (ledger.Result, error)
	UpsertGame(ctx context.Context, id, category string, enabled bool) error
	SetGameEnabled(ctx context.Context, id string, enabled bool) error
	SetCategoryEnabled(ctx context.Context, name string, enabled bool) error
}

type AdminSessions interface {
	IssueLaunch(ctx context.Context, userID uint64, gameID string) (sessions.Session, error)
}

// HandlerAdmin exposes the ledger to operators and internal collaborators.
type HandlerAdmin struct {
	ledger   AdminLedger
	sessions AdminSessions
}

func NewHandlerAdmin(l AdminLedger, s AdminSessions) *HandlerAdmin {
	return &HandlerAdmin{ledger: l, sessions: s}
}

const defaultActor = "admin"

func actor(r *http.Request) string {
	by := strings.TrimSpace(r.Header.Get("X-Admin-User"))
	if by == "" {
		return defaultActor
	}

	return by
}

// writeLedgerError maps a ledger error onto an HTTP status. Internal details
// are never echoed.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallets.ErrWalletNotFound),
		errors.Is(err, transactions.ErrTransactionNotFound),
		errors.Is(err, games.ErrGameNotFound),
		errors.Is(err, games.ErrCategoryNotFound),
		errors.Is(err, wallets.ErrUnknownCategory):
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	switch ledger.Classify(err) {
	case ledger.ClassValidation:
		writeError(w, http.StatusBadRequest, err.Error())
	case ledger.ClassBusiness:
		writeError(w, http.StatusConflict, err.Error())
	case ledger.ClassContention:
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "busy, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type createWalletRequest struct {
	UserID         uint64          `json:"user_id"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateWalletHandler handles POST /admin/wallets
func (h *HandlerAdmin) CreateWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.ledger.CreateWallet(r.Context(), req.UserID, strings.ToUpper(req.Currency), req.OpeningBalance, actor(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newSnapshotView(snap))
}

// GetWalletHandler handles GET /admin/wallets/{userId}
func (h *HandlerAdmin) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.ledger.Wallet(r.Context(), userID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newWalletView(view))
}

// GetBalanceHandler handles GET /admin/wallets/{userId}/balance?category=
func (h *HandlerAdmin) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.ledger.Balance(r.Context(), userID, r.URL.Query().Get("category"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSnapshotView(snap))
}

type entryRequest struct {
	Category    string                 `json:"category"`
	Type        transactions.Type      `json:"type"`
	Direction   transactions.Direction `json:"direction"`
	Amount      decimal.Decimal        `json:"amount"`
	Provider    string                 `json:"provider"`
	Reference   string                 `json:"reference"`
	Description string                 `json:"description"`
	Extra       map[string]any         `json:"extra"`
}

// ApplyEntryHandler handles POST /admin/wallets/{userId}/entries
func (h *HandlerAdmin) ApplyEntryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req entryRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ledger.Apply(r.Context(), ledger.EntryRequest{
		UserID:      userID,
		Category:    req.Category,
		Type:        req.Type,
		Direction:   req.Direction,
		Amount:      req.Amount,
		Provider:    req.Provider,
		Reference:   req.Reference,
		Description: req.Description,
		By:          actor(r),
		Extra:       req.Extra,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}

	writeJSON(w, status, newResultView(res))
}

type transferRequest struct {
	Category  string                   `json:"category"`
	Amount    decimal.Decimal          `json:"amount"`
	Direction ledger.TransferDirection `json:"direction"`
	Reference string                   `json:"reference"`
}

// TransferHandler handles POST /admin/wallets/{userId}/transfers
func (h *HandlerAdmin) TransferHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req transferRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.ledger.Transfer(r.Context(), ledger.TransferRequest{
		UserID:    userID,
		Category:  req.Category,
		Amount:    req.Amount,
		Direction: req.Direction,
		Reference: req.Reference,
		By:        actor(r),
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSnapshotView(snap))
}

// ConsolidateHandler handles POST /admin/wallets/{userId}/consolidate
func (h *HandlerAdmin) ConsolidateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.ledger.Consolidate(r.Context(), userID, actor(r))
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newSnapshotView(snap))
}

type launchRequest struct {
	GameID string `json:"game_id"`
}

// IssueLaunchHandler handles POST /admin/wallets/{userId}/launch
func (h *HandlerAdmin) IssueLaunchHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req launchRequest

	err = decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "game_id required")
		return
	}

	sess, err := h.sessions.IssueLaunch(r.Context(), userID, req.GameID)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      sess.Token.String(),
		"user_id":    sess.UserID,
		"game_id":    sess.GameID,
		"expires_at": sess.ExpiresAt,
	})
}

// ListTransactionsHandler handles GET /admin/transactions
func (h *HandlerAdmin) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	var f transactions.Filter

	userID, beforeID, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f.UserID = userID
	f.BeforeID = beforeID
	f.Limit = limit
	f.Type = transactions.Type(r.URL.Query().Get("type"))
	f.Provider = r.URL.Query().Get("provider")

	out, err := h.ledger.ListTransactions(r.Context(), f)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	views := make([]transactionView, 0, len(out))
	for _, t := range out {
		views = append(views, newTransactionView(t))
	}

	writeJSON(w, http.StatusOK, views)
}

// GetTransactionHandler handles GET /admin/transactions/{txId}
func (h *HandlerAdmin) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parsePositive(chi.URLParam(r, "txId"), "txId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.ledger.Transaction(r.Context(), int64(id)) //nolint:gosec
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newTransactionView(t))
}

// CancelTransactionHandler handles POST /admin/transactions/{txId}/cancel
func (h *HandlerAdmin) CancelTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parsePositive(chi.URLParam(r, "txId"), "txId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.ledger.CancelByID(r.Context(), int64(id), actor(r)) //nolint:gosec
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newResultView(res))
}

// ListBetsHandler handles GET /admin/bets
func (h *HandlerAdmin) ListBetsHandler(w http.ResponseWriter, r *http.Request) {
	userID, beforeID, limit, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.ledger.ListBets(r.Context(), bets.Filter{
		UserID:   userID,
		GameID:   r.URL.Query().Get("game_id"),
		Outcome:  bets.Outcome(r.URL.Query().Get("outcome")),
		BeforeID: beforeID,
		Limit:    limit,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	views := make([]betView, 0, len(out))
	for _, b := range out {
		views = append(views, newBetView(b))
	}

	writeJSON(w, http.StatusOK, views)
}

type gameRequest struct {
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

// UpsertGameHandler handles PUT /admin/games/{gameId}
func (h *HandlerAdmin) UpsertGameHandler(w http.ResponseWriter, r *http.Request) {
	var req gameRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = h.ledger.UpsertGame(r.Context(), chi.URLParam(r, "gameId"), req.Category, req.Enabled)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func decodeEnabled(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req enabledRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false, false
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled required")
		return false, false
	}

	return *req.Enabled, true
}

// SetGameEnabledHandler handles PUT /admin/games/{gameId}/enabled
func (h *HandlerAdmin) SetGameEnabledHandler(w http.ResponseWriter, r *http.Request) {
	enabled, ok := decodeEnabled(w, r)
	if !ok {
		return
	}

	err := h.ledger.SetGameEnabled(r.Context(), chi.URLParam(r, "gameId"), enabled)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetCategoryEnabledHandler handles PUT /admin/categories/{name}/enabled
func (h *HandlerAdmin) SetCategoryEnabledHandler(w http.ResponseWriter, r *http.Request) {
	enabled, ok := decodeEnabled(w, r)
	if !ok {
		return
	}

	err := h.ledger.SetCategoryEnabled(r.Context(), chi.URLParam(r, "name"), enabled)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pageParams(r *http.Request) (uint64, int64, int, error) {
	userID, err := queryInt(r, "user_id")
	if err != nil {
		return 0, 0, 0, err
	}

	beforeID, err := queryInt(r, "before_id")
	if err != nil {
		return 0, 0, 0, err
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, 0, err
	}

	return uint64(userID), beforeID, int(limit), nil //nolint:gosec
}
