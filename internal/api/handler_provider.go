package api

import (
	"context"
	"crypto/sha1" //nolint:gosec // the provider protocol signs with SHA-1
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
)

// ProviderLedger is what the provider callback channel needs from the ledger.
type ProviderLedger interface {
	Bet(ctx context.Context, req ledger.GameRequest) (ledger.Result, error)
	Win(ctx context.Context, req ledger.GameRequest) (ledger.Result, error)
	CancelByReference(ctx context.Context, req ledger.CancelRequest) (ledger.Result, error)
	Status(ctx context.Context, provider, reference string) (transactions.Transaction, error)
	FinishRound(ctx context.Context, req ledger.RoundRequest) error
	GameBalance(ctx context.Context, userID uint64, gameID string) (ledger.Snapshot, error)
}

type ProviderSessions interface {
	Authenticate(ctx context.Context, credential, gameID string) (sessions.Session, error)
	Resolve(ctx context.Context, token string) (sessions.Session, error)
}

type CommandObserver interface {
	ObserveCommand(command, code string, d time.Duration)
}

const (
	statusOK    = "OK"
	statusError = "ERROR"

	timestampLayout = "2006-01-02 15:04:05"
)

const (
	cmdAuthenticate  = "authenticate"
	cmdBalance       = "balance"
	cmdChangeBalance = "changebalance"
	cmdCancel        = "cancel"
	cmdStatus        = "status"
	cmdFinishRound   = "finishround"
	cmdPing          = "ping"
)

// HandlerProvider serves the signed provider callback channel.
type HandlerProvider struct {
	ledger   ProviderLedger
	sessions ProviderSessions
	provider string
	secret   string
	metrics  CommandObserver
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandlerProvider(l ProviderLedger, s ProviderSessions, provider, secret string, metrics CommandObserver, logger *slog.Logger) *HandlerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &HandlerProvider{
		ledger:   l,
		sessions: s,
		provider: provider,
		secret:   secret,
		metrics:  metrics,
		logger:   logger.With("component", "provider_gateway"),
		now:      time.Now,
	}
}

type providerRequest struct {
	Command          string          `json:"command"`
	RequestTimestamp string          `json:"request_timestamp"`
	Hash             string          `json:"hash"`
	Data             json.RawMessage `json:"data"`
}

type providerResponse struct {
	Status            string `json:"status"`
	ResponseTimestamp string `json:"response_timestamp"`
	Hash              string `json:"hash"`
	ErrorCode         string `json:"error_code,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	Data              any    `json:"data"`
}

type providerEnvelope struct {
	Request  json.RawMessage  `json:"request"`
	Response providerResponse `json:"response"`
}

// commandResult is what a command handler hands back for rendering. On error
// balance, when set, is the caller's current balance.
type commandResult struct {
	data    any
	err     error
	balance *balanceData
}

type balanceData struct {
	Balance  json.Number `json:"balance"`
	Currency string      `json:"currency"`
}

func newBalanceData(s ledger.Snapshot) *balanceData {
	return &balanceData{Balance: money(s.Scoped()), Currency: s.Currency}
}

// ServeHTTP handles POST /provider. Every outcome, errors included, is an
// HTTP 200 with the provider envelope; the result lives in response.status.
func (h *HandlerProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.render(w, nil, "", commandResult{err: errMalformed}, start)
		return
	}

	var req providerRequest
	if json.Unmarshal(body, &req) != nil || req.Command == "" {
		echo := json.RawMessage(nil)
		if json.Valid(body) {
			echo = body
		}

		h.render(w, echo, "", commandResult{err: errMalformed}, start)
		return
	}

	res := h.dispatch(r.Context(), r.Header.Get("X-Authorization"), req)
	h.render(w, body, req.Command, res, start)
}

func (h *HandlerProvider) dispatch(ctx context.Context, authHeader string, req providerRequest) commandResult {
	if req.Command == cmdPing {
		return commandResult{data: struct{}{}}
	}

	if !h.authorized(authHeader, req) {
		return commandResult{err: errUnauthorized}
	}

	switch req.Command {
	case cmdAuthenticate:
		return h.authenticate(ctx, req.Data)
	case cmdBalance:
		return h.balance(ctx, req.Data)
	case cmdChangeBalance:
		return h.changeBalance(ctx, req.Data)
	case cmdCancel:
		return h.cancel(ctx, req.Data)
	case cmdStatus:
		return h.status(ctx, req.Data)
	case cmdFinishRound:
		return h.finishRound(ctx, req.Data)
	default:
		return commandResult{err: errUnknownCommand}
	}
}

// authorized checks both signatures before any data is decoded.
func (h *HandlerProvider) authorized(header string, req providerRequest) bool {
	wantHeader := sign(req.Command, h.secret)
	wantHash := sign(req.Command, req.RequestTimestamp, h.secret)

	headerOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(header)), []byte(wantHeader)) == 1
	hashOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(req.Hash)), []byte(wantHash)) == 1

	return headerOK && hashOK
}

func sign(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, ""))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func (h *HandlerProvider) render(w http.ResponseWriter, echo json.RawMessage, command string, res commandResult, start time.Time) {
	ts := h.now().UTC().Format(timestampLayout)

	resp := providerResponse{
		Status:            statusOK,
		ResponseTimestamp: ts,
		Data:              res.data,
	}

	code := statusOK
	if res.err != nil {
		code, resp.ErrorMessage = errorCode(res.err)
		resp.Status = statusError
		resp.ErrorCode = code
		resp.Data = struct{}{}
		if res.balance != nil {
			resp.Data = res.balance
		}

		h.logFailure(command, code, res.err)
	}

	resp.Hash = sign(resp.Status, ts, h.secret)

	if command == "" {
		command = "malformed"
	}
	if h.metrics != nil {
		h.metrics.ObserveCommand(command, code, h.now().Sub(start))
	}

	if echo == nil {
		echo = json.RawMessage("null")
	}

	writeJSON(w, http.StatusOK, providerEnvelope{Request: echo, Response: resp})
}

func (h *HandlerProvider) logFailure(command, code string, err error) {
	attrs := []any{"command", command, "error_code", code, "error", err}

	if code == codeInternal && !errors.Is(err, errUnauthorized) {
		h.logger.Error("provider command failed", attrs...)
		return
	}

	h.logger.Info("provider command rejected", attrs...)
}

// decodeData decodes a command's data object; providers may add fields, so
// unknown ones are ignored.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return errMalformed
	}

	err := json.Unmarshal(raw, v)
	if err != nil {
		return errMalformed
	}

	return nil
}

// withBalance attaches the caller's current balance to a failed command.
func (h *HandlerProvider) withBalance(ctx context.Context, sess *sessions.Session, err error) commandResult {
	res := commandResult{err: err}
	if sess == nil {
		return res
	}

	snap, berr := h.ledger.GameBalance(ctx, sess.UserID, sess.GameID)
	if berr == nil {
		res.balance = newBalanceData(snap)
	}

	return res
}

func validAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Round(2))
}
