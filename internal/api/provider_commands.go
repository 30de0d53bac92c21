package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
	"github.com/user01samiul/jx-backend-sub008/internal/services/session"
)

type authenticateData struct {
	Token  string `json:"token"`
	GameID string `json:"game_id"`
}

type sessionData struct {
	Token  string `json:"token"`
	GameID string `json:"game_id"`
}

type changeBalanceData struct {
	Token           string          `json:"token"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionID   string          `json:"transaction_id"`
	RoundID         string          `json:"round_id"`
	GameID          string          `json:"game_id"`
	HistoryID       string          `json:"history_id"`
	Context         struct {
		URID string `json:"urid"`
	} `json:"context"`
}

// correlationKey is context.urid, falling back to history_id.
func (d changeBalanceData) correlationKey() string {
	if d.Context.URID != "" {
		return d.Context.URID
	}

	return d.HistoryID
}

type cancelData struct {
	Token         string `json:"token"`
	TransactionID string `json:"transaction_id"`
	GameID        string `json:"game_id"`
}

type roundData struct {
	Token   string `json:"token"`
	RoundID string `json:"round_id"`
	GameID  string `json:"game_id"`
}

type authenticateResponse struct {
	Token    string      `json:"token"`
	UserID   uint64      `json:"user_id"`
	GameID   string      `json:"game_id"`
	Balance  json.Number `json:"balance"`
	Currency string      `json:"currency"`
}

type changeBalanceResponse struct {
	Balance       json.Number `json:"balance"`
	Currency      string      `json:"currency"`
	TransactionID string      `json:"transaction_id"`
	LedgerID      int64       `json:"ledger_transaction_id"`
}

type statusResponse struct {
	TransactionID     string      `json:"transaction_id"`
	TransactionStatus string      `json:"transaction_status"`
	TransactionType   string      `json:"transaction_type"`
	Amount            json.Number `json:"amount"`
}

func (h *HandlerProvider) authenticate(ctx context.Context, raw json.RawMessage) commandResult {
	var d authenticateData
	if decodeData(raw, &d) != nil || d.Token == "" {
		return commandResult{err: errMalformed}
	}

	sess, err := h.sessions.Authenticate(ctx, d.Token, d.GameID)
	if err != nil {
		return commandResult{err: err}
	}

	snap, err := h.ledger.GameBalance(ctx, sess.UserID, sess.GameID)
	if err != nil {
		return commandResult{err: err}
	}

	return commandResult{data: authenticateResponse{
		Token:    sess.Token.String(),
		UserID:   sess.UserID,
		GameID:   sess.GameID,
		Balance:  money(snap.Scoped()),
		Currency: snap.Currency,
	}}
}

func (h *HandlerProvider) balance(ctx context.Context, raw json.RawMessage) commandResult {
	var d sessionData
	if decodeData(raw, &d) != nil || d.Token == "" {
		return commandResult{err: errMalformed}
	}

	sess, err := h.sessions.Resolve(ctx, d.Token)
	if err != nil {
		return commandResult{err: err}
	}

	snap, err := h.ledger.GameBalance(ctx, sess.UserID, sess.GameID)
	if err != nil {
		return commandResult{err: err}
	}

	return commandResult{data: newBalanceData(snap)}
}

func (h *HandlerProvider) changeBalance(ctx context.Context, raw json.RawMessage) commandResult {
	var d changeBalanceData
	if decodeData(raw, &d) != nil || d.Token == "" || d.TransactionID == "" || d.RoundID == "" {
		return commandResult{err: errMalformed}
	}

	if !validAmount(d.Amount) {
		return commandResult{err: errMalformed}
	}

	sess, err := h.sessions.Resolve(ctx, d.Token)
	if err != nil {
		return commandResult{err: err}
	}

	// A session is pinned to one game and so to one balance scope.
	if d.GameID != "" && d.GameID != sess.GameID {
		return h.withBalance(ctx, &sess, fmt.Errorf("%w: session game %q, request game %q",
			session.ErrGameMismatch, sess.GameID, d.GameID))
	}

	req := ledger.GameRequest{
		Provider:  h.provider,
		Reference: d.TransactionID,
		UserID:    sess.UserID,
		GameID:    d.GameID,
		RoundID:   d.RoundID,
		SessionID: d.correlationKey(),
		Amount:    d.Amount,
	}

	var res ledger.Result

	switch strings.ToUpper(d.TransactionType) {
	case "BET":
		req.GameID = sess.GameID

		res, err = h.ledger.Bet(ctx, req)
	case "WIN":
		res, err = h.ledger.Win(ctx, req)
	default:
		return commandResult{err: errMalformed}
	}
	if err != nil {
		return h.withBalance(ctx, &sess, err)
	}

	return commandResult{data: changeBalanceResponse{
		Balance:       money(res.Balance),
		Currency:      res.Currency,
		TransactionID: d.TransactionID,
		LedgerID:      res.Transaction.ID,
	}}
}

// cancel resolves the game from the stored transaction; the token only
// scopes the lookup to its user and is optional on late retries.
func (h *HandlerProvider) cancel(ctx context.Context, raw json.RawMessage) commandResult {
	var d cancelData
	if decodeData(raw, &d) != nil || d.TransactionID == "" {
		return commandResult{err: errMalformed}
	}

	var sess *sessions.Session
	if d.Token != "" {
		s, err := h.sessions.Resolve(ctx, d.Token)
		if err != nil {
			return commandResult{err: err}
		}

		sess = &s
	}

	req := ledger.CancelRequest{Provider: h.provider, Reference: d.TransactionID}
	if sess != nil {
		req.UserID = sess.UserID
	}

	res, err := h.ledger.CancelByReference(ctx, req)
	if err != nil {
		if sess == nil {
			return h.withReferenceBalance(ctx, d.TransactionID, err)
		}

		return h.withBalance(ctx, sess, err)
	}

	data := &balanceData{Balance: money(res.Balance), Currency: res.Currency}
	if sess != nil {
		snap, err := h.ledger.GameBalance(ctx, sess.UserID, sess.GameID)
		if err == nil {
			data = newBalanceData(snap)
		}
	}

	return commandResult{data: data}
}

// withReferenceBalance attaches the balance of the user who owns reference
// when a tokenless command fails.
func (h *HandlerProvider) withReferenceBalance(ctx context.Context, reference string, err error) commandResult {
	res := commandResult{err: err}

	t, lerr := h.ledger.Status(ctx, h.provider, reference)
	if lerr != nil || t.Metadata.GameID == "" {
		return res
	}

	snap, berr := h.ledger.GameBalance(ctx, t.UserID, t.Metadata.GameID)
	if berr == nil {
		res.balance = newBalanceData(snap)
	}

	return res
}

func (h *HandlerProvider) status(ctx context.Context, raw json.RawMessage) commandResult {
	var d cancelData
	if decodeData(raw, &d) != nil || d.TransactionID == "" {
		return commandResult{err: errMalformed}
	}

	t, err := h.ledger.Status(ctx, h.provider, d.TransactionID)
	if err != nil {
		return commandResult{err: err}
	}

	if d.Token != "" {
		sess, err := h.sessions.Resolve(ctx, d.Token)
		if err == nil && sess.UserID != t.UserID {
			return commandResult{err: transactions.ErrTransactionNotFound}
		}
	}

	return commandResult{data: statusResponse{
		TransactionID:     d.TransactionID,
		TransactionStatus: strings.ToUpper(string(t.Status)),
		TransactionType:   strings.ToUpper(string(t.Type)),
		Amount:            money(t.Amount),
	}}
}

func (h *HandlerProvider) finishRound(ctx context.Context, raw json.RawMessage) commandResult {
	var d roundData
	if decodeData(raw, &d) != nil || d.Token == "" || d.RoundID == "" {
		return commandResult{err: errMalformed}
	}

	sess, err := h.sessions.Resolve(ctx, d.Token)
	if err != nil {
		return commandResult{err: err}
	}

	gameID := d.GameID
	if gameID == "" {
		gameID = sess.GameID
	}

	err = h.ledger.FinishRound(ctx, ledger.RoundRequest{
		Provider: h.provider,
		UserID:   sess.UserID,
		RoundID:  d.RoundID,
		GameID:   gameID,
	})
	if err != nil {
		return h.withBalance(ctx, &sess, err)
	}

	snap, err := h.ledger.GameBalance(ctx, sess.UserID, sess.GameID)
	if err != nil {
		return commandResult{err: err}
	}

	return commandResult{data: newBalanceData(snap)}
}
