package api

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
)

// money renders an amount as a JSON number with exactly two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

type snapshotView struct {
	UserID          uint64       `json:"user_id"`
	Currency        string       `json:"currency"`
	MainBalance     json.Number  `json:"main_balance"`
	Category        string       `json:"category,omitempty"`
	CategoryBalance *json.Number `json:"category_balance,omitempty"`
}

func newSnapshotView(s ledger.Snapshot) snapshotView {
	v := snapshotView{
		UserID:      s.UserID,
		Currency:    s.Currency,
		MainBalance: money(s.Main),
		Category:    s.Category,
	}

	if s.Category != "" {
		cb := money(s.CategoryBalance)
		v.CategoryBalance = &cb
	}

	return v
}

type walletView struct {
	snapshotView
	Categories map[string]json.Number `json:"categories"`
	CreatedAt  time.Time              `json:"created_at"`
}

func newWalletView(w ledger.WalletView) walletView {
	v := walletView{
		snapshotView: newSnapshotView(w.Snapshot),
		Categories:   make(map[string]json.Number, len(w.Categories)),
		CreatedAt:    w.CreatedAt,
	}
	for name, bal := range w.Categories {
		v.Categories[name] = money(bal)
	}

	return v
}

type transactionView struct {
	ID                int64                  `json:"id"`
	UserID            uint64                 `json:"user_id"`
	Type              transactions.Type      `json:"type"`
	Direction         transactions.Direction `json:"direction"`
	Amount            json.Number            `json:"amount"`
	BalanceBefore     json.Number            `json:"balance_before"`
	BalanceAfter      json.Number            `json:"balance_after"`
	Currency          string                 `json:"currency"`
	Category          string                 `json:"category,omitempty"`
	Provider          string                 `json:"provider,omitempty"`
	ExternalReference string                 `json:"external_reference,omitempty"`
	RelatedID         int64                  `json:"related_transaction_id,omitempty"`
	Status            transactions.Status    `json:"status"`
	Description       string                 `json:"description,omitempty"`
	Metadata          transactions.Metadata  `json:"metadata"`
	CreatedAt         time.Time              `json:"created_at"`
	CreatedBy         string                 `json:"created_by,omitempty"`
}

func newTransactionView(t transactions.Transaction) transactionView {
	return transactionView{
		ID:                t.ID,
		UserID:            t.UserID,
		Type:              t.Type,
		Direction:         t.Direction,
		Amount:            money(t.Amount),
		BalanceBefore:     money(t.BalanceBefore),
		BalanceAfter:      money(t.BalanceAfter),
		Currency:          t.Currency,
		Category:          t.Category,
		Provider:          t.Provider,
		ExternalReference: t.ExternalReference,
		RelatedID:         t.RelatedID,
		Status:            t.Status,
		Description:       t.Description,
		Metadata:          t.Metadata,
		CreatedAt:         t.CreatedAt,
		CreatedBy:         t.CreatedBy,
	}
}

type resultView struct {
	Transaction transactionView `json:"transaction"`
	Balance     json.Number     `json:"balance"`
	Currency    string          `json:"currency"`
	Replayed    bool            `json:"replayed"`
}

func newResultView(r ledger.Result) resultView {
	return resultView{
		Transaction: newTransactionView(r.Transaction),
		Balance:     money(r.Balance),
		Currency:    r.Currency,
		Replayed:    r.Replayed,
	}
}

type betView struct {
	ID            int64        `json:"id"`
	UserID        uint64       `json:"user_id"`
	GameID        string       `json:"game_id"`
	Category      string       `json:"category,omitempty"`
	Provider      string       `json:"provider"`
	TransactionID int64        `json:"transaction_id"`
	BetAmount     json.Number  `json:"bet_amount"`
	WinAmount     json.Number  `json:"win_amount"`
	Outcome       bets.Outcome `json:"outcome"`
	RoundID       string       `json:"round_id"`
	SessionID     string       `json:"session_id,omitempty"`
	PlacedAt      time.Time    `json:"placed_at"`
	ResultAt      *time.Time   `json:"result_at,omitempty"`
}

func newBetView(b bets.Bet) betView {
	return betView{
		ID:            b.ID,
		UserID:        b.UserID,
		GameID:        b.GameID,
		Category:      b.Category,
		Provider:      b.Provider,
		TransactionID: b.TransactionID,
		BetAmount:     money(b.BetAmount),
		WinAmount:     money(b.WinAmount),
		Outcome:       b.Outcome,
		RoundID:       b.RoundID,
		SessionID:     b.SessionID,
		PlacedAt:      b.PlacedAt,
		ResultAt:      b.ResultAt,
	}
}
