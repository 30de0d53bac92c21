package bets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
)

var ErrBetNotFound = errors.New("bet not found")

type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeWin       Outcome = "win"
	OutcomeLose      Outcome = "lose"
	OutcomeCancelled Outcome = "cancelled"
)

type Bet struct {
	ID            int64
	UserID        uint64
	GameID        string
	Category      string
	Provider      string
	TransactionID int64
	BetAmount     decimal.Decimal
	WinAmount     decimal.Decimal
	Outcome       Outcome
	RoundID       string
	SessionID     string
	PlacedAt      time.Time
	ResultAt      *time.Time
}

// RoundKey identifies the bets a win may settle against.
type RoundKey struct {
	Provider  string
	UserID    uint64
	RoundID   string
	SessionID string
}

type Filter struct {
	UserID   uint64
	GameID   string
	Outcome  Outcome
	BeforeID int64
	Limit    int
}

type Bets interface {
	Insert(ctx context.Context, tx *sql.Tx, b Bet) (int64, error)
	// OpenForRound returns the still-settleable (pending or win) bets of the
	// round. With a *sql.Tx the rows are locked.
	OpenForRound(ctx context.Context, q pgutils.Querier, key RoundKey) ([]Bet, error)
	ForRound(ctx context.Context, q pgutils.Querier, provider string, userID uint64, roundID string) ([]Bet, error)
	LockByTransaction(ctx context.Context, tx *sql.Tx, transactionID int64) (Bet, error)
	AddWin(ctx context.Context, tx *sql.Tx, betID int64, amount decimal.Decimal) error
	// ReverseWin subtracts amount from the win total; the outcome falls back
	// to fallback once nothing is left.
	ReverseWin(ctx context.Context, tx *sql.Tx, betID int64, amount decimal.Decimal, fallback Outcome) error
	MarkCancelled(ctx context.Context, tx *sql.Tx, betID int64) error
	// FinishRound records the round as closed and settles pending bets as
	// lost. It reports false when the round was already finished.
	FinishRound(ctx context.Context, tx *sql.Tx, provider string, userID uint64, roundID string) (bool, error)
	IsRoundFinished(ctx context.Context, q pgutils.Querier, provider string, userID uint64, roundID string) (bool, error)
	List(ctx context.Context, q pgutils.Querier, f Filter) ([]Bet, error)
}
