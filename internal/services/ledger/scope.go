package ledger

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

// Scope is the balance a mutation targets: the main wallet when Category is
// empty, otherwise one category sub-balance.
type Scope struct {
	Category string
}

func MainScope() Scope { return Scope{} }

func CategoryScope(name string) Scope { return Scope{Category: name} }

func (s Scope) IsMain() bool { return s.Category == "" }

func (s Scope) String() string {
	if s.IsMain() {
		return "main"
	}

	return "cat:" + s.Category
}

// Key is the serialization key of (user, scope).
func (s Scope) Key(userID uint64) string {
	return "wallet:" + strconv.FormatUint(userID, 10) + ":" + s.String()
}

// WalletMode selects which balance provider games settle against.
type WalletMode string

const (
	ModeCategory WalletMode = "category"
	ModeMain     WalletMode = "main"
)

// Snapshot is a consistent read of a user's main balance and, when Category
// is set, one category balance.
type Snapshot struct {
	UserID          uint64
	Currency        string
	Main            decimal.Decimal
	Category        string
	CategoryBalance decimal.Decimal
}

// Scoped returns the balance a game bound to this snapshot's scope sees.
func (s Snapshot) Scoped() decimal.Decimal {
	if s.Category == "" {
		return s.Main
	}

	return s.CategoryBalance
}

// Result describes an applied (or replayed) mutation.
type Result struct {
	Transaction transactions.Transaction
	// Balance is the balance of the mutated scope right after the entry.
	Balance  decimal.Decimal
	Currency string
	Replayed bool
}

func resultOf(t transactions.Transaction, replayed bool) Result {
	return Result{
		Transaction: t,
		Balance:     t.BalanceAfter,
		Currency:    t.Currency,
		Replayed:    replayed,
	}
}

// GameRequest is a provider BET or WIN. SessionID is the round correlation
// key the provider sends; GameID may be omitted on a WIN.
type GameRequest struct {
	Provider  string
	Reference string
	UserID    uint64
	GameID    string
	RoundID   string
	SessionID string
	Amount    decimal.Decimal
}

type CancelRequest struct {
	Provider  string
	Reference string
	// UserID, when set, must own the referenced transaction.
	UserID uint64
	By     string
}

type RoundRequest struct {
	Provider string
	UserID   uint64
	RoundID  string
	GameID   string
}

type TransferDirection string

const (
	MainToCategory TransferDirection = "main_to_category"
	CategoryToMain TransferDirection = "category_to_main"
)

type TransferRequest struct {
	UserID    uint64
	Category  string
	Amount    decimal.Decimal
	Direction TransferDirection
	// Reference makes the transfer idempotent when set.
	Reference string
	By        string
}

// EntryRequest is a non-game mutation from an external collaborator such as
// the withdrawal batch or back office adjustments.
type EntryRequest struct {
	UserID      uint64
	Category    string
	Type        transactions.Type
	Direction   transactions.Direction
	Amount      decimal.Decimal
	Provider    string
	Reference   string
	Description string
	By          string
	Extra       map[string]any
}

type WalletView struct {
	Snapshot
	Categories map[string]decimal.Decimal
	CreatedAt  time.Time
}

func validAmount(a decimal.Decimal) bool {
	return a.IsPositive() && a.Equal(a.Round(2))
}
