package transactions

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrAlreadyCancelled     = errors.New("transaction already cancelled")
)

type Type string

const (
	TypeDeposit      Type = "deposit"
	TypeWithdrawal   Type = "withdrawal"
	TypeBet          Type = "bet"
	TypeWin          Type = "win"
	TypeBonus        Type = "bonus"
	TypeCashback     Type = "cashback"
	TypeRefund       Type = "refund"
	TypeAdjustment   Type = "adjustment"
	TypeCancellation Type = "cancellation"
)

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// Opposite flips the direction. Reversals are booked with it.
func (d Direction) Opposite() Direction {
	if d == Credit {
		return Debit
	}

	return Credit
}

// FixedDirection reports the direction implied by t. Adjustments and
// cancellations can go either way and return ok == false.
func (t Type) FixedDirection() (Direction, bool) {
	switch t {
	case TypeDeposit, TypeWin, TypeBonus, TypeCashback, TypeRefund:
		return Credit, true
	case TypeWithdrawal, TypeBet:
		return Debit, true
	default:
		return "", false
	}
}

func (t Type) Valid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeBet, TypeWin, TypeBonus,
		TypeCashback, TypeRefund, TypeAdjustment, TypeCancellation:
		return true
	}

	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Metadata is the JSONB payload stored with every transaction. The game and
// category are recorded here so cancellation can re-check them later.
type Metadata struct {
	GameID              string         `json:"game_id,omitempty"`
	Category            string         `json:"category,omitempty"`
	RoundID             string         `json:"round_id,omitempty"`
	SessionID           string         `json:"session_id,omitempty"`
	BetTransaction      int64          `json:"bet_transaction,omitempty"`
	OriginalTransaction int64          `json:"original_transaction,omitempty"`
	NettedWins          []int64        `json:"netted_wins,omitempty"`
	Transfer            string         `json:"transfer,omitempty"`
	Extra               map[string]any `json:"extra,omitempty"`
}

func (m Metadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return string(b), nil
}

func (m *Metadata) Scan(src any) error {
	var b []byte

	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("scan metadata: unsupported type %T", src)
	}

	return json.Unmarshal(b, m)
}

type Transaction struct {
	ID            int64
	UserID        uint64
	Type          Type
	Direction     Direction
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Currency      string
	// Category is empty for main-wallet entries.
	Category          string
	Provider          string
	ExternalReference string
	RelatedID         int64
	Status            Status
	Description       string
	Metadata          Metadata
	CreatedAt         time.Time
	CreatedBy         string
}

type Filter struct {
	UserID   uint64
	Type     Type
	Provider string
	BeforeID int64
	Limit    int
}

type Transactions interface {
	// Insert stores t and returns its id. A reused (provider, reference)
	// pair yields ErrDuplicateTransaction.
	Insert(ctx context.Context, tx *sql.Tx, t Transaction) (int64, time.Time, error)
	GetByReference(ctx context.Context, q pgutils.Querier, provider, reference string) (Transaction, error)
	GetByID(ctx context.Context, q pgutils.Querier, id int64) (Transaction, error)
	LockByID(ctx context.Context, tx *sql.Tx, id int64) (Transaction, error)
	// MarkCancelled flips a completed row to cancelled and returns
	// ErrAlreadyCancelled when it was not completed.
	MarkCancelled(ctx context.Context, tx *sql.Tx, id int64) error
	// CompletedWinsFor lists non-cancelled wins correlated to the bet row.
	CompletedWinsFor(ctx context.Context, q pgutils.Querier, betTxID int64) ([]Transaction, error)
	List(ctx context.Context, q pgutils.Querier, f Filter) ([]Transaction, error)
}
