package wallets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrWalletExists      = errors.New("wallet already exists")
	ErrUnknownCategory   = errors.New("unknown category")
)

type Wallet struct {
	UserID      uint64
	MainBalance decimal.Decimal
	Currency    string
	CreatedAt   time.Time
}

type CategoryBalance struct {
	UserID   uint64
	Category string
	Balance  decimal.Decimal
}

// Wallets owns the wallets and category_balances tables. Lock* and Set*
// must run inside the caller's transaction; Set* assumes the row was locked
// by the matching Lock* call in the same transaction.
type Wallets interface {
	Create(ctx context.Context, w Wallet) error
	Get(ctx context.Context, q pgutils.Querier, userID uint64) (Wallet, error)
	CategoryBalance(ctx context.Context, q pgutils.Querier, userID uint64, category string) (decimal.Decimal, error)
	ListCategories(ctx context.Context, q pgutils.Querier, userID uint64) ([]CategoryBalance, error)

	LockMain(ctx context.Context, tx *sql.Tx, userID uint64) (Wallet, error)
	// LockCategory creates the (user, category) row with balance 0 on first
	// use and returns its balance together with the wallet currency.
	LockCategory(ctx context.Context, tx *sql.Tx, userID uint64, category string) (decimal.Decimal, string, error)
	SetMain(ctx context.Context, tx *sql.Tx, userID uint64, balance decimal.Decimal) error
	SetCategory(ctx context.Context, tx *sql.Tx, userID uint64, category string, balance decimal.Decimal) error
}
