package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
)

// LockMain takes FOR NO KEY UPDATE: history rows and category rows reference
// the wallet by key, and their FK checks must not queue behind the main balance.
func (r *walletsRepo) LockMain(ctx context.Context, tx *sql.Tx, userID uint64) (wallets.Wallet, error) {
	w := wallets.Wallet{UserID: userID}

	err := tx.QueryRowContext(ctx, `
		SELECT main_balance, currency, created_at
		FROM wallets
		WHERE user_id = $1
		FOR NO KEY UPDATE
	`, userID).Scan(&w.MainBalance, &w.Currency, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wallets.Wallet{}, wallets.ErrWalletNotFound
		}

		return wallets.Wallet{}, fmt.Errorf("lock/get main balance: %w", err)
	}

	return w, nil
}

// LockCategory does not lock the wallets row: category mutations of one user
// must not queue behind main-wallet mutations.
func (r *walletsRepo) LockCategory(ctx context.Context, tx *sql.Tx, userID uint64, category string) (decimal.Decimal, string, error) {
	var currency string

	err := tx.QueryRowContext(ctx, `
		SELECT currency FROM wallets WHERE user_id = $1
	`, userID).Scan(&currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, "", wallets.ErrWalletNotFound
		}

		return decimal.Zero, "", fmt.Errorf("get wallet currency: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO category_balances (user_id, category, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, category) DO NOTHING
	`, userID, category)
	if err != nil {
		if pgutils.IsForeignKeyViolation(err) {
			return decimal.Zero, "", fmt.Errorf("%w: %s", wallets.ErrUnknownCategory, category)
		}

		return decimal.Zero, "", fmt.Errorf("ensure category balance: %w", err)
	}

	var balance decimal.Decimal

	err = tx.QueryRowContext(ctx, `
		SELECT balance
		FROM category_balances
		WHERE user_id = $1 AND category = $2
		FOR UPDATE
	`, userID, category).Scan(&balance)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("lock/get category balance: %w", err)
	}

	return balance, currency, nil
}
