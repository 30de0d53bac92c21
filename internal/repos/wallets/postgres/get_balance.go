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

func (r *walletsRepo) Get(ctx context.Context, q pgutils.Querier, userID uint64) (wallets.Wallet, error) {
	w := wallets.Wallet{UserID: userID}

	err := q.QueryRowContext(ctx, `
		SELECT main_balance, currency, created_at
		FROM wallets
		WHERE user_id = $1
	`, userID).Scan(&w.MainBalance, &w.Currency, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wallets.Wallet{}, wallets.ErrWalletNotFound
		}

		return wallets.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}

	return w, nil
}

// CategoryBalance returns 0 for a category the user never touched.
func (r *walletsRepo) CategoryBalance(ctx context.Context, q pgutils.Querier, userID uint64, category string) (decimal.Decimal, error) {
	var balance decimal.Decimal

	err := q.QueryRowContext(ctx, `
		SELECT balance
		FROM category_balances
		WHERE user_id = $1 AND category = $2
	`, userID, category).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}

		return decimal.Zero, fmt.Errorf("get category balance: %w", err)
	}

	return balance, nil
}

func (r *walletsRepo) ListCategories(ctx context.Context, q pgutils.Querier, userID uint64) ([]wallets.CategoryBalance, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT category, balance
		FROM category_balances
		WHERE user_id = $1
		ORDER BY category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list category balances: %w", err)
	}
	defer rows.Close()

	var out []wallets.CategoryBalance
	for rows.Next() {
		cb := wallets.CategoryBalance{UserID: userID}

		err = rows.Scan(&cb.Category, &cb.Balance)
		if err != nil {
			return nil, fmt.Errorf("scan category balance: %w", err)
		}

		out = append(out, cb)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate category balances: %w", err)
	}

	return out, nil
}
