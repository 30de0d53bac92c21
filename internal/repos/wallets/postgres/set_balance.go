package wallets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
)

func (r *walletsRepo) SetMain(ctx context.Context, tx *sql.Tx, userID uint64, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET main_balance = $2, updated_at = now()
		WHERE user_id = $1
	`, userID, balance)
	if err != nil {
		if pgutils.IsCheckViolation(err) {
			return wallets.ErrInsufficientFunds
		}

		return fmt.Errorf("set main balance: %w", err)
	}

	return expectOneRow(res, wallets.ErrWalletNotFound)
}

func (r *walletsRepo) SetCategory(ctx context.Context, tx *sql.Tx, userID uint64, category string, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE category_balances
		SET balance = $3, updated_at = now()
		WHERE user_id = $1 AND category = $2
	`, userID, category, balance)
	if err != nil {
		if pgutils.IsCheckViolation(err) {
			return wallets.ErrInsufficientFunds
		}

		return fmt.Errorf("set category balance: %w", err)
	}

	return expectOneRow(res, wallets.ErrWalletNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
