package bets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
)

func (r *betsRepo) AddWin(ctx context.Context, tx *sql.Tx, betID int64, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE bets
		SET win_amount = win_amount + $2, outcome = 'win', result_at = now()
		WHERE id = $1
	`, betID, amount)
	if err != nil {
		return fmt.Errorf("add win: %w", err)
	}

	return expectOneRow(res)
}

func (r *betsRepo) ReverseWin(ctx context.Context, tx *sql.Tx, betID int64, amount decimal.Decimal, fallback bets.Outcome) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE bets
		SET win_amount = win_amount - $2,
		    outcome = CASE WHEN win_amount - $2 = 0 THEN $3 ELSE outcome END,
		    result_at = now()
		WHERE id = $1
	`, betID, amount, fallback)
	if err != nil {
		return fmt.Errorf("reverse win: %w", err)
	}

	return expectOneRow(res)
}

func (r *betsRepo) MarkCancelled(ctx context.Context, tx *sql.Tx, betID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE bets
		SET outcome = 'cancelled', win_amount = 0, result_at = now()
		WHERE id = $1
	`, betID)
	if err != nil {
		return fmt.Errorf("cancel bet: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return bets.ErrBetNotFound
	}

	return nil
}
