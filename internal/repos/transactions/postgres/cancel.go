package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

func (r *transactionsRepo) MarkCancelled(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status = 'completed'
	`, id)
	if err != nil {
		return fmt.Errorf("mark transaction cancelled: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return transactions.ErrAlreadyCancelled
	}

	return nil
}
