package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

func (r *transactionsRepo) GetByReference(ctx context.Context, q pgutils.Querier, provider, reference string) (transactions.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE provider = $1 AND external_reference = $2
	`, provider, reference)

	return oneOrNotFound(row, "get transaction by reference")
}

func (r *transactionsRepo) GetByID(ctx context.Context, q pgutils.Querier, id int64) (transactions.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE id = $1
	`, id)

	return oneOrNotFound(row, "get transaction")
}

func (r *transactionsRepo) LockByID(ctx context.Context, tx *sql.Tx, id int64) (transactions.Transaction, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE id = $1
		FOR NO KEY UPDATE
	`, id)

	return oneOrNotFound(row, "lock transaction")
}

func oneOrNotFound(row *sql.Row, op string) (transactions.Transaction, error) {
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return transactions.Transaction{}, transactions.ErrTransactionNotFound
		}

		return transactions.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}
