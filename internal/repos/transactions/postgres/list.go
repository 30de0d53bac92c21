package transactions

import (
	"context"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (r *transactionsRepo) CompletedWinsFor(ctx context.Context, q pgutils.Querier, betTxID int64) ([]transactions.Transaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE related_transaction_id = $1 AND type = 'win' AND status = 'completed'
		ORDER BY id
	`, betTxID)
	if err != nil {
		return nil, fmt.Errorf("query correlated wins: %w", err)
	}

	return collect(rows)
}

// List pages backwards by id. Zero-valued filter fields are ignored.
func (r *transactionsRepo) List(ctx context.Context, q pgutils.Querier, f transactions.Filter) ([]transactions.Transaction, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM transactions
		WHERE ($1::bigint = 0 OR user_id = $1)
		  AND ($2::text = '' OR type = $2)
		  AND ($3::text = '' OR provider = $3)
		  AND ($4::bigint = 0 OR id < $4)
		ORDER BY id DESC
		LIMIT $5
	`, int64(f.UserID), string(f.Type), f.Provider, f.BeforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return collect(rows)
}

type scannableRows interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}

func collect(rows scannableRows) ([]transactions.Transaction, error) {
	//nolint:errcheck
	defer rows.Close()

	var out []transactions.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		out = append(out, t)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return out, nil
}
