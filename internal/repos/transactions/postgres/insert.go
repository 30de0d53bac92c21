package transactions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

func (r *transactionsRepo) Insert(ctx context.Context, tx *sql.Tx, t transactions.Transaction) (int64, time.Time, error) {
	var (
		id        int64
		createdAt time.Time
	)

	err := tx.QueryRowContext(ctx, `
		INSERT INTO transactions (
			user_id, type, direction, amount, balance_before, balance_after, currency,
			category, provider, external_reference, related_transaction_id,
			status, description, metadata, created_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`,
		t.UserID, t.Type, t.Direction, t.Amount, t.BalanceBefore, t.BalanceAfter, t.Currency,
		nullString(t.Category), t.Provider, nullString(t.ExternalReference), nullInt64(t.RelatedID),
		t.Status, t.Description, t.Metadata, t.CreatedBy,
	).Scan(&id, &createdAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return 0, time.Time{}, transactions.ErrDuplicateTransaction
		}

		return 0, time.Time{}, fmt.Errorf("insert transaction: %w", err)
	}

	return id, createdAt, nil
}
