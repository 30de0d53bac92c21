package transactions

import (
	"database/sql"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const selectColumns = `
	id, user_id, type, direction, amount, balance_before, balance_after, currency,
	COALESCE(category, ''), provider, COALESCE(external_reference, ''),
	COALESCE(related_transaction_id, 0), status, description, metadata, created_at, created_by
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (transactions.Transaction, error) {
	var t transactions.Transaction

	err := s.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Direction, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Currency,
		&t.Category, &t.Provider, &t.ExternalReference,
		&t.RelatedID, &t.Status, &t.Description, &t.Metadata, &t.CreatedAt, &t.CreatedBy,
	)

	return t, err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
