package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
)

type entry struct {
	userID      uint64
	scope       Scope
	typ         transactions.Type
	dir         transactions.Direction
	amount      decimal.Decimal
	provider    string
	reference   string
	related     int64
	description string
	createdBy   string
	meta        transactions.Metadata
}

// mutate is the single balance write path. It must run inside a unit that
// already holds the scope's advisory lock; the row lock taken here keeps
// writers outside the ledger out as well.
func (l *Ledger) mutate(ctx context.Context, tx *sql.Tx, e entry) (transactions.Transaction, error) {
	var (
		before   decimal.Decimal
		currency string
	)

	if e.scope.IsMain() {
		w, err := l.wallets.LockMain(ctx, tx, e.userID)
		if err != nil {
			return transactions.Transaction{}, fmt.Errorf("lock main balance: %w", err)
		}

		before, currency = w.MainBalance, w.Currency
	} else {
		bal, cur, err := l.wallets.LockCategory(ctx, tx, e.userID, e.scope.Category)
		if err != nil {
			return transactions.Transaction{}, fmt.Errorf("lock %s balance: %w", e.scope, err)
		}

		before, currency = bal, cur
	}

	after := before.Add(e.amount)
	if e.dir == transactions.Debit {
		after = before.Sub(e.amount)
	}

	if after.IsNegative() {
		return transactions.Transaction{}, fmt.Errorf("%w: %s balance %s, %s %s",
			wallets.ErrInsufficientFunds, e.scope, before.StringFixed(2), e.typ, e.amount.StringFixed(2))
	}

	var err error
	if e.scope.IsMain() {
		err = l.wallets.SetMain(ctx, tx, e.userID, after)
	} else {
		err = l.wallets.SetCategory(ctx, tx, e.userID, e.scope.Category, after)
	}
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("write %s balance: %w", e.scope, err)
	}

	e.meta.Category = e.scope.Category

	t := transactions.Transaction{
		UserID:            e.userID,
		Type:              e.typ,
		Direction:         e.dir,
		Amount:            e.amount,
		BalanceBefore:     before,
		BalanceAfter:      after,
		Currency:          currency,
		Category:          e.scope.Category,
		Provider:          e.provider,
		ExternalReference: e.reference,
		RelatedID:         e.related,
		Status:            transactions.StatusCompleted,
		Description:       e.description,
		Metadata:          e.meta,
		CreatedBy:         e.createdBy,
	}

	t.ID, t.CreatedAt, err = l.txns.Insert(ctx, tx, t)
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("append history: %w", err)
	}

	return t, nil
}
