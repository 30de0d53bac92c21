// Package idempotency decides whether a provider-referenced operation was
// already applied. The key is strictly (provider, external reference); the
// fingerprint only guards against a reused reference carrying other content.
package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

var ErrFingerprintConflict = errors.New("external reference reused with different content")

type Fingerprint struct {
	UserID uint64
	Type   transactions.Type
	Amount decimal.Decimal
}

func (f Fingerprint) matches(t transactions.Transaction) bool {
	return f.UserID == t.UserID && f.Type == t.Type && f.Amount.Equal(t.Amount)
}

type lookup interface {
	GetByReference(ctx context.Context, q pgutils.Querier, provider, reference string) (transactions.Transaction, error)
}

type Guard struct {
	txs lookup
}

func New(txs lookup) *Guard {
	return &Guard{txs: txs}
}

// Check returns the stored transaction and found == true for a retry of an
// applied operation. An empty reference is never deduplicated.
func (g *Guard) Check(ctx context.Context, q pgutils.Querier, provider, reference string, fp Fingerprint) (transactions.Transaction, bool, error) {
	if reference == "" {
		return transactions.Transaction{}, false, nil
	}

	stored, err := g.txs.GetByReference(ctx, q, provider, reference)
	if err != nil {
		if errors.Is(err, transactions.ErrTransactionNotFound) {
			return transactions.Transaction{}, false, nil
		}

		return transactions.Transaction{}, false, fmt.Errorf("lookup reference: %w", err)
	}

	if !fp.matches(stored) {
		return stored, true, fmt.Errorf("%w: %s/%s stored as %s %s for user %d",
			ErrFingerprintConflict, provider, reference, stored.Type, stored.Amount.StringFixed(2), stored.UserID)
	}

	return stored, true, nil
}
