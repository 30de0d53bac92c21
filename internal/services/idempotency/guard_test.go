package idempotency

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

type fakeLookup struct {
	rows  map[string]transactions.Transaction
	err   error
	calls int
}

func (f *fakeLookup) GetByReference(_ context.Context, _ pgutils.Querier, provider, reference string) (transactions.Transaction, error) {
	f.calls++
	if f.err != nil {
		return transactions.Transaction{}, f.err
	}

	t, ok := f.rows[provider+"/"+reference]
	if !ok {
		return transactions.Transaction{}, transactions.ErrTransactionNotFound
	}

	return t, nil
}

func TestGuard_Check(t *testing.T) {
	t.Parallel()

	stored := transactions.Transaction{
		ID:           7,
		UserID:       1,
		Type:         transactions.TypeBet,
		Amount:       decimal.RequireFromString("0.20"),
		BalanceAfter: decimal.RequireFromString("9.80"),
	}
	bet := Fingerprint{UserID: 1, Type: transactions.TypeBet, Amount: decimal.RequireFromString("0.2")}

	tests := []struct {
		name      string
		provider  string
		reference string
		fp        Fingerprint
		lookupErr error
		wantFound bool
		wantErr   error
		wantCalls int
	}{
		{name: "new_reference", provider: "innova", reference: "new", fp: bet, wantCalls: 1},
		{name: "empty_reference_skips_lookup", provider: "innova", fp: bet},
		{name: "exact_retry_replays", provider: "innova", reference: "r1", fp: bet, wantFound: true, wantCalls: 1},
		{name: "same_reference_other_provider", provider: "transfer", reference: "r1", fp: bet, wantCalls: 1},
		{
			name: "amount_differs", provider: "innova", reference: "r1",
			fp:        Fingerprint{UserID: 1, Type: transactions.TypeBet, Amount: decimal.RequireFromString("0.21")},
			wantFound: true, wantErr: ErrFingerprintConflict, wantCalls: 1,
		},
		{
			name: "type_differs", provider: "innova", reference: "r1",
			fp:        Fingerprint{UserID: 1, Type: transactions.TypeWin, Amount: decimal.RequireFromString("0.20")},
			wantFound: true, wantErr: ErrFingerprintConflict, wantCalls: 1,
		},
		{
			name: "user_differs", provider: "innova", reference: "r1",
			fp:        Fingerprint{UserID: 2, Type: transactions.TypeBet, Amount: decimal.RequireFromString("0.20")},
			wantFound: true, wantErr: ErrFingerprintConflict, wantCalls: 1,
		},
		{name: "storage_error", provider: "innova", reference: "r1", fp: bet, lookupErr: errors.New("conn reset"), wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lookup := &fakeLookup{rows: map[string]transactions.Transaction{"innova/r1": stored}, err: tt.lookupErr}
			g := New(lookup)

			got, found, err := g.Check(t.Context(), nil, tt.provider, tt.reference, tt.fp)

			assert.Equal(t, tt.wantCalls, lookup.calls)
			assert.Equal(t, tt.wantFound, found)

			switch {
			case tt.lookupErr != nil:
				require.ErrorIs(t, err, tt.lookupErr)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
			}

			if tt.wantFound && tt.wantErr == nil {
				assert.Equal(t, stored.ID, got.ID)
				assert.True(t, stored.BalanceAfter.Equal(got.BalanceAfter))
			}
		})
	}
}
