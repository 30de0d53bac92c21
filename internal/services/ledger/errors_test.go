package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{fmt.Errorf("bet: %w", ErrInvalidAmount), ClassValidation},
		{ErrInvalidRequest, ClassValidation},
		{fmt.Errorf("lock: %w", ErrBusy), ClassContention},
		{fmt.Errorf("lock main: %w", wallets.ErrInsufficientFunds), ClassBusiness},
		{transactions.ErrAlreadyCancelled, ClassBusiness},
		{transactions.ErrTransactionNotFound, ClassBusiness},
		{bets.ErrBetNotFound, ClassBusiness},
		{ErrGameDisabled, ClassBusiness},
		{ErrAmbiguousCorrelation, ClassBusiness},
		{ErrWinExceedsBet, ClassBusiness},
		{idempotency.ErrFingerprintConflict, ClassBusiness},
		{context.DeadlineExceeded, ClassContention},
		{errors.New("connection reset"), ClassInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestScope(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "wallet:42:main", MainScope().Key(42))
	assert.Equal(t, "wallet:42:cat:slots", CategoryScope("slots").Key(42))
	assert.Equal(t, MainScope(), CategoryScope(""))
	assert.True(t, CategoryScope("").IsMain())
}

func TestValidAmount(t *testing.T) {
	t.Parallel()

	assert.True(t, validAmount(dec("0.01")))
	assert.True(t, validAmount(dec("10.100")))
	assert.False(t, validAmount(dec("0")))
	assert.False(t, validAmount(dec("-1")))
	assert.False(t, validAmount(dec("0.001")))
}
