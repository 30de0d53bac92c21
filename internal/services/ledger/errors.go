package ledger

import (
	"context"
	"errors"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/games"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
)

var (
	ErrInvalidAmount  = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidRequest = errors.New("invalid request")

	ErrBusy                 = errors.New("scope is busy, retry later")
	ErrGameDisabled         = errors.New("game or category disabled")
	ErrAmbiguousCorrelation = errors.New("win matches more than one open bet")
	ErrCorrelationMismatch  = errors.New("win does not belong to the correlated bet")
	ErrWinExceedsBet        = errors.New("correlated wins exceed the bet, cannot reverse")
	ErrRoundFinished        = errors.New("round already finished")
	ErrNotCancellable       = errors.New("transaction type cannot be cancelled")
)

// Class groups errors by what the caller can do about them.
type Class int

const (
	ClassNone Class = iota
	// ClassValidation is rejected before storage is touched.
	ClassValidation
	ClassAuthorization
	// ClassBusiness is a rule violation found after lookup; nothing was written.
	ClassBusiness
	// ClassContention is transient and safe to retry.
	ClassContention
	ClassInternal
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassValidation:
		return "validation"
	case ClassAuthorization:
		return "authorization"
	case ClassBusiness:
		return "business"
	case ClassContention:
		return "contention"
	default:
		return "internal"
	}
}

var businessErrors = []error{
	wallets.ErrInsufficientFunds,
	wallets.ErrWalletNotFound,
	wallets.ErrWalletExists,
	wallets.ErrUnknownCategory,
	transactions.ErrTransactionNotFound,
	transactions.ErrAlreadyCancelled,
	bets.ErrBetNotFound,
	games.ErrGameNotFound,
	games.ErrCategoryNotFound,
	idempotency.ErrFingerprintConflict,
	ErrGameDisabled,
	ErrAmbiguousCorrelation,
	ErrCorrelationMismatch,
	ErrWinExceedsBet,
	ErrRoundFinished,
	ErrNotCancellable,
}

func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}

	if errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidRequest) {
		return ClassValidation
	}

	if errors.Is(err, ErrBusy) {
		return ClassContention
	}

	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return ClassBusiness
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassContention
	}

	return ClassInternal
}
