package api

import (
	"errors"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/games"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
	"github.com/user01samiul/jx-backend-sub008/internal/services/session"
)

var (
	errMalformed      = errors.New("malformed request")
	errUnauthorized   = errors.New("invalid authorization")
	errUnknownCommand = errors.New("unknown command")
)

const (
	codeMalformed         = "OP_21"
	codeUnknownCommand    = "OP_22"
	codeInsufficientFunds = "OP_31"
	codeSession           = "OP_32"
	codeNotFound          = "OP_33"
	codeAlreadyCancelled  = "OP_34"
	codeGameDisabled      = "OP_35"
	codeConflict          = "OP_36"
	codeCorrelation       = "OP_37"
	codeRoundFinished     = "OP_38"
	codeWinExceedsBet     = "OP_39"
	codeBusy              = "OP_41"
	codeInternal          = "OP_99"
)

var errorCodes = []struct {
	targets []error
	code    string
	message string
}{
	{[]error{errMalformed, ledger.ErrInvalidAmount, ledger.ErrInvalidRequest}, codeMalformed, "Malformed request"},
	{[]error{errUnknownCommand}, codeUnknownCommand, "Unknown command"},
	{[]error{errUnauthorized}, codeInternal, "Invalid authorization"},
	{[]error{session.ErrInvalid, session.ErrExpired, session.ErrGameMismatch}, codeSession, "Session invalid or expired"},
	{[]error{wallets.ErrInsufficientFunds}, codeInsufficientFunds, "Insufficient funds"},
	{[]error{transactions.ErrTransactionNotFound}, codeNotFound, "Transaction not found"},
	{[]error{transactions.ErrAlreadyCancelled}, codeAlreadyCancelled, "Transaction already cancelled"},
	{[]error{ledger.ErrGameDisabled, games.ErrGameNotFound}, codeGameDisabled, "Game is disabled"},
	{[]error{idempotency.ErrFingerprintConflict}, codeConflict, "Transaction id reused with different data"},
	{[]error{bets.ErrBetNotFound, ledger.ErrAmbiguousCorrelation, ledger.ErrCorrelationMismatch}, codeCorrelation, "Bet for this round not found"},
	{[]error{ledger.ErrRoundFinished}, codeRoundFinished, "Round already finished"},
	{[]error{ledger.ErrWinExceedsBet}, codeWinExceedsBet, "Bet cannot be cancelled after a larger win"},
	{[]error{ledger.ErrBusy}, codeBusy, "Wallet busy, retry"},
}

// errorCode maps err onto the provider's error code and a safe message.
func errorCode(err error) (string, string) {
	for _, ec := range errorCodes {
		for _, target := range ec.targets {
			if errors.Is(err, target) {
				return ec.code, ec.message
			}
		}
	}

	return codeInternal, "Internal error"
}
