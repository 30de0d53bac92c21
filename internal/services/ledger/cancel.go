package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
)

// CancelByReference reverses the transaction a provider referenced. The game
// and scope are taken from the stored row, so a retry may omit them.
func (l *Ledger) CancelByReference(ctx context.Context, req CancelRequest) (Result, error) {
	if req.Provider == "" || req.Reference == "" {
		return Result{}, fmt.Errorf("%w: provider and reference are required", ErrInvalidRequest)
	}

	res, err := l.cancelByReference(ctx, req)

	return res, l.observe(ctx, "cancel", err, "user_id", req.UserID, "reference", req.Reference)
}

func (l *Ledger) cancelByReference(ctx context.Context, req CancelRequest) (Result, error) {
	original, err := l.txns.GetByReference(ctx, l.db, req.Provider, req.Reference)
	if err != nil {
		return Result{}, err
	}

	if req.UserID != 0 && original.UserID != req.UserID {
		return Result{}, fmt.Errorf("%w: %s/%s", transactions.ErrTransactionNotFound, req.Provider, req.Reference)
	}

	by := req.By
	if by == "" {
		by = req.Provider
	}

	return l.cancel(ctx, original, by)
}

// CancelByID is the back office entry point; it shares the provider path.
func (l *Ledger) CancelByID(ctx context.Context, id int64, by string) (Result, error) {
	res, err := l.cancelByID(ctx, id, by)

	return res, l.observe(ctx, "cancel_by_id", err, "transaction_id", id)
}

func (l *Ledger) cancelByID(ctx context.Context, id int64, by string) (Result, error) {
	original, err := l.txns.GetByID(ctx, l.db, id)
	if err != nil {
		return Result{}, err
	}

	return l.cancel(ctx, original, by)
}

func (l *Ledger) cancel(ctx context.Context, original transactions.Transaction, by string) (Result, error) {
	if original.Type == transactions.TypeCancellation {
		return Result{}, fmt.Errorf("%w: %d is itself a reversal", ErrNotCancellable, original.ID)
	}

	// A transfer leg reversed alone would create or destroy funds in the
	// other scope; transfers are undone with a transfer the other way.
	if original.Metadata.Transfer != "" {
		return Result{}, fmt.Errorf("%w: %d is a %s transfer leg", ErrNotCancellable, original.ID, original.Metadata.Transfer)
	}

	if original.Metadata.GameID != "" {
		_, err := l.playableGame(ctx, l.db, original.Metadata.GameID)
		if err != nil {
			return Result{}, err
		}
	}

	if original.Status == transactions.StatusCancelled {
		return Result{}, fmt.Errorf("%w: %d", transactions.ErrAlreadyCancelled, original.ID)
	}

	scope := CategoryScope(original.Category)

	var reversal transactions.Transaction

	err := l.inScopes(ctx, original.UserID, []Scope{scope}, func(tx *sql.Tx) error {
		locked, err := l.txns.LockByID(ctx, tx, original.ID)
		if err != nil {
			return err
		}
		if locked.Status != transactions.StatusCompleted {
			return fmt.Errorf("%w: %d is %s", transactions.ErrAlreadyCancelled, locked.ID, locked.Status)
		}

		switch locked.Type {
		case transactions.TypeBet:
			reversal, err = l.reverseBet(ctx, tx, locked, by)
		case transactions.TypeWin:
			reversal, err = l.reverseWin(ctx, tx, locked, by)
		default:
			reversal, err = l.reverseEntry(ctx, tx, locked, by)
		}

		return err
	})
	if err != nil {
		return Result{}, err
	}

	return resultOf(reversal, false), nil
}

func reversalOf(original transactions.Transaction, dir transactions.Direction, amount decimal.Decimal, by string) entry {
	return entry{
		userID:      original.UserID,
		scope:       CategoryScope(original.Category),
		typ:         transactions.TypeCancellation,
		dir:         dir,
		amount:      amount,
		provider:    original.Provider,
		related:     original.ID,
		description: fmt.Sprintf("reversal of %s %d", original.Type, original.ID),
		createdBy:   by,
		meta: transactions.Metadata{
			GameID:              original.Metadata.GameID,
			RoundID:             original.Metadata.RoundID,
			SessionID:           original.Metadata.SessionID,
			OriginalTransaction: original.ID,
		},
	}
}

// reverseBet refunds the bet net of the wins already paid against it. Those
// wins are cancelled together with the bet so they cannot be reversed again.
func (l *Ledger) reverseBet(ctx context.Context, tx *sql.Tx, original transactions.Transaction, by string) (transactions.Transaction, error) {
	bet, err := l.bets.LockByTransaction(ctx, tx, original.ID)
	if err != nil {
		return transactions.Transaction{}, err
	}

	wins, err := l.txns.CompletedWinsFor(ctx, tx, original.ID)
	if err != nil {
		return transactions.Transaction{}, err
	}

	paid := decimal.Zero
	netted := make([]int64, 0, len(wins))
	for _, w := range wins {
		paid = paid.Add(w.Amount)
		netted = append(netted, w.ID)
	}

	refund := original.Amount.Sub(paid)
	if refund.IsNegative() {
		return transactions.Transaction{}, fmt.Errorf("%w: bet %s, wins %s",
			ErrWinExceedsBet, original.Amount.StringFixed(2), paid.StringFixed(2))
	}

	for _, id := range netted {
		err = l.txns.MarkCancelled(ctx, tx, id)
		if err != nil {
			return transactions.Transaction{}, fmt.Errorf("cancel netted win %d: %w", id, err)
		}
	}

	err = l.txns.MarkCancelled(ctx, tx, original.ID)
	if err != nil {
		return transactions.Transaction{}, err
	}

	e := reversalOf(original, transactions.Credit, refund, by)
	if len(netted) > 0 {
		e.meta.NettedWins = netted
	}

	reversal, err := l.mutate(ctx, tx, e)
	if err != nil {
		return transactions.Transaction{}, err
	}

	err = l.bets.MarkCancelled(ctx, tx, bet.ID)
	if err != nil {
		return transactions.Transaction{}, err
	}

	return reversal, nil
}

// reverseWin takes the win back out. Insufficient funds fails the cancel
// rather than flooring the balance.
func (l *Ledger) reverseWin(ctx context.Context, tx *sql.Tx, original transactions.Transaction, by string) (transactions.Transaction, error) {
	bet, err := l.bets.LockByTransaction(ctx, tx, original.RelatedID)
	if err != nil && !errors.Is(err, bets.ErrBetNotFound) {
		return transactions.Transaction{}, err
	}
	hasBet := err == nil

	err = l.txns.MarkCancelled(ctx, tx, original.ID)
	if err != nil {
		return transactions.Transaction{}, err
	}

	e := reversalOf(original, transactions.Debit, original.Amount, by)
	e.meta.BetTransaction = original.RelatedID

	reversal, err := l.mutate(ctx, tx, e)
	if err != nil {
		return transactions.Transaction{}, err
	}

	if !hasBet {
		return reversal, nil
	}

	fallback := bets.OutcomePending
	finished, err := l.bets.IsRoundFinished(ctx, tx, bet.Provider, bet.UserID, bet.RoundID)
	if err != nil {
		return transactions.Transaction{}, err
	}
	if finished {
		fallback = bets.OutcomeLose
	}

	err = l.bets.ReverseWin(ctx, tx, bet.ID, original.Amount, fallback)
	if err != nil {
		return transactions.Transaction{}, err
	}

	return reversal, nil
}

func (l *Ledger) reverseEntry(ctx context.Context, tx *sql.Tx, original transactions.Transaction, by string) (transactions.Transaction, error) {
	err := l.txns.MarkCancelled(ctx, tx, original.ID)
	if err != nil {
		return transactions.Transaction{}, err
	}

	return l.mutate(ctx, tx, reversalOf(original, original.Direction.Opposite(), original.Amount, by))
}
