package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
)

func (r GameRequest) validate(needGame bool) error {
	if !validAmount(r.Amount) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, r.Amount)
	}

	if r.Provider == "" || r.Reference == "" || r.UserID == 0 || r.RoundID == "" {
		return fmt.Errorf("%w: provider, reference, user and round are required", ErrInvalidRequest)
	}

	if needGame && r.GameID == "" {
		return fmt.Errorf("%w: game is required", ErrInvalidRequest)
	}

	return nil
}

func (r GameRequest) roundKey() bets.RoundKey {
	return bets.RoundKey{
		Provider:  r.Provider,
		UserID:    r.UserID,
		RoundID:   r.RoundID,
		SessionID: r.SessionID,
	}
}

// Bet debits the game's scope and opens a bet record for the round.
func (l *Ledger) Bet(ctx context.Context, req GameRequest) (Result, error) {
	err := req.validate(true)
	if err != nil {
		return Result{}, err
	}

	fp := idempotency.Fingerprint{UserID: req.UserID, Type: transactions.TypeBet, Amount: req.Amount}

	res, err := l.once(ctx, req.Provider, req.Reference, fp, func() (Result, error) {
		return l.placeBet(ctx, req)
	})

	return res, l.observe(ctx, "bet", err, "user_id", req.UserID, "reference", req.Reference, "round_id", req.RoundID)
}

func (l *Ledger) placeBet(ctx context.Context, req GameRequest) (Result, error) {
	game, err := l.playableGame(ctx, l.db, req.GameID)
	if err != nil {
		return Result{}, err
	}

	scope := l.scopeForGame(game)

	var placed transactions.Transaction

	err = l.inScopes(ctx, req.UserID, []Scope{scope}, func(tx *sql.Tx) error {
		finished, err := l.bets.IsRoundFinished(ctx, tx, req.Provider, req.UserID, req.RoundID)
		if err != nil {
			return err
		}
		if finished {
			return fmt.Errorf("%w: %s", ErrRoundFinished, req.RoundID)
		}

		placed, err = l.mutate(ctx, tx, entry{
			userID:    req.UserID,
			scope:     scope,
			typ:       transactions.TypeBet,
			dir:       transactions.Debit,
			amount:    req.Amount,
			provider:  req.Provider,
			reference: req.Reference,
			createdBy: req.Provider,
			meta: transactions.Metadata{
				GameID:    game.ID,
				RoundID:   req.RoundID,
				SessionID: req.SessionID,
			},
		})
		if err != nil {
			return err
		}

		_, err = l.bets.Insert(ctx, tx, bets.Bet{
			UserID:        req.UserID,
			GameID:        game.ID,
			Category:      scope.Category,
			Provider:      req.Provider,
			TransactionID: placed.ID,
			BetAmount:     req.Amount,
			RoundID:       req.RoundID,
			SessionID:     req.SessionID,
		})

		return err
	})
	if err != nil {
		return Result{}, err
	}

	return resultOf(placed, false), nil
}

// Win credits the scope of the bet it correlates to. The bet is resolved from
// the round/session key, never from arrival order: it must be the only open
// bet matching the key, both before and after the scope lock is taken.
func (l *Ledger) Win(ctx context.Context, req GameRequest) (Result, error) {
	err := req.validate(false)
	if err != nil {
		return Result{}, err
	}

	fp := idempotency.Fingerprint{UserID: req.UserID, Type: transactions.TypeWin, Amount: req.Amount}

	res, err := l.once(ctx, req.Provider, req.Reference, fp, func() (Result, error) {
		return l.settleWin(ctx, req)
	})

	return res, l.observe(ctx, "win", err, "user_id", req.UserID, "reference", req.Reference, "round_id", req.RoundID)
}

func (l *Ledger) settleWin(ctx context.Context, req GameRequest) (Result, error) {
	bet, err := l.correlate(ctx, l.db, req)
	if err != nil {
		return Result{}, err
	}

	if req.GameID != "" && req.GameID != bet.GameID {
		return Result{}, fmt.Errorf("%w: win for game %q, bet %d is on %q",
			ErrCorrelationMismatch, req.GameID, bet.ID, bet.GameID)
	}

	_, err = l.playableGame(ctx, l.db, bet.GameID)
	if err != nil {
		return Result{}, err
	}

	scope := CategoryScope(bet.Category)

	var credited transactions.Transaction

	err = l.inScopes(ctx, req.UserID, []Scope{scope}, func(tx *sql.Tx) error {
		locked, err := l.correlate(ctx, tx, req)
		if err != nil {
			return err
		}
		if locked.ID != bet.ID {
			return fmt.Errorf("%w: round %s moved from bet %d to %d under lock",
				ErrAmbiguousCorrelation, req.RoundID, bet.ID, locked.ID)
		}

		credited, err = l.mutate(ctx, tx, entry{
			userID:    req.UserID,
			scope:     scope,
			typ:       transactions.TypeWin,
			dir:       transactions.Credit,
			amount:    req.Amount,
			provider:  req.Provider,
			reference: req.Reference,
			related:   locked.TransactionID,
			createdBy: req.Provider,
			meta: transactions.Metadata{
				GameID:         locked.GameID,
				RoundID:        req.RoundID,
				SessionID:      req.SessionID,
				BetTransaction: locked.TransactionID,
			},
		})
		if err != nil {
			return err
		}

		return l.bets.AddWin(ctx, tx, locked.ID, req.Amount)
	})
	if err != nil {
		return Result{}, err
	}

	return resultOf(credited, false), nil
}

// correlate returns the single open bet for the request's round key. With a
// *sql.Tx the bet rows are locked.
func (l *Ledger) correlate(ctx context.Context, q pgutils.Querier, req GameRequest) (bets.Bet, error) {
	finished, err := l.bets.IsRoundFinished(ctx, q, req.Provider, req.UserID, req.RoundID)
	if err != nil {
		return bets.Bet{}, err
	}
	if finished {
		return bets.Bet{}, fmt.Errorf("%w: %s", ErrRoundFinished, req.RoundID)
	}

	open, err := l.bets.OpenForRound(ctx, q, req.roundKey())
	if err != nil {
		return bets.Bet{}, err
	}

	switch len(open) {
	case 0:
		return bets.Bet{}, fmt.Errorf("%w: round %s session %q", bets.ErrBetNotFound, req.RoundID, req.SessionID)
	case 1:
		return open[0], nil
	default:
		return bets.Bet{}, fmt.Errorf("%w: round %s session %q has %d open bets",
			ErrAmbiguousCorrelation, req.RoundID, req.SessionID, len(open))
	}
}
