package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
)

// adminProvider namespaces references of entries booked without a provider.
const adminProvider = "admin"

// Apply books a non-game entry. Game types and reversals have their own
// paths and are refused here.
func (l *Ledger) Apply(ctx context.Context, req EntryRequest) (Result, error) {
	res, err := l.apply(ctx, req)

	return res, l.observe(ctx, "apply", err,
		"user_id", req.UserID, "type", string(req.Type), "scope", CategoryScope(req.Category).String(), "reference", req.Reference)
}

func (l *Ledger) apply(ctx context.Context, req EntryRequest) (Result, error) {
	if !req.Type.Valid() {
		return Result{}, fmt.Errorf("%w: type %q", ErrInvalidRequest, req.Type)
	}

	switch req.Type {
	case transactions.TypeBet, transactions.TypeWin, transactions.TypeCancellation:
		return Result{}, fmt.Errorf("%w: %s entries are booked by their own operation", ErrInvalidRequest, req.Type)
	}

	if !validAmount(req.Amount) {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}

	if req.UserID == 0 {
		return Result{}, fmt.Errorf("%w: user is required", ErrInvalidRequest)
	}

	dir, fixed := req.Type.FixedDirection()
	if !fixed {
		if req.Direction != transactions.Credit && req.Direction != transactions.Debit {
			return Result{}, fmt.Errorf("%w: %s needs a direction", ErrInvalidRequest, req.Type)
		}

		dir = req.Direction
	} else if req.Direction != "" && req.Direction != dir {
		return Result{}, fmt.Errorf("%w: %s is always a %s", ErrInvalidRequest, req.Type, dir)
	}

	provider := req.Provider
	if provider == "" {
		provider = adminProvider
	}

	scope := CategoryScope(req.Category)
	fp := idempotency.Fingerprint{UserID: req.UserID, Type: req.Type, Amount: req.Amount}

	return l.once(ctx, provider, req.Reference, fp, func() (Result, error) {
		var booked transactions.Transaction

		err := l.inScopes(ctx, req.UserID, []Scope{scope}, func(tx *sql.Tx) error {
			var err error

			booked, err = l.mutate(ctx, tx, entry{
				userID:      req.UserID,
				scope:       scope,
				typ:         req.Type,
				dir:         dir,
				amount:      req.Amount,
				provider:    provider,
				reference:   req.Reference,
				description: req.Description,
				createdBy:   req.By,
				meta:        transactions.Metadata{Extra: req.Extra},
			})

			return err
		})
		if err != nil {
			return Result{}, err
		}

		return resultOf(booked, false), nil
	})
}
