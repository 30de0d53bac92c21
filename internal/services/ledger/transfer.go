package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/idempotency"
)

// transferProvider namespaces transfer references in the idempotency index.
const transferProvider = "transfer"

// Transfer moves funds between the main wallet and one category in a single
// unit holding both scope locks. The returned snapshot is read inside that
// unit with the same query Balance uses.
//
// A replayed reference returns the balance as it is now, not the snapshot of
// the original call; the stored legs are only checked for direction and amount.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (Snapshot, error) {
	snap, err := l.transfer(ctx, req, false)

	return snap, l.observe(ctx, "transfer", err,
		"user_id", req.UserID, "scope", CategoryScope(req.Category).String(), "reference", req.Reference)
}

func (l *Ledger) transfer(ctx context.Context, req TransferRequest, all bool) (Snapshot, error) {
	if req.UserID == 0 || req.Category == "" {
		return Snapshot{}, fmt.Errorf("%w: user and category are required", ErrInvalidRequest)
	}
	if req.Direction != MainToCategory && req.Direction != CategoryToMain {
		return Snapshot{}, fmt.Errorf("%w: direction %q", ErrInvalidRequest, req.Direction)
	}
	if !all && !validAmount(req.Amount) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrInvalidAmount, req.Amount)
	}

	cat, err := l.games.Category(ctx, l.db, req.Category)
	if err != nil {
		return Snapshot{}, err
	}
	if req.Direction == MainToCategory && !cat.Enabled {
		return Snapshot{}, fmt.Errorf("%w: category %q", ErrGameDisabled, cat.Name)
	}

	if req.Reference != "" {
		fp := idempotency.Fingerprint{UserID: req.UserID, Type: transactions.TypeWithdrawal, Amount: req.Amount}

		stored, found, err := l.guard.Check(ctx, l.db, transferProvider, req.Reference, fp)
		if err != nil {
			return Snapshot{}, err
		}
		if found {
			return l.replayTransfer(ctx, stored, req)
		}
	}

	snap, err := l.moveFunds(ctx, req, all)
	if req.Reference != "" && errors.Is(err, transactions.ErrDuplicateTransaction) {
		stored, getErr := l.txns.GetByReference(ctx, l.db, transferProvider, req.Reference)
		if getErr != nil {
			return Snapshot{}, getErr
		}

		return l.replayTransfer(ctx, stored, req)
	}

	return snap, err
}

func (l *Ledger) replayTransfer(ctx context.Context, stored transactions.Transaction, req TransferRequest) (Snapshot, error) {
	if stored.Metadata.Transfer != string(req.Direction) || !stored.Amount.Equal(req.Amount) {
		return Snapshot{}, fmt.Errorf("%w: %s/%s", idempotency.ErrFingerprintConflict, transferProvider, req.Reference)
	}

	return l.snapshot(ctx, l.db, req.UserID, req.Category)
}

func (l *Ledger) moveFunds(ctx context.Context, req TransferRequest, all bool) (Snapshot, error) {
	from, to := MainScope(), CategoryScope(req.Category)
	if req.Direction == CategoryToMain {
		from, to = to, from
	}

	var snap Snapshot

	err := l.inScopes(ctx, req.UserID, []Scope{from, to}, func(tx *sql.Tx) error {
		amount := req.Amount

		if all {
			bal, _, err := l.wallets.LockCategory(ctx, tx, req.UserID, req.Category)
			if err != nil {
				return err
			}

			amount = bal
		}

		if amount.IsPositive() {
			meta := transactions.Metadata{Transfer: string(req.Direction)}
			desc := fmt.Sprintf("transfer %s -> %s", from, to)

			out, err := l.mutate(ctx, tx, entry{
				userID:      req.UserID,
				scope:       from,
				typ:         transactions.TypeWithdrawal,
				dir:         transactions.Debit,
				amount:      amount,
				provider:    transferProvider,
				reference:   req.Reference,
				description: desc,
				createdBy:   req.By,
				meta:        meta,
			})
			if err != nil {
				return err
			}

			_, err = l.mutate(ctx, tx, entry{
				userID:      req.UserID,
				scope:       to,
				typ:         transactions.TypeDeposit,
				dir:         transactions.Credit,
				amount:      amount,
				provider:    transferProvider,
				related:     out.ID,
				description: desc,
				createdBy:   req.By,
				meta:        meta,
			})
			if err != nil {
				return err
			}
		}

		var err error
		snap, err = l.snapshot(ctx, tx, req.UserID, req.Category)

		return err
	})

	return snap, err
}

// Consolidate moves every positive category balance back to the main wallet.
// It is an on-demand administrative operation built on Transfer.
func (l *Ledger) Consolidate(ctx context.Context, userID uint64, by string) (Snapshot, error) {
	snap, err := l.consolidate(ctx, userID, by)

	return snap, l.observe(ctx, "consolidate", err, "user_id", userID)
}

func (l *Ledger) consolidate(ctx context.Context, userID uint64, by string) (Snapshot, error) {
	cats, err := l.wallets.ListCategories(ctx, l.db, userID)
	if err != nil {
		return Snapshot{}, err
	}

	for _, c := range cats {
		if !c.Balance.IsPositive() {
			continue
		}

		_, err = l.transfer(ctx, TransferRequest{
			UserID:    userID,
			Category:  c.Category,
			Direction: CategoryToMain,
			By:        by,
		}, true)
		if err != nil {
			return Snapshot{}, fmt.Errorf("consolidate %s: %w", c.Category, err)
		}

		l.logger.InfoContext(ctx, "category consolidated", "user_id", userID, "category", c.Category)
	}

	return l.snapshot(ctx, l.db, userID, "")
}

// snapshot is the one balance read shared by Balance and Transfer.
func (l *Ledger) snapshot(ctx context.Context, q pgutils.Querier, userID uint64, category string) (Snapshot, error) {
	w, err := l.wallets.Get(ctx, q, userID)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		UserID:   userID,
		Currency: w.Currency,
		Main:     w.MainBalance,
		Category: category,
	}

	if category != "" {
		snap.CategoryBalance, err = l.wallets.CategoryBalance(ctx, q, userID, category)
		if err != nil {
			return Snapshot{}, err
		}
	}

	return snap, nil
}
