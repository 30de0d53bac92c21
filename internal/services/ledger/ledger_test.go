package ledger

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user01samiul/jx-backend-sub008/internal/config"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgtestutil"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/wallets"
)

const provider = "innova"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db *sql.DB
	l  *Ledger
}

// newFixture returns a ledger over a fresh database with the catalog
// slots{sweet-bonanza, gates-of-olympus}, live{lightning-roulette}, crash{aviator}.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, cleanup := pgtestutil.NewTestDB(t)
	t.Cleanup(cleanup)

	l := New(db, config.LedgerConfig{
		LockRetries:    500,
		LockBackoff:    time.Millisecond,
		LockMaxBackoff: 20 * time.Millisecond,
		WalletMode:     string(ModeCategory),
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	for _, g := range []struct{ id, cat string }{
		{"sweet-bonanza", "slots"},
		{"gates-of-olympus", "slots"},
		{"lightning-roulette", "live"},
		{"aviator", "crash"},
	} {
		require.NoError(t, l.UpsertGame(t.Context(), g.id, g.cat, true))
	}

	return &fixture{db: db, l: l}
}

// wallet creates a user with main balance and optional funded categories.
func (f *fixture) wallet(t *testing.T, userID uint64, main string, cats map[string]string) {
	t.Helper()

	total := dec(main)
	for _, amt := range cats {
		total = total.Add(dec(amt))
	}

	_, err := f.l.CreateWallet(t.Context(), userID, "USD", total, "test")
	require.NoError(t, err)

	for cat, amt := range cats {
		_, err = f.l.Transfer(t.Context(), TransferRequest{
			UserID: userID, Category: cat, Amount: dec(amt), Direction: MainToCategory, By: "test",
		})
		require.NoError(t, err)
	}
}

func (f *fixture) categoryBalance(t *testing.T, userID uint64, cat string) decimal.Decimal {
	t.Helper()

	snap, err := f.l.Balance(t.Context(), userID, cat)
	require.NoError(t, err)

	return snap.CategoryBalance
}

// history returns the entries of one scope in id order.
func (f *fixture) history(t *testing.T, userID uint64, cat string) []transactions.Transaction {
	t.Helper()

	all, err := f.l.ListTransactions(t.Context(), transactions.Filter{UserID: userID, Limit: 500})
	require.NoError(t, err)

	var out []transactions.Transaction
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Category == cat {
			out = append(out, all[i])
		}
	}

	return out
}

// assertChain checks that every entry of a scope starts where the previous
// one ended, never goes negative, and that the last one equals the balance.
func (f *fixture) assertChain(t *testing.T, userID uint64, cat string) {
	t.Helper()

	entries := f.history(t, userID, cat)
	require.NotEmpty(t, entries)

	sum := decimal.Zero
	for i, e := range entries {
		assert.False(t, e.BalanceAfter.IsNegative(), "entry %d negative", e.ID)
		if i > 0 {
			assert.True(t, e.BalanceBefore.Equal(entries[i-1].BalanceAfter),
				"entry %d starts at %s, previous ended at %s", e.ID, e.BalanceBefore, entries[i-1].BalanceAfter)
		}

		if e.Direction == transactions.Credit {
			sum = sum.Add(e.Amount)
		} else {
			sum = sum.Sub(e.Amount)
		}
	}

	last := entries[len(entries)-1]
	assert.True(t, last.BalanceAfter.Equal(sum), "last balance %s, signed sum %s", last.BalanceAfter, sum)

	snap, err := f.l.Balance(t.Context(), userID, cat)
	require.NoError(t, err)
	assert.True(t, snap.Scoped().Equal(sum), "balance %s, signed sum %s", snap.Scoped(), sum)
}

func bet(user uint64, ref, game, round, amount string) GameRequest {
	return GameRequest{
		Provider: provider, Reference: ref, UserID: user,
		GameID: game, RoundID: round, SessionID: "s-" + round, Amount: dec(amount),
	}
}

func win(user uint64, ref, round, amount string) GameRequest {
	return GameRequest{
		Provider: provider, Reference: ref, UserID: user,
		RoundID: round, SessionID: "s-" + round, Amount: dec(amount),
	}
}

func cancelReq(user uint64, ref string) CancelRequest {
	return CancelRequest{Provider: provider, Reference: ref, UserID: user}
}

func TestLedger_Conservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 1, "0", map[string]string{"slots": "20.00"})

	for i := range 10 {
		round := fmt.Sprintf("r-%d", i)

		_, err := f.l.Bet(ctx, bet(1, "b-"+round, "sweet-bonanza", round, "1.25"))
		require.NoError(t, err)

		if i%3 == 0 {
			_, err = f.l.Win(ctx, win(1, "w-"+round, round, "2.10"))
			require.NoError(t, err)
		}
		if i%4 == 0 {
			_, err = f.l.CancelByReference(ctx, cancelReq(1, "w-"+round))
			if i%3 == 0 {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, transactions.ErrTransactionNotFound)
			}
		}
	}

	_, err := f.l.Bet(ctx, bet(1, "too-big", "sweet-bonanza", "r-big", "1000"))
	require.Error(t, err)
	assert.Equal(t, ClassBusiness, Classify(err))

	f.assertChain(t, 1, "slots")
}

func TestLedger_BetInsufficientFundsWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.wallet(t, 2, "100.00", map[string]string{"crash": "1.00"})

	_, err := f.l.Bet(t.Context(), bet(2, "b-1", "aviator", "r-1", "1.01"))
	require.ErrorIs(t, err, wallets.ErrInsufficientFunds)

	_, err = f.l.Status(t.Context(), provider, "b-1")
	require.ErrorIs(t, err, transactions.ErrTransactionNotFound)

	placed, err := f.l.ListBets(t.Context(), bets.Filter{UserID: 2})
	require.NoError(t, err)
	assert.Empty(t, placed)
	assert.Equal(t, "1.00", f.categoryBalance(t, 2, "crash").StringFixed(2))
}

func TestLedger_NetReversal(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 3, "0", map[string]string{"slots": "10.00"})

	pre := f.categoryBalance(t, 3, "slots")

	_, err := f.l.Bet(ctx, bet(3, "b-1", "sweet-bonanza", "r-1", "0.20"))
	require.NoError(t, err)
	w, err := f.l.Win(ctx, win(3, "w-1", "r-1", "0.04"))
	require.NoError(t, err)
	assert.Equal(t, "9.84", w.Balance.StringFixed(2))

	res, err := f.l.CancelByReference(ctx, cancelReq(3, "b-1"))
	require.NoError(t, err)

	rev := res.Transaction
	assert.Equal(t, transactions.TypeCancellation, rev.Type)
	assert.Equal(t, transactions.Credit, rev.Direction)
	assert.Equal(t, "0.16", rev.Amount.StringFixed(2))
	assert.Equal(t, []int64{w.Transaction.ID}, rev.Metadata.NettedWins)
	assert.NotZero(t, rev.Metadata.OriginalTransaction)
	assert.True(t, res.Balance.Equal(pre), "balance %s, pre-bet %s", res.Balance, pre)

	// The netted win cannot be reversed a second time.
	_, err = f.l.CancelByReference(ctx, cancelReq(3, "w-1"))
	require.ErrorIs(t, err, transactions.ErrAlreadyCancelled)

	placed, err := f.l.ListBets(ctx, bets.Filter{UserID: 3})
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, bets.OutcomeCancelled, placed[0].Outcome)

	f.assertChain(t, 3, "slots")
}

func TestLedger_CancelIsAtMostOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 4, "0", map[string]string{"live": "5.00"})

	_, err := f.l.Bet(ctx, bet(4, "b-1", "lightning-roulette", "r-1", "2.00"))
	require.NoError(t, err)

	res, err := f.l.CancelByReference(ctx, cancelReq(4, "b-1"))
	require.NoError(t, err)
	assert.Equal(t, "5.00", res.Balance.StringFixed(2))

	for range 3 {
		_, err = f.l.CancelByReference(ctx, cancelReq(4, "b-1"))
		require.ErrorIs(t, err, transactions.ErrAlreadyCancelled)
	}

	status, err := f.l.Status(ctx, provider, "b-1")
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusCancelled, status.Status)
	assert.Equal(t, "5.00", f.categoryBalance(t, 4, "live").StringFixed(2))

	_, err = f.l.CancelByReference(ctx, cancelReq(4, "never-sent"))
	require.ErrorIs(t, err, transactions.ErrTransactionNotFound)

	_, err = f.l.CancelByReference(ctx, cancelReq(999, "b-1"))
	require.ErrorIs(t, err, transactions.ErrTransactionNotFound)

	_, err = f.l.CancelByID(ctx, res.Transaction.ID, "ops")
	require.ErrorIs(t, err, ErrNotCancellable)
}

func TestLedger_CancelWinCannotGoNegative(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 5, "0", map[string]string{"slots": "1.00"})

	_, err := f.l.Bet(ctx, bet(5, "b-1", "sweet-bonanza", "r-1", "1.00"))
	require.NoError(t, err)
	_, err = f.l.Win(ctx, win(5, "w-1", "r-1", "3.00"))
	require.NoError(t, err)

	_, err = f.l.Transfer(ctx, TransferRequest{UserID: 5, Category: "slots", Amount: dec("2.50"), Direction: CategoryToMain})
	require.NoError(t, err)

	_, err = f.l.CancelByReference(ctx, cancelReq(5, "w-1"))
	require.ErrorIs(t, err, wallets.ErrInsufficientFunds)

	status, err := f.l.Status(ctx, provider, "w-1")
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusCompleted, status.Status, "failed cancel must leave the win untouched")

	_, err = f.l.Transfer(ctx, TransferRequest{UserID: 5, Category: "slots", Amount: dec("2.50"), Direction: MainToCategory})
	require.NoError(t, err)

	res, err := f.l.CancelByReference(ctx, cancelReq(5, "w-1"))
	require.NoError(t, err)
	assert.Equal(t, "0.00", res.Balance.StringFixed(2))

	placed, err := f.l.ListBets(ctx, bets.Filter{UserID: 5})
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, bets.OutcomePending, placed[0].Outcome)
	assert.True(t, placed[0].WinAmount.IsZero())

	f.assertChain(t, 5, "slots")
}

// Balance 50 in slots, bet 5, win 8, then cancelling the bet must fail: the
// win already exceeds the stake.
func TestLedger_CancelBetAfterLargerWin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 6, "0", map[string]string{"slots": "50.00"})

	res, err := f.l.Bet(ctx, bet(6, "b-1", "gates-of-olympus", "r-1", "5.00"))
	require.NoError(t, err)
	assert.Equal(t, "45.00", res.Balance.StringFixed(2))

	res, err = f.l.Win(ctx, win(6, "w-1", "r-1", "8.00"))
	require.NoError(t, err)
	assert.Equal(t, "53.00", res.Balance.StringFixed(2))

	_, err = f.l.CancelByReference(ctx, cancelReq(6, "b-1"))
	require.ErrorIs(t, err, ErrWinExceedsBet)
	assert.Equal(t, ClassBusiness, Classify(err))

	assert.Equal(t, "53.00", f.categoryBalance(t, 6, "slots").StringFixed(2))

	status, err := f.l.Status(ctx, provider, "b-1")
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusCompleted, status.Status)
}

func TestLedger_TransferRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 7, "30.00", nil)

	before, err := f.l.Balance(ctx, 7, "live")
	require.NoError(t, err)

	out, err := f.l.Transfer(ctx, TransferRequest{UserID: 7, Category: "live", Amount: dec("12.34"), Direction: MainToCategory})
	require.NoError(t, err)
	read, err := f.l.Balance(ctx, 7, "live")
	require.NoError(t, err)
	assertSameSnapshot(t, out, read)
	assert.Equal(t, "17.66", out.Main.StringFixed(2))
	assert.Equal(t, "12.34", out.CategoryBalance.StringFixed(2))

	back, err := f.l.Transfer(ctx, TransferRequest{UserID: 7, Category: "live", Amount: dec("12.34"), Direction: CategoryToMain})
	require.NoError(t, err)
	read, err = f.l.Balance(ctx, 7, "live")
	require.NoError(t, err)
	assertSameSnapshot(t, back, read)

	assert.True(t, back.Main.Equal(before.Main))
	assert.True(t, back.CategoryBalance.Equal(before.CategoryBalance))

	_, err = f.l.Transfer(ctx, TransferRequest{UserID: 7, Category: "live", Amount: dec("0.01"), Direction: CategoryToMain})
	require.ErrorIs(t, err, wallets.ErrInsufficientFunds)

	_, err = f.l.Transfer(ctx, TransferRequest{UserID: 7, Category: "live", Amount: dec("1.001"), Direction: MainToCategory})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.l.Transfer(ctx, TransferRequest{UserID: 7, Category: "poker", Amount: dec("1"), Direction: MainToCategory})
	require.Error(t, err)
	assert.Equal(t, ClassBusiness, Classify(err))
}

func TestLedger_TransferIdempotentByReference(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 8, "10.00", nil)

	req := TransferRequest{UserID: 8, Category: "slots", Amount: dec("4.00"), Direction: MainToCategory, Reference: "tr-1"}

	first, err := f.l.Transfer(ctx, req)
	require.NoError(t, err)
	again, err := f.l.Transfer(ctx, req)
	require.NoError(t, err)
	assertSameSnapshot(t, first, again)

	req.Direction = CategoryToMain
	_, err = f.l.Transfer(ctx, req)
	require.Error(t, err)
	assert.Equal(t, ClassBusiness, Classify(err))
}

func TestLedger_TransferLegsAreNotCancellable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 11, "20.00", nil)

	_, err := f.l.Transfer(ctx, TransferRequest{UserID: 11, Category: "slots", Amount: dec("10"), Direction: MainToCategory})
	require.NoError(t, err)

	mainLegs := f.history(t, 11, "")
	catLegs := f.history(t, 11, "slots")
	require.NotEmpty(t, mainLegs)
	require.Len(t, catLegs, 1)

	withdrawal := mainLegs[len(mainLegs)-1]
	deposit := catLegs[0]
	require.Equal(t, transactions.TypeWithdrawal, withdrawal.Type)
	require.Equal(t, transactions.TypeDeposit, deposit.Type)
	require.Equal(t, withdrawal.ID, deposit.RelatedID)

	for _, leg := range []transactions.Transaction{withdrawal, deposit} {
		_, err = f.l.CancelByID(ctx, leg.ID, "ops")
		require.ErrorIs(t, err, ErrNotCancellable, "leg %d", leg.ID)
		assert.Equal(t, ClassBusiness, Classify(err))

		got, err := f.l.Transaction(ctx, leg.ID)
		require.NoError(t, err)
		assert.Equal(t, transactions.StatusCompleted, got.Status)
	}

	snap, err := f.l.Balance(ctx, 11, "slots")
	require.NoError(t, err)
	assert.Equal(t, "10.00", snap.Main.StringFixed(2))
	assert.Equal(t, "10.00", snap.CategoryBalance.StringFixed(2))

	f.assertChain(t, 11, "")
	f.assertChain(t, 11, "slots")
}

func TestLedger_TransferIntoDisabledCategory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 9, "5.00", map[string]string{"crash": "5.00"})

	require.NoError(t, f.l.SetCategoryEnabled(ctx, "crash", false))

	_, err := f.l.Transfer(ctx, TransferRequest{UserID: 9, Category: "crash", Amount: dec("1"), Direction: MainToCategory})
	require.ErrorIs(t, err, ErrGameDisabled)

	snap, err := f.l.Transfer(ctx, TransferRequest{UserID: 9, Category: "crash", Amount: dec("5"), Direction: CategoryToMain})
	require.NoError(t, err)
	assert.Equal(t, "10.00", snap.Main.StringFixed(2))
}

func TestLedger_Consolidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := t.Context()
	f.wallet(t, 10, "1.00", map[string]string{"slots": "2.50", "live": "3.25"})

	snap, err := f.l.Consolidate(ctx, 10, "ops")
	require.NoError(t, err)
	assert.Equal(t, "6.75", snap.Main.StringFixed(2))

	view, err := f.l.Wallet(ctx, 10)
	require.NoError(t, err)
	for cat, bal := range view.Categories {
		assert.True(t, bal.IsZero(), "category %s still holds %s", cat, bal)
	}

	// Nothing left to move.
	snap, err = f.l.Consolidate(ctx, 10, "ops")
	require.NoError(t, err)
	assert.Equal(t, "6.75", snap.Main.StringFixed(2))
}

func assertSameSnapshot(t *testing.T, want, got Snapshot) {
	t.Helper()

	assert.Equal(t, want.UserID, got.UserID)
	assert.Equal(t, want.Currency, got.Currency)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.Main.String(), got.Main.String())
	assert.Equal(t, want.CategoryBalance.String(), got.CategoryBalance.String())
}
