package bets

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgtestutil"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/bets"
)

// seedBetTx inserts the wallet and the debit row a bet must reference.
func seedBetTx(t *testing.T, db *sql.DB, userID uint64, ref string) int64 {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO wallets (user_id, main_balance, currency) VALUES ($1, 100, 'USD')
		ON CONFLICT DO NOTHING
	`, userID)
	if err != nil {
		t.Fatalf("seed wallet: %v", err)
	}

	var id int64
	err = db.QueryRow(`
		INSERT INTO transactions (user_id, type, direction, amount, balance_before, balance_after,
		                          currency, provider, external_reference, status)
		VALUES ($1, 'bet', 'debit', 1, 100, 99, 'USD', 'innova', $2, 'completed')
		RETURNING id
	`, userID, ref).Scan(&id)
	if err != nil {
		t.Fatalf("seed bet transaction: %v", err)
	}

	return id
}

func withTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(t.Context(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	fn(tx)

	err = tx.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestBets_RoundLifecycle(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	ctx := t.Context()

	txA := seedBetTx(t, db, 1, "bet-a")
	txB := seedBetTx(t, db, 1, "bet-b")

	var betA int64
	withTx(t, db, func(tx *sql.Tx) {
		var err error

		betA, err = repo.Insert(ctx, tx, bets.Bet{
			UserID: 1, GameID: "aviator", Provider: "innova", TransactionID: txA,
			BetAmount: decimal.RequireFromString("1"), RoundID: "r-1", SessionID: "s-1",
		})
		if err != nil {
			t.Fatalf("insert bet a: %v", err)
		}

		_, err = repo.Insert(ctx, tx, bets.Bet{
			UserID: 1, GameID: "aviator", Provider: "innova", TransactionID: txB,
			BetAmount: decimal.RequireFromString("1"), RoundID: "r-1", SessionID: "s-2",
		})
		if err != nil {
			t.Fatalf("insert bet b: %v", err)
		}
	})

	open, err := repo.OpenForRound(ctx, db, bets.RoundKey{Provider: "innova", UserID: 1, RoundID: "r-1"})
	if err != nil {
		t.Fatalf("open for round: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("want 2 open bets, got %d", len(open))
	}

	open, err = repo.OpenForRound(ctx, db, bets.RoundKey{Provider: "innova", UserID: 1, RoundID: "r-1", SessionID: "s-1"})
	if err != nil {
		t.Fatalf("open for round by session: %v", err)
	}
	if len(open) != 1 || open[0].ID != betA {
		t.Fatalf("session filter: got %+v", open)
	}

	withTx(t, db, func(tx *sql.Tx) {
		err := repo.AddWin(ctx, tx, betA, decimal.RequireFromString("0.40"))
		if err != nil {
			t.Fatalf("add win: %v", err)
		}

		err = repo.ReverseWin(ctx, tx, betA, decimal.RequireFromString("0.40"), bets.OutcomePending)
		if err != nil {
			t.Fatalf("reverse win: %v", err)
		}
	})

	locked := lock(t, db, repo, txA)
	if locked.Outcome != bets.OutcomePending || !locked.WinAmount.IsZero() {
		t.Fatalf("after reverse: %+v", locked)
	}

	withTx(t, db, func(tx *sql.Tx) {
		err := repo.AddWin(ctx, tx, betA, decimal.RequireFromString("2"))
		if err != nil {
			t.Fatalf("add win: %v", err)
		}

		finished, err := repo.FinishRound(ctx, tx, "innova", 1, "r-1")
		if err != nil || !finished {
			t.Fatalf("finish round: %v %v", finished, err)
		}

		finished, err = repo.FinishRound(ctx, tx, "innova", 1, "r-1")
		if err != nil || finished {
			t.Fatalf("second finish must be a no-op: %v %v", finished, err)
		}
	})

	done, err := repo.IsRoundFinished(ctx, db, "innova", 1, "r-1")
	if err != nil || !done {
		t.Fatalf("is round finished: %v %v", done, err)
	}

	all, err := repo.ForRound(ctx, db, "innova", 1, "r-1")
	if err != nil {
		t.Fatalf("for round: %v", err)
	}
	if all[0].Outcome != bets.OutcomeWin || all[1].Outcome != bets.OutcomeLose {
		t.Fatalf("unexpected outcomes: %s %s", all[0].Outcome, all[1].Outcome)
	}
	if all[1].ResultAt == nil {
		t.Fatalf("lost bet must carry result_at")
	}
}

func lock(t *testing.T, db *sql.DB, repo *betsRepo, txID int64) bets.Bet {
	t.Helper()

	var b bets.Bet
	withTx(t, db, func(tx *sql.Tx) {
		var err error

		b, err = repo.LockByTransaction(t.Context(), tx, txID)
		if err != nil {
			t.Fatalf("lock by transaction: %v", err)
		}
	})

	return b
}

func TestBets_MissingRows(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	tx, err := db.BeginTx(t.Context(), nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = repo.LockByTransaction(t.Context(), tx, 424242)
	if !errors.Is(err, bets.ErrBetNotFound) {
		t.Fatalf("lock: want ErrBetNotFound, got %v", err)
	}

	err = repo.MarkCancelled(t.Context(), tx, 424242)
	if !errors.Is(err, bets.ErrBetNotFound) {
		t.Fatalf("cancel: want ErrBetNotFound, got %v", err)
	}
}
