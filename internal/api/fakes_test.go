package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/user01samiul/jx-backend-sub008/internal/repos/sessions"
	"github.com/user01samiul/jx-backend-sub008/internal/repos/transactions"
	"github.com/user01samiul/jx-backend-sub008/internal/services/ledger"
	"github.com/user01samiul/jx-backend-sub008/internal/services/session"
)

// fakeLedger answers from canned values and records what it was asked.
type fakeLedger struct {
	mu sync.Mutex

	snap      ledger.Snapshot
	result    ledger.Result
	txn       transactions.Transaction
	err       error
	statusErr error

	bets    []ledger.GameRequest
	wins    []ledger.GameRequest
	cancels []ledger.CancelRequest
	rounds  []ledger.RoundRequest
	calls   int

	// balanceFor records the user and game of each balance read.
	balanceFor []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		snap: ledger.Snapshot{
			UserID:          7,
			Currency:        "USD",
			Main:            decimal.RequireFromString("90"),
			Category:        "slots",
			CategoryBalance: decimal.RequireFromString("12.5"),
		},
	}
}

func (f *fakeLedger) Bet(_ context.Context, req ledger.GameRequest) (ledger.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.bets = append(f.bets, req)

	return f.result, f.err
}

func (f *fakeLedger) Win(_ context.Context, req ledger.GameRequest) (ledger.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.wins = append(f.wins, req)

	return f.result, f.err
}

func (f *fakeLedger) CancelByReference(_ context.Context, req ledger.CancelRequest) (ledger.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.cancels = append(f.cancels, req)

	return f.result, f.err
}

func (f *fakeLedger) Status(_ context.Context, _, _ string) (transactions.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	return f.txn, f.statusErr
}

func (f *fakeLedger) FinishRound(_ context.Context, req ledger.RoundRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.rounds = append(f.rounds, req)

	return f.err
}

// GameBalance never fails so error responses can always carry a balance.
func (f *fakeLedger) GameBalance(_ context.Context, userID uint64, gameID string) (ledger.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balanceFor = append(f.balanceFor, fmt.Sprintf("%d/%s", userID, gameID))

	return f.snap, nil
}

type fakeSessions struct {
	game   sessions.Session
	launch string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		launch: "launch-credential",
		game: sessions.Session{
			Token:     uuid.MustParse("6f1c2a52-8f0e-4d7b-9b7e-3b1d1b0a9c11"),
			Kind:      sessions.KindGame,
			UserID:    7,
			GameID:    "sweet-bonanza",
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}
}

func (f *fakeSessions) Authenticate(_ context.Context, credential, gameID string) (sessions.Session, error) {
	if credential != f.launch {
		return sessions.Session{}, session.ErrInvalid
	}
	if gameID != "" && gameID != f.game.GameID {
		return sessions.Session{}, session.ErrGameMismatch
	}

	return f.game, nil
}

func (f *fakeSessions) Resolve(_ context.Context, token string) (sessions.Session, error) {
	if token != f.game.Token.String() {
		return sessions.Session{}, session.ErrInvalid
	}

	return f.game, nil
}

func (f *fakeSessions) IssueLaunch(_ context.Context, userID uint64, gameID string) (sessions.Session, error) {
	return sessions.Session{
		Token:     uuid.MustParse("0b6a8f3e-2f44-4c55-8d1d-5a0f6c7e8b90"),
		Kind:      sessions.KindLaunch,
		UserID:    userID,
		GameID:    gameID,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

type recordedCommand struct {
	command, code string
}

type fakeObserver struct {
	mu   sync.Mutex
	seen []recordedCommand
}

func (o *fakeObserver) ObserveCommand(command, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.seen = append(o.seen, recordedCommand{command: command, code: code})
}
