package tournament

import (
	"context"
	"errors"
	"testing"

	"labyrinth-server/model"
	"labyrinth-server/operrors"
	"labyrinth-server/storage"
)

// bootstrappedStore returns a store with the default tournament committed.
func bootstrappedStore(t *testing.T) *storage.Memory {
	t.Helper()
	store := storage.NewMemory()
	tx := begin(t, store)
	if _, _, err := Bootstrap(context.Background(), tx, defaultBootstrap(), t0); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	commit(t, tx)
	return store
}

func submit(t *testing.T, store storage.Store, signer string, in SubmitInput, now model.Timestamp) (*SubmitResult, error) {
	t.Helper()
	ctx := context.Background()
	tx := begin(t, store)
	res, err := SubmitRun(ctx, tx, signer, in, now)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	commit(t, tx)
	return res, nil
}

func TestSubmitRunLeaderboardScenario(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)
	walletA, walletB := boardWallet(0xaa), boardWallet(0xbb)

	r1, err := submit(t, store, walletA.Hex(), SubmitInput{TournamentID: 1, TimeMS: 90_000, Completed: true}, t0+1)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if r1.RunID != 1 || !r1.NewBest || r1.Rank != 1 {
		t.Errorf("first run result: %+v", r1)
	}

	r2, err := submit(t, store, walletA.Hex(), SubmitInput{TournamentID: 1, TimeMS: 60_000, Completed: true}, t0+2)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if r2.RunID != 2 || !r2.NewBest || r2.Rank != 1 {
		t.Errorf("second run result: %+v", r2)
	}

	r3, err := submit(t, store, walletB.Hex(), SubmitInput{TournamentID: 1, TimeMS: 70_000, Completed: true}, t0+3)
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	if r3.Rank != 2 {
		t.Errorf("wallet B rank = %d, want 2", r3.Rank)
	}

	check := begin(t, store)
	defer check.Rollback(ctx)
	board, _ := storage.GetLeaderboard(ctx, check, 1)
	if len(board) != 2 {
		t.Fatalf("board size = %d, want 2", len(board))
	}
	if board[0].Wallet != walletA || board[0].BestTimeMS != 60_000 {
		t.Errorf("rank 1 entry: %+v", board[0])
	}
	if board[1].Wallet != walletB || board[1].BestTimeMS != 70_000 {
		t.Errorf("rank 2 entry: %+v", board[1])
	}

	tournament, _ := storage.GetTournament(ctx, check, 1)
	if tournament.ParticipantCount != 2 {
		t.Errorf("participant count = %d, want 2", tournament.ParticipantCount)
	}
	if tournament.TotalRuns != 3 {
		t.Errorf("total runs = %d, want 3", tournament.TotalRuns)
	}
}

func TestSubmitRunPreconditionOrder(t *testing.T) {
	store := bootstrappedStore(t)

	// Unauthenticated beats everything else.
	if _, err := submit(t, store, "", SubmitInput{TournamentID: 99}, t0+1); !errors.Is(err, operrors.ErrNotAuthenticated) {
		t.Errorf("empty signer err = %v, want ErrNotAuthenticated", err)
	}

	// An opaque signer with no binding cannot submit, even to a bad tid.
	if _, err := submit(t, store, "google-oauth2|12345", SubmitInput{TournamentID: 99}, t0+1); !errors.Is(err, operrors.ErrNotRegistered) {
		t.Errorf("opaque signer err = %v, want ErrNotRegistered", err)
	}

	// Wallet signers reach the tournament checks.
	signer := boardWallet(1).Hex()
	if _, err := submit(t, store, signer, SubmitInput{TournamentID: 99}, t0+1); !errors.Is(err, operrors.ErrTournamentNotFound) {
		t.Errorf("missing tournament err = %v, want ErrTournamentNotFound", err)
	}

	// Past end time the tournament stops accepting runs.
	after := t0 + model.Timestamp(15*MicrosPerDay)
	if _, err := submit(t, store, signer, SubmitInput{TournamentID: 1}, after); !errors.Is(err, operrors.ErrTournamentNotActive) {
		t.Errorf("expired tournament err = %v, want ErrTournamentNotActive", err)
	}
}

func TestSubmitRunFailureLeavesNoState(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)

	after := t0 + model.Timestamp(15*MicrosPerDay)
	if _, err := submit(t, store, boardWallet(1).Hex(), SubmitInput{TournamentID: 1}, after); err == nil {
		t.Fatal("expected failure")
	}

	check := begin(t, store)
	defer check.Rollback(ctx)
	if next, _ := storage.GetCounter(ctx, check, storage.RegNextRunID); next != 1 {
		t.Errorf("run counter moved on failed submit: %d", next)
	}
	if recent, _ := storage.GetRecentRunIDs(ctx, check); len(recent) != 0 {
		t.Errorf("recent ring polluted: %v", recent)
	}
}

func TestSubmitRunAutoBindsWalletSigner(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)
	wallet := boardWallet(0xcd)

	if _, err := submit(t, store, wallet.Hex(), SubmitInput{TournamentID: 1, TimeMS: 50_000, Completed: true}, t0+1); err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}

	check := begin(t, store)
	defer check.Rollback(ctx)
	player, err := storage.GetPlayer(ctx, check, wallet)
	if err != nil || player == nil {
		t.Fatalf("auto-bound player missing: %v", err)
	}
	if player.Username != wallet.DefaultUsername() {
		t.Errorf("username = %q, want %q", player.Username, wallet.DefaultUsername())
	}
	bound, _ := storage.GetWalletForSigner(ctx, check, wallet.Hex())
	if bound == nil || *bound != wallet {
		t.Errorf("signer not bound: %v", bound)
	}
}

func TestSubmitRunUpdatesAggregates(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)
	wallet := boardWallet(0x01)

	if _, err := submit(t, store, wallet.Hex(), SubmitInput{TournamentID: 1, TimeMS: 60_000, Score: 500, Deaths: 0, Completed: true}, t0+1); err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}
	// Second run: slower but higher score, with deaths, not completed.
	if _, err := submit(t, store, wallet.Hex(), SubmitInput{TournamentID: 1, TimeMS: 95_000, Score: 900, Deaths: 3, Completed: false}, t0+2); err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}

	check := begin(t, store)
	defer check.Rollback(ctx)

	xp1 := model.CalculateXP(model.DifficultyMedium, 60_000, 0, true)
	xp2 := model.CalculateXP(model.DifficultyMedium, 95_000, 3, false)

	player, _ := storage.GetPlayer(ctx, check, wallet)
	if player.TotalXP != xp1+xp2 {
		t.Errorf("total XP = %d, want %d", player.TotalXP, xp1+xp2)
	}
	if player.TotalRuns != 2 || player.TournamentsPlayed != 1 {
		t.Errorf("player aggregates: %+v", player)
	}
	if player.BestTimeMS != 60_000 {
		t.Errorf("player best time = %d, want 60000", player.BestTimeMS)
	}

	tp, _ := storage.GetTournamentPlayer(ctx, check, 1, wallet)
	if tp.BestTimeMS != 60_000 {
		t.Errorf("abandoned run changed best time: %d", tp.BestTimeMS)
	}
	if tp.BestScore != 900 {
		t.Errorf("best score = %d, want 900", tp.BestScore)
	}
	if tp.TotalRuns != 2 || tp.TotalXPEarned != xp1+xp2 {
		t.Errorf("participant aggregates: %+v", tp)
	}

	recent, _ := storage.GetRecentRunIDs(ctx, check)
	if len(recent) != 2 || recent[0] != 2 || recent[1] != 1 {
		t.Errorf("recent ring = %v, want [2 1]", recent)
	}
	mine, _ := storage.GetPlayerRunIDs(ctx, check, wallet)
	if len(mine) != 2 || mine[0] != 2 {
		t.Errorf("player run index = %v", mine)
	}
}

func TestSubmitRunIncompleteStaysOffBoard(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)
	wallet := boardWallet(0x02)

	res, err := submit(t, store, wallet.Hex(), SubmitInput{TournamentID: 1, TimeMS: 40_000, Completed: false}, t0+1)
	if err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}
	if res.Rank != 0 || res.NewBest {
		t.Errorf("abandoned run result: %+v", res)
	}

	check := begin(t, store)
	defer check.Rollback(ctx)
	board, _ := storage.GetLeaderboard(ctx, check, 1)
	if len(board) != 0 {
		t.Errorf("abandoned run reached the board: %+v", board)
	}
	// The participant row still exists with the sentinel best time.
	tp, _ := storage.GetTournamentPlayer(ctx, check, 1, wallet)
	if tp == nil || tp.BestTimeMS != model.NoTime {
		t.Errorf("participant row: %+v", tp)
	}
}

func TestSubmitRunMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)

	tx := begin(t, store)
	limited, err := Create(ctx, tx, CreateInput{
		Title:                "Sprint",
		MazeSeed:             "sprint_seed",
		Difficulty:           model.DifficultyHard,
		DurationDays:         1,
		XPRewardPool:         1000,
		MaxAttemptsPerPlayer: 2,
	}, t0)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	commit(t, tx)

	signer := boardWallet(0x03).Hex()
	in := SubmitInput{TournamentID: limited.ID, TimeMS: 30_000, Completed: true}
	for i := 0; i < 2; i++ {
		if _, err := submit(t, store, signer, in, t0+model.Timestamp(i+1)); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}
	if _, err := submit(t, store, signer, in, t0+10); !errors.Is(err, operrors.ErrMaxAttemptsReached) {
		t.Errorf("third run err = %v, want ErrMaxAttemptsReached", err)
	}
}

func TestRecentRingTruncates(t *testing.T) {
	ctx := context.Background()
	store := bootstrappedStore(t)
	signer := boardWallet(0x04).Hex()

	for i := 0; i < RecentRunsCap+5; i++ {
		if _, err := submit(t, store, signer, SubmitInput{TournamentID: 1, TimeMS: 50_000, Completed: true}, t0+model.Timestamp(i+1)); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}

	check := begin(t, store)
	defer check.Rollback(ctx)
	recent, _ := storage.GetRecentRunIDs(ctx, check)
	if len(recent) != RecentRunsCap {
		t.Fatalf("ring size = %d, want %d", len(recent), RecentRunsCap)
	}
	if recent[0] != uint64(RecentRunsCap+5) {
		t.Errorf("newest run id = %d, want %d", recent[0], RecentRunsCap+5)
	}
}
