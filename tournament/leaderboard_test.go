package tournament

import (
	"testing"

	"labyrinth-server/model"
)

func boardWallet(b byte) model.Wallet {
	var w model.Wallet
	w[0] = b
	return w
}

func snap(b byte, bestMS uint64) model.LeaderboardEntry {
	return model.LeaderboardEntry{Wallet: boardWallet(b), BestTimeMS: bestMS}
}

func TestApplyToBoardOrdersByBestTime(t *testing.T) {
	var board []model.LeaderboardEntry
	board, _ = applyToBoard(board, snap(1, 90_000), LeaderboardSize)
	board, rankA := applyToBoard(board, snap(1, 60_000), LeaderboardSize)
	board, rankB := applyToBoard(board, snap(2, 70_000), LeaderboardSize)

	if rankA != 1 {
		t.Errorf("fastest wallet rank = %d, want 1", rankA)
	}
	if rankB != 2 {
		t.Errorf("second wallet rank = %d, want 2", rankB)
	}
	if len(board) != 2 {
		t.Fatalf("board size = %d, want 2", len(board))
	}
	if board[0].BestTimeMS != 60_000 || board[1].BestTimeMS != 70_000 {
		t.Errorf("board not sorted ascending: %+v", board)
	}
	for i, e := range board {
		if e.Rank != uint32(i+1) {
			t.Errorf("rank at position %d = %d, want %d", i, e.Rank, i+1)
		}
	}
}

func TestApplyToBoardStableTies(t *testing.T) {
	var board []model.LeaderboardEntry
	board, _ = applyToBoard(board, snap(1, 50_000), LeaderboardSize)
	board, rank := applyToBoard(board, snap(2, 50_000), LeaderboardSize)

	// Earlier acceptance wins the tie.
	if board[0].Wallet != boardWallet(1) {
		t.Errorf("tie broken against insertion order: %+v", board)
	}
	if rank != 2 {
		t.Errorf("later tied wallet rank = %d, want 2", rank)
	}
}

func TestApplyToBoardRejectsTimeRegression(t *testing.T) {
	var board []model.LeaderboardEntry
	board, _ = applyToBoard(board, snap(1, 40_000), LeaderboardSize)

	worse := snap(1, 80_000)
	worse.TotalRuns = 5
	board, rank := applyToBoard(board, worse, LeaderboardSize)

	if board[0].BestTimeMS != 40_000 {
		t.Errorf("best time regressed to %d", board[0].BestTimeMS)
	}
	if board[0].TotalRuns != 5 {
		t.Errorf("totals not refreshed from snapshot: %+v", board[0])
	}
	if rank != 1 {
		t.Errorf("rank = %d, want 1", rank)
	}
}

func TestApplyToBoardTruncatesToLimit(t *testing.T) {
	var board []model.LeaderboardEntry
	for i := byte(1); i <= 5; i++ {
		board, _ = applyToBoard(board, snap(i, uint64(i)*10_000), 4)
	}

	if len(board) != 4 {
		t.Fatalf("board size = %d, want 4", len(board))
	}
	// The slowest wallet fell off and reports unranked.
	var rank uint32
	board, rank = applyToBoard(board, snap(9, 99_000), 4)
	if rank != 0 {
		t.Errorf("truncated wallet rank = %d, want 0", rank)
	}
	if len(board) != 4 {
		t.Errorf("board grew past limit: %d", len(board))
	}
}

func TestApplyToBoardUpdatesUsernameSnapshot(t *testing.T) {
	var board []model.LeaderboardEntry
	first := snap(1, 30_000)
	first.Username = "old_name"
	board, _ = applyToBoard(board, first, LeaderboardSize)

	second := snap(1, 30_000)
	second.Username = "new_name"
	board, _ = applyToBoard(board, second, LeaderboardSize)

	if board[0].Username != "new_name" {
		t.Errorf("username snapshot not refreshed: %q", board[0].Username)
	}
}
