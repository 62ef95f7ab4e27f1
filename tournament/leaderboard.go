// Package tournament implements the competition state machine: identity
// registration, run submission with XP awards, bounded ranked leaderboards,
// lifecycle management and terminal prize distribution. All functions
// operate inside a caller-provided storage transaction; they never commit.
package tournament

import (
	"sort"

	"labyrinth-server/model"
)

// LeaderboardSize bounds every tournament board to the top K entries.
const LeaderboardSize = 100

// applyToBoard merges a participant snapshot into the board and returns the
// re-ranked board plus the snapshot wallet's 1-based rank (0 = off the board).
//
// An existing entry adopts the snapshot's score and totals unconditionally
// but only adopts a strictly lower best time, so a stale snapshot can never
// regress a rank. The sort is stable: earlier acceptance wins ties.
func applyToBoard(board []model.LeaderboardEntry, snap model.LeaderboardEntry, limit int) ([]model.LeaderboardEntry, uint32) {
	found := false
	for i := range board {
		if board[i].Wallet == snap.Wallet {
			if snap.BestTimeMS < board[i].BestTimeMS {
				board[i].BestTimeMS = snap.BestTimeMS
			}
			board[i].Username = snap.Username
			board[i].BestScore = snap.BestScore
			board[i].TotalRuns = snap.TotalRuns
			board[i].TotalXP = snap.TotalXP
			found = true
			break
		}
	}
	if !found {
		board = append(board, snap)
	}

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].BestTimeMS < board[j].BestTimeMS
	})
	if len(board) > limit {
		board = board[:limit]
	}

	var rank uint32
	for i := range board {
		board[i].Rank = uint32(i + 1)
		if board[i].Wallet == snap.Wallet {
			rank = board[i].Rank
		}
	}
	return board, rank
}
