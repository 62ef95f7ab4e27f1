package tournament

import (
	"context"
	"sort"

	"labyrinth-server/model"
	"labyrinth-server/storage"
)

// Read-only query helpers. Each runs inside its own transaction opened by
// the caller and therefore observes one committed snapshot.

// ActiveTournament returns the currently active tournament, or (nil, nil)
// when none is active.
func ActiveTournament(ctx context.Context, tx storage.Tx) (*model.Tournament, error) {
	id, err := storage.GetCounter(ctx, tx, storage.RegActiveTournament)
	if err != nil || id == 0 {
		return nil, err
	}
	t, err := storage.GetTournament(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if t != nil && t.Status != model.StatusActive {
		return nil, nil
	}
	return t, nil
}

// ListTournaments returns tournaments, optionally filtered by status,
// sorted by start time descending, with limit/offset pagination.
func ListTournaments(ctx context.Context, tx storage.Tx, status *model.TournamentStatus, limit, offset int) ([]model.Tournament, error) {
	next, err := storage.GetCounter(ctx, tx, storage.RegNextTournamentID)
	if err != nil {
		return nil, err
	}
	var out []model.Tournament
	for id := uint64(1); id < next; id++ {
		t, err := storage.GetTournament(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime > out[j].StartTime
	})
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Leaderboard returns the top entries for a tournament, at most limit
// (capped at the stored board size).
func Leaderboard(ctx context.Context, tx storage.Tx, tid uint64, limit int) ([]model.LeaderboardEntry, error) {
	board, err := storage.GetLeaderboard(ctx, tx, tid)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}

// RecentRuns returns the newest runs across all tournaments, newest first.
func RecentRuns(ctx context.Context, tx storage.Tx, limit int) ([]model.GameRun, error) {
	ids, err := storage.GetRecentRunIDs(ctx, tx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return runsByIDs(ctx, tx, ids)
}

// PlayerRuns returns one wallet's runs, newest first.
func PlayerRuns(ctx context.Context, tx storage.Tx, wallet model.Wallet, limit int) ([]model.GameRun, error) {
	ids, err := storage.GetPlayerRunIDs(ctx, tx, wallet)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return runsByIDs(ctx, tx, ids)
}

func runsByIDs(ctx context.Context, tx storage.Tx, ids []uint64) ([]model.GameRun, error) {
	runs := make([]model.GameRun, 0, len(ids))
	for _, id := range ids {
		r, err := storage.GetRun(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if r != nil {
			runs = append(runs, *r)
		}
	}
	return runs, nil
}

// PlayerByUsername resolves a username to the owning player.
func PlayerByUsername(ctx context.Context, tx storage.Tx, username string) (*model.Player, error) {
	wallet, err := storage.GetWalletForUsername(ctx, tx, username)
	if err != nil || wallet == nil {
		return nil, err
	}
	return storage.GetPlayer(ctx, tx, *wallet)
}

// GlobalStats aggregates platform-wide counters.
func GlobalStats(ctx context.Context, tx storage.Tx) (*model.Stats, error) {
	players, err := storage.GetCounter(ctx, tx, storage.RegPlayerCount)
	if err != nil {
		return nil, err
	}
	nextTID, err := storage.GetCounter(ctx, tx, storage.RegNextTournamentID)
	if err != nil {
		return nil, err
	}
	nextRun, err := storage.GetCounter(ctx, tx, storage.RegNextRunID)
	if err != nil {
		return nil, err
	}
	stats := &model.Stats{TotalPlayers: players}
	if nextTID > 0 {
		stats.TotalTournaments = nextTID - 1
	}
	if nextRun > 0 {
		stats.TotalRuns = nextRun - 1
	}
	for id := uint64(1); id < nextTID; id++ {
		t, err := storage.GetTournament(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if t != nil && t.Status == model.StatusActive {
			stats.ActiveTournaments++
		}
	}
	return stats, nil
}
