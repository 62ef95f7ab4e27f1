package tournament

import (
	"context"

	"labyrinth-server/model"
	"labyrinth-server/operrors"
	"labyrinth-server/storage"
)

// RecentRunsCap bounds the global newest-first ring of recent run ids.
const RecentRunsCap = 100

// PlayerRunIndexCap bounds the per-player newest-first run id index.
const PlayerRunIndexCap = 1000

// SubmitInput is one maze attempt as reported by the client. Values are
// trusted; gameplay validation happens before dispatch or not at all.
type SubmitInput struct {
	TournamentID   uint64
	TimeMS         uint64
	Score          uint64
	CoinsCollected uint32
	Deaths         uint32
	Completed      bool
}

// SubmitResult is what the submitter learns about their run.
type SubmitResult struct {
	RunID    uint64
	XPEarned uint64
	NewBest  bool
	Rank     uint32
}

// SubmitRun runs the full submission pipeline: precondition checks, XP
// award, run insertion, per-tournament and global aggregates, and the
// leaderboard update. Everything happens in the caller's transaction, so a
// failure at any step leaves no trace.
func SubmitRun(ctx context.Context, tx storage.Tx, signer string, in SubmitInput, now model.Timestamp) (*SubmitResult, error) {
	wallet, err := ResolveWallet(ctx, tx, signer, now)
	if err != nil {
		return nil, err
	}

	t, err := storage.GetTournament(ctx, tx, in.TournamentID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, operrors.ErrTournamentNotFound
	}
	if !t.IsOpen(now) {
		return nil, operrors.ErrTournamentNotActive
	}

	player, err := storage.GetPlayer(ctx, tx, wallet)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, operrors.ErrNotRegistered
	}

	tp, err := storage.GetTournamentPlayer(ctx, tx, t.ID, wallet)
	if err != nil {
		return nil, err
	}
	newParticipant := tp == nil
	if newParticipant {
		tp = &model.TournamentPlayer{
			TournamentID: t.ID,
			Wallet:       wallet,
			Username:     player.Username,
			BestTimeMS:   model.NoTime,
			JoinedAt:     now,
		}
	}
	if t.MaxAttemptsPerPlayer > 0 && tp.TotalRuns >= t.MaxAttemptsPerPlayer {
		return nil, operrors.ErrMaxAttemptsReached
	}

	xp := model.CalculateXP(t.Difficulty, in.TimeMS, in.Deaths, in.Completed)

	runID, err := storage.GetCounter(ctx, tx, storage.RegNextRunID)
	if err != nil {
		return nil, err
	}
	if runID == 0 {
		runID = 1
	}
	run := &model.GameRun{
		ID:             runID,
		TournamentID:   t.ID,
		Wallet:         wallet,
		Username:       player.Username, // snapshot; renames do not rewrite history
		TimeMS:         in.TimeMS,
		Score:          in.Score,
		CoinsCollected: in.CoinsCollected,
		Deaths:         in.Deaths,
		Completed:      in.Completed,
		XPEarned:       xp,
		CreatedAt:      now,
	}
	if err := storage.PutRun(ctx, tx, run); err != nil {
		return nil, err
	}
	if err := storage.SetCounter(ctx, tx, storage.RegNextRunID, runID+1); err != nil {
		return nil, err
	}

	if err := prependCapped(ctx, tx, runID, wallet); err != nil {
		return nil, err
	}

	newBest := in.Completed && in.TimeMS < tp.BestTimeMS
	if newBest {
		tp.BestTimeMS = in.TimeMS
	}
	if in.Score > tp.BestScore {
		tp.BestScore = in.Score
	}
	tp.Username = player.Username
	tp.TotalRuns++
	tp.TotalXPEarned += xp
	tp.LastRunAt = now
	if err := storage.PutTournamentPlayer(ctx, tx, tp); err != nil {
		return nil, err
	}

	player.TotalXP += xp
	player.TotalRuns++
	player.LastActive = now
	if newParticipant {
		player.TournamentsPlayed++
	}
	if in.Completed && in.TimeMS < player.BestTimeMS {
		player.BestTimeMS = in.TimeMS
	}
	if err := storage.PutPlayer(ctx, tx, player); err != nil {
		return nil, err
	}

	t.TotalRuns++
	if newParticipant {
		t.ParticipantCount++
	}
	if err := storage.PutTournament(ctx, tx, t); err != nil {
		return nil, err
	}

	rank, err := updateLeaderboard(ctx, tx, t.ID, tp)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{RunID: runID, XPEarned: xp, NewBest: newBest, Rank: rank}, nil
}

// prependCapped pushes the run id onto the global recent ring and the
// submitter's own run index, truncating both to their caps.
func prependCapped(ctx context.Context, tx storage.Tx, runID uint64, wallet model.Wallet) error {
	recent, err := storage.GetRecentRunIDs(ctx, tx)
	if err != nil {
		return err
	}
	recent = append([]uint64{runID}, recent...)
	if len(recent) > RecentRunsCap {
		recent = recent[:RecentRunsCap]
	}
	if err := storage.SetRecentRunIDs(ctx, tx, recent); err != nil {
		return err
	}

	mine, err := storage.GetPlayerRunIDs(ctx, tx, wallet)
	if err != nil {
		return err
	}
	mine = append([]uint64{runID}, mine...)
	if len(mine) > PlayerRunIndexCap {
		mine = mine[:PlayerRunIndexCap]
	}
	return storage.PutPlayerRunIDs(ctx, tx, wallet, mine)
}

// updateLeaderboard merges the participant's current aggregate into the
// board. Wallets with no completed run stay off the board entirely and
// report rank 0.
func updateLeaderboard(ctx context.Context, tx storage.Tx, tid uint64, tp *model.TournamentPlayer) (uint32, error) {
	if tp.BestTimeMS == model.NoTime {
		return 0, nil
	}
	board, err := storage.GetLeaderboard(ctx, tx, tid)
	if err != nil {
		return 0, err
	}
	board, rank := applyToBoard(board, model.LeaderboardEntry{
		Wallet:     tp.Wallet,
		Username:   tp.Username,
		BestTimeMS: tp.BestTimeMS,
		BestScore:  tp.BestScore,
		TotalRuns:  tp.TotalRuns,
		TotalXP:    tp.TotalXPEarned,
	}, LeaderboardSize)
	if err := storage.PutLeaderboard(ctx, tx, tid, board); err != nil {
		return 0, err
	}
	return rank, nil
}
