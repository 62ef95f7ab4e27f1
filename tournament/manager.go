package tournament

import (
	"context"
	"fmt"
	"log/slog"

	"labyrinth-server/model"
	"labyrinth-server/operrors"
	"labyrinth-server/storage"
)

// MicrosPerDay converts duration_days to timestamp microseconds.
const MicrosPerDay = 86_400 * 1_000_000

// prizePercents is the fixed share of the pool for ranks 1..5. Integer
// truncation and missing ranks leave a remainder that stays with the
// system; it is never redistributed.
var prizePercents = [5]uint64{40, 25, 15, 12, 8}

// BootstrapParams configures the default championship created on first start.
type BootstrapParams struct {
	Title        string
	Description  string
	Difficulty   model.Difficulty
	DurationDays uint64
	XPRewardPool uint64
}

// Bootstrap idempotently creates tournament #1. A re-entry that observes an
// existing tournament #1 re-publishes it as the active tournament (when it
// is still active) without touching its content.
func Bootstrap(ctx context.Context, tx storage.Tx, params BootstrapParams, now model.Timestamp) (*model.Tournament, bool, error) {
	existing, err := storage.GetTournament(ctx, tx, 1)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.Status == model.StatusActive {
			if err := storage.SetCounter(ctx, tx, storage.RegActiveTournament, existing.ID); err != nil {
				return nil, false, err
			}
		}
		return existing, true, nil
	}

	t := &model.Tournament{
		ID:           1,
		Title:        params.Title,
		Description:  params.Description,
		MazeSeed:     fmt.Sprintf("labyrinth_legends_%d", uint64(now)/1_000_000),
		Difficulty:   params.Difficulty,
		StartTime:    now,
		EndTime:      now + model.Timestamp(params.DurationDays*MicrosPerDay),
		Status:       model.StatusActive,
		XPRewardPool: params.XPRewardPool,
		CreatedAt:    now,
	}
	if err := storage.PutTournament(ctx, tx, t); err != nil {
		return nil, false, err
	}
	if err := storage.PutLeaderboard(ctx, tx, t.ID, nil); err != nil {
		return nil, false, err
	}
	if err := storage.SetCounter(ctx, tx, storage.RegActiveTournament, t.ID); err != nil {
		return nil, false, err
	}
	if err := storage.SetCounter(ctx, tx, storage.RegNextTournamentID, 2); err != nil {
		return nil, false, err
	}
	if next, err := storage.GetCounter(ctx, tx, storage.RegNextRunID); err != nil {
		return nil, false, err
	} else if next == 0 {
		if err := storage.SetCounter(ctx, tx, storage.RegNextRunID, 1); err != nil {
			return nil, false, err
		}
	}
	slog.Info("bootstrapped default tournament", "tag", "tournament", "end_time", t.EndTime)
	return t, false, nil
}

// CreateInput is the payload for creating a tournament.
type CreateInput struct {
	Title                string
	Description          string
	MazeSeed             string
	Difficulty           model.Difficulty
	DurationDays         uint64
	XPRewardPool         uint64
	MaxAttemptsPerPlayer uint32
}

// Create allocates the next tournament id and opens a new active tournament
// starting now.
func Create(ctx context.Context, tx storage.Tx, in CreateInput, now model.Timestamp) (*model.Tournament, error) {
	if in.DurationDays == 0 {
		return nil, operrors.ErrInvalidDuration
	}
	id, err := storage.GetCounter(ctx, tx, storage.RegNextTournamentID)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		id = 1
	}
	t := &model.Tournament{
		ID:                   id,
		Title:                in.Title,
		Description:          in.Description,
		MazeSeed:             in.MazeSeed,
		Difficulty:           in.Difficulty,
		StartTime:            now,
		EndTime:              now + model.Timestamp(in.DurationDays*MicrosPerDay),
		Status:               model.StatusActive,
		MaxAttemptsPerPlayer: in.MaxAttemptsPerPlayer,
		XPRewardPool:         in.XPRewardPool,
		CreatedAt:            now,
	}
	if t.EndTime <= t.StartTime {
		return nil, operrors.ErrInvalidTimes
	}
	if err := storage.PutTournament(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := storage.PutLeaderboard(ctx, tx, t.ID, nil); err != nil {
		return nil, err
	}
	if err := storage.SetCounter(ctx, tx, storage.RegNextTournamentID, id+1); err != nil {
		return nil, err
	}
	// Adopt the new tournament as the active one only if no other is.
	active, err := storage.GetCounter(ctx, tx, storage.RegActiveTournament)
	if err != nil {
		return nil, err
	}
	if active == 0 {
		if err := storage.SetCounter(ctx, tx, storage.RegActiveTournament, t.ID); err != nil {
			return nil, err
		}
	}
	slog.Info("tournament created", "tag", "tournament", "id", t.ID, "title", t.Title)
	return t, nil
}

// End finalizes a tournament whose end time has passed: freezes the board,
// distributes the prize pool over the top five ranks and returns the number
// of rewarded players. Ending is permissionless.
func End(ctx context.Context, tx storage.Tx, tid uint64, now model.Timestamp) (uint32, error) {
	t, err := storage.GetTournament(ctx, tx, tid)
	if err != nil {
		return 0, err
	}
	if t == nil {
		return 0, operrors.ErrTournamentNotFound
	}
	if t.Status == model.StatusEnded {
		return 0, operrors.ErrAlreadyEnded
	}
	if now < t.EndTime {
		return 0, operrors.ErrNotYetDue
	}

	t.Status = model.StatusEnded
	if err := storage.PutTournament(ctx, tx, t); err != nil {
		return 0, err
	}
	active, err := storage.GetCounter(ctx, tx, storage.RegActiveTournament)
	if err != nil {
		return 0, err
	}
	if active == tid {
		if err := storage.SetCounter(ctx, tx, storage.RegActiveTournament, 0); err != nil {
			return 0, err
		}
	}

	winners, err := distributeRewards(ctx, tx, t)
	if err != nil {
		return 0, err
	}
	slog.Info("tournament ended", "tag", "tournament", "id", tid, "winners", winners)
	return winners, nil
}

// distributeRewards pays the top five board entries from the pool. XP is
// credited to the winners' profiles immediately; the reward row only tracks
// the claim flag for the UI.
func distributeRewards(ctx context.Context, tx storage.Tx, t *model.Tournament) (uint32, error) {
	board, err := storage.GetLeaderboard(ctx, tx, t.ID)
	if err != nil {
		return 0, err
	}
	var winners uint32
	for i, entry := range board {
		if i >= len(prizePercents) {
			break
		}
		amount := t.XPRewardPool * prizePercents[i] / 100
		reward := &model.TournamentReward{
			TournamentID: t.ID,
			Wallet:       entry.Wallet,
			Rank:         entry.Rank,
			XPAmount:     amount,
			Claimed:      false,
		}
		if err := storage.PutReward(ctx, tx, reward); err != nil {
			return 0, err
		}
		player, err := storage.GetPlayer(ctx, tx, entry.Wallet)
		if err != nil {
			return 0, err
		}
		if player != nil {
			player.TotalXP += amount
			if entry.Rank == 1 {
				player.TournamentsWon++
			}
			if err := storage.PutPlayer(ctx, tx, player); err != nil {
				return 0, err
			}
		}
		winners++
	}
	return winners, nil
}

// Claim flips a reward's claimed flag and returns the amount. The XP was
// already credited at distribution time.
func Claim(ctx context.Context, tx storage.Tx, wallet model.Wallet, tid uint64) (uint64, error) {
	reward, err := storage.GetReward(ctx, tx, tid, wallet)
	if err != nil {
		return 0, err
	}
	if reward == nil {
		return 0, operrors.ErrNoReward
	}
	if reward.Claimed {
		return 0, operrors.ErrAlreadyClaimed
	}
	reward.Claimed = true
	if err := storage.PutReward(ctx, tx, reward); err != nil {
		return 0, err
	}
	return reward.XPAmount, nil
}
