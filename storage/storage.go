// Package storage persists all tournament state behind a small transactional
// key/value interface. Values are JSON-encoded domain records grouped into
// buckets; one transaction spans exactly one operation and commits or rolls
// back as a whole. Reads within a transaction observe that transaction's
// own writes.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"labyrinth-server/model"
)

// Bucket names. Registers hold single-value slots (counters, the active
// tournament handle, the recent-run ring); the rest are keyed maps.
const (
	BucketRegisters         = "registers"
	BucketTournaments       = "tournaments"
	BucketPlayers           = "players"
	BucketRuns              = "runs"
	BucketTournamentPlayers = "tournament_players"
	BucketLeaderboards      = "leaderboards"
	BucketRewards           = "rewards"
	BucketUsernames         = "usernames"
	BucketSigners           = "signers"
	BucketPlayerRuns        = "player_runs"
)

// Register keys within BucketRegisters.
const (
	RegNextTournamentID = "next_tournament_id"
	RegNextRunID        = "next_run_id"
	RegActiveTournament = "active_tournament_id"
	RegRecentRunIDs     = "recent_run_ids"
	RegPlayerCount      = "player_count"
)

// Tx is one transactional view of the store. Writes become visible to
// subsequent Gets on the same Tx immediately and to other readers only
// after Commit. A Tx must end with exactly one Commit or Rollback.
type Tx interface {
	// Get returns the stored value, or nil if the key is absent.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, value []byte) error
	Delete(ctx context.Context, bucket, key string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens transactions over the persisted state.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Close()
}

func tournamentKey(id uint64) string { return strconv.FormatUint(id, 10) }
func runKey(id uint64) string        { return strconv.FormatUint(id, 10) }

func tournamentPlayerKey(tid uint64, wallet model.Wallet) string {
	return fmt.Sprintf("%d/%s", tid, wallet.Hex())
}

func rewardKey(tid uint64, wallet model.Wallet) string {
	return fmt.Sprintf("%d/%s", tid, wallet.Hex())
}

func getJSON[T any](ctx context.Context, tx Tx, bucket, key string) (*T, error) {
	raw, err := tx.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", bucket, key, err)
	}
	return &v, nil
}

func putJSON(ctx context.Context, tx Tx, bucket, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucket, key, err)
	}
	return tx.Put(ctx, bucket, key, raw)
}

// --- registers ---

// GetCounter reads a uint64 register; absent registers read as 0.
func GetCounter(ctx context.Context, tx Tx, key string) (uint64, error) {
	v, err := getJSON[uint64](ctx, tx, BucketRegisters, key)
	if err != nil || v == nil {
		return 0, err
	}
	return *v, nil
}

func SetCounter(ctx context.Context, tx Tx, key string, value uint64) error {
	return putJSON(ctx, tx, BucketRegisters, key, value)
}

// GetRecentRunIDs returns the newest-first ring of recent run ids.
func GetRecentRunIDs(ctx context.Context, tx Tx) ([]uint64, error) {
	v, err := getJSON[[]uint64](ctx, tx, BucketRegisters, RegRecentRunIDs)
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func SetRecentRunIDs(ctx context.Context, tx Tx, ids []uint64) error {
	return putJSON(ctx, tx, BucketRegisters, RegRecentRunIDs, ids)
}

// --- tournaments ---

// GetTournament returns the tournament, or (nil, nil) if not found.
func GetTournament(ctx context.Context, tx Tx, id uint64) (*model.Tournament, error) {
	return getJSON[model.Tournament](ctx, tx, BucketTournaments, tournamentKey(id))
}

func PutTournament(ctx context.Context, tx Tx, t *model.Tournament) error {
	return putJSON(ctx, tx, BucketTournaments, tournamentKey(t.ID), t)
}

// --- players ---

// GetPlayer returns the player, or (nil, nil) if not found.
func GetPlayer(ctx context.Context, tx Tx, wallet model.Wallet) (*model.Player, error) {
	return getJSON[model.Player](ctx, tx, BucketPlayers, wallet.Hex())
}

func PutPlayer(ctx context.Context, tx Tx, p *model.Player) error {
	return putJSON(ctx, tx, BucketPlayers, p.Wallet.Hex(), p)
}

// --- runs ---

// GetRun returns the run, or (nil, nil) if not found.
func GetRun(ctx context.Context, tx Tx, id uint64) (*model.GameRun, error) {
	return getJSON[model.GameRun](ctx, tx, BucketRuns, runKey(id))
}

// PutRun inserts a run. Runs are append-only; callers never overwrite.
func PutRun(ctx context.Context, tx Tx, r *model.GameRun) error {
	return putJSON(ctx, tx, BucketRuns, runKey(r.ID), r)
}

// --- tournament players ---

func GetTournamentPlayer(ctx context.Context, tx Tx, tid uint64, wallet model.Wallet) (*model.TournamentPlayer, error) {
	return getJSON[model.TournamentPlayer](ctx, tx, BucketTournamentPlayers, tournamentPlayerKey(tid, wallet))
}

func PutTournamentPlayer(ctx context.Context, tx Tx, tp *model.TournamentPlayer) error {
	return putJSON(ctx, tx, BucketTournamentPlayers, tournamentPlayerKey(tp.TournamentID, tp.Wallet), tp)
}

// --- leaderboards ---

// GetLeaderboard returns the stored board for the tournament; an absent
// board reads as empty.
func GetLeaderboard(ctx context.Context, tx Tx, tid uint64) ([]model.LeaderboardEntry, error) {
	v, err := getJSON[[]model.LeaderboardEntry](ctx, tx, BucketLeaderboards, tournamentKey(tid))
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func PutLeaderboard(ctx context.Context, tx Tx, tid uint64, entries []model.LeaderboardEntry) error {
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	return putJSON(ctx, tx, BucketLeaderboards, tournamentKey(tid), entries)
}

// --- rewards ---

func GetReward(ctx context.Context, tx Tx, tid uint64, wallet model.Wallet) (*model.TournamentReward, error) {
	return getJSON[model.TournamentReward](ctx, tx, BucketRewards, rewardKey(tid, wallet))
}

func PutReward(ctx context.Context, tx Tx, r *model.TournamentReward) error {
	return putJSON(ctx, tx, BucketRewards, rewardKey(r.TournamentID, r.Wallet), r)
}

// --- username index ---

// GetWalletForUsername returns the wallet owning the username, or (nil, nil).
func GetWalletForUsername(ctx context.Context, tx Tx, username string) (*model.Wallet, error) {
	return getJSON[model.Wallet](ctx, tx, BucketUsernames, username)
}

func PutUsernameIndex(ctx context.Context, tx Tx, username string, wallet model.Wallet) error {
	return putJSON(ctx, tx, BucketUsernames, username, wallet)
}

func DeleteUsernameIndex(ctx context.Context, tx Tx, username string) error {
	return tx.Delete(ctx, BucketUsernames, username)
}

// --- signer bindings ---

// GetWalletForSigner returns the wallet bound to the signer token, or (nil, nil).
func GetWalletForSigner(ctx context.Context, tx Tx, signer string) (*model.Wallet, error) {
	return getJSON[model.Wallet](ctx, tx, BucketSigners, signer)
}

func BindSigner(ctx context.Context, tx Tx, signer string, wallet model.Wallet) error {
	return putJSON(ctx, tx, BucketSigners, signer, wallet)
}

// --- per-player run index ---

// GetPlayerRunIDs returns the newest-first run id index for the wallet.
func GetPlayerRunIDs(ctx context.Context, tx Tx, wallet model.Wallet) ([]uint64, error) {
	v, err := getJSON[[]uint64](ctx, tx, BucketPlayerRuns, wallet.Hex())
	if err != nil || v == nil {
		return nil, err
	}
	return *v, nil
}

func PutPlayerRunIDs(ctx context.Context, tx Tx, wallet model.Wallet, ids []uint64) error {
	return putJSON(ctx, tx, BucketPlayerRuns, wallet.Hex(), ids)
}
