// Package model holds the tournament domain entities shared by storage,
// the operation pipeline and the API. All timestamps are microseconds
// since the Unix epoch; all XP and time values are unsigned integers.
package model

import "math"

// Timestamp is microseconds since the Unix epoch.
type Timestamp uint64

// NoTime marks a participant with no completed run yet (best time unset).
const NoTime uint64 = math.MaxUint64

// Difficulty of a tournament's maze. Determines the base XP of a run.
type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyNightmare Difficulty = "nightmare"
)

// ParseDifficulty returns the Difficulty for s, or (medium, false) if s
// is not a known difficulty name.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyNightmare:
		return Difficulty(s), true
	}
	return DifficultyMedium, false
}

// TournamentStatus is the lifecycle state of a tournament.
type TournamentStatus string

const (
	StatusActive TournamentStatus = "active"
	StatusEnded  TournamentStatus = "ended"
)

// Tournament is one time-boxed competition.
type Tournament struct {
	ID                   uint64           `json:"id"`
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	MazeSeed             string           `json:"maze_seed"`
	Difficulty           Difficulty       `json:"difficulty"`
	StartTime            Timestamp        `json:"start_time"`
	EndTime              Timestamp        `json:"end_time"`
	Status               TournamentStatus `json:"status"`
	MaxAttemptsPerPlayer uint32           `json:"max_attempts_per_player"`
	ParticipantCount     uint32           `json:"participant_count"`
	TotalRuns            uint64           `json:"total_runs"`
	XPRewardPool         uint64           `json:"xp_reward_pool"`
	CreatedAt            Timestamp        `json:"created_at"`
}

// IsOpen reports whether the tournament accepts runs at time now.
func (t *Tournament) IsOpen(now Timestamp) bool {
	return t.Status == StatusActive && now >= t.StartTime && now < t.EndTime
}

// Player is the global (cross-tournament) profile of one wallet.
type Player struct {
	Wallet            Wallet    `json:"wallet_address"`
	Username          string    `json:"username"`
	TotalXP           uint64    `json:"total_xp"`
	TotalRuns         uint64    `json:"total_runs"`
	TournamentsPlayed uint32    `json:"tournaments_played"`
	TournamentsWon    uint32    `json:"tournaments_won"`
	BestTimeMS        uint64    `json:"best_time_ms"` // NoTime until the first completed run
	RegisteredAt      Timestamp `json:"registered_at"`
	LastActive        Timestamp `json:"last_active"`
}

// GameRun is one immutable maze attempt.
type GameRun struct {
	ID             uint64    `json:"id"`
	TournamentID   uint64    `json:"tournament_id"`
	Wallet         Wallet    `json:"wallet_address"`
	Username       string    `json:"username"` // snapshot at submission time
	TimeMS         uint64    `json:"time_ms"`
	Score          uint64    `json:"score"`
	CoinsCollected uint32    `json:"coins"`
	Deaths         uint32    `json:"deaths"`
	Completed      bool      `json:"completed"`
	XPEarned       uint64    `json:"xp_earned"`
	CreatedAt      Timestamp `json:"created_at"`
}

// TournamentPlayer is one wallet's per-tournament aggregate row.
type TournamentPlayer struct {
	TournamentID  uint64    `json:"tournament_id"`
	Wallet        Wallet    `json:"wallet_address"`
	Username      string    `json:"username"`
	BestTimeMS    uint64    `json:"best_time_ms"` // NoTime until the first completed run
	BestScore     uint64    `json:"best_score"`
	TotalRuns     uint32    `json:"total_runs"`
	TotalXPEarned uint64    `json:"total_xp_earned"`
	JoinedAt      Timestamp `json:"joined_at"`
	LastRunAt     Timestamp `json:"last_run_at"`
}

// LeaderboardEntry is one row of a tournament's ranked board.
// Rank is 1-based; rank 0 means "not on the board".
type LeaderboardEntry struct {
	Rank       uint32 `json:"rank"`
	Wallet     Wallet `json:"wallet_address"`
	Username   string `json:"username"` // snapshot at the run that set the entry
	BestTimeMS uint64 `json:"best_time_ms"`
	BestScore  uint64 `json:"best_score"`
	TotalRuns  uint32 `json:"total_runs"`
	TotalXP    uint64 `json:"total_xp"`
}

// TournamentReward is a prize owed to one wallet for a finished tournament.
type TournamentReward struct {
	TournamentID uint64 `json:"tournament_id"`
	Wallet       Wallet `json:"wallet_address"`
	Rank         uint32 `json:"rank"`
	XPAmount     uint64 `json:"xp_amount"`
	Claimed      bool   `json:"claimed"`
}

// Stats is the aggregate counters query result.
type Stats struct {
	TotalPlayers      uint64 `json:"total_players"`
	TotalTournaments  uint64 `json:"total_tournaments"`
	TotalRuns         uint64 `json:"total_runs"`
	ActiveTournaments uint64 `json:"active_tournaments"`
}
