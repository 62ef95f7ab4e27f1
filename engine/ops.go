package engine

import (
	"labyrinth-server/model"
)

// Operation is one state-changing request. Operations enter the engine's
// queue and are applied strictly one at a time.
type Operation interface {
	isOperation()
}

type RegisterPlayer struct {
	Wallet   model.Wallet `json:"wallet_address"`
	Username string       `json:"username"`
}

type UpdateProfile struct {
	Username string `json:"username"`
}

type SubmitRun struct {
	TournamentID   uint64 `json:"tournament_id"`
	TimeMS         uint64 `json:"time_ms"`
	Score          uint64 `json:"score"`
	CoinsCollected uint32 `json:"coins"`
	Deaths         uint32 `json:"deaths"`
	Completed      bool   `json:"completed"`
}

type CreateTournament struct {
	Title                string           `json:"title"`
	Description          string           `json:"description"`
	MazeSeed             string           `json:"maze_seed"`
	Difficulty           model.Difficulty `json:"difficulty"`
	DurationDays         uint64           `json:"duration_days"`
	XPRewardPool         uint64           `json:"xp_reward_pool"`
	MaxAttemptsPerPlayer uint32           `json:"max_attempts_per_player"`
}

type EndTournament struct {
	TournamentID uint64 `json:"tournament_id"`
}

type ClaimReward struct {
	TournamentID uint64 `json:"tournament_id"`
}

type BootstrapTournament struct{}

func (RegisterPlayer) isOperation()      {}
func (UpdateProfile) isOperation()       {}
func (SubmitRun) isOperation()           {}
func (CreateTournament) isOperation()    {}
func (EndTournament) isOperation()       {}
func (ClaimReward) isOperation()         {}
func (BootstrapTournament) isOperation() {}

// Response is the success payload returned to the submitting caller.
type Response interface {
	isResponse()
}

type PlayerRegistered struct {
	Wallet model.Wallet `json:"wallet_address"`
}

type ProfileUpdated struct {
	Wallet model.Wallet `json:"wallet_address"`
}

type RunSubmitted struct {
	RunID    uint64 `json:"run_id"`
	XPEarned uint64 `json:"xp_earned"`
	NewBest  bool   `json:"new_best"`
	Rank     uint32 `json:"rank"`
}

type TournamentCreated struct {
	ID       uint64          `json:"id"`
	MazeSeed string          `json:"maze_seed"`
	EndTime  model.Timestamp `json:"end_time"`
}

type TournamentEnded struct {
	ID          uint64 `json:"id"`
	WinnerCount uint32 `json:"winner_count"`
}

type RewardClaimed struct {
	TournamentID uint64 `json:"tournament_id"`
	XPAmount     uint64 `json:"xp_amount"`
}

type TournamentBootstrapped struct {
	ID             uint64          `json:"id"`
	EndTime        model.Timestamp `json:"end_time"`
	AlreadyExisted bool            `json:"already_existed"`
}

func (PlayerRegistered) isResponse()       {}
func (ProfileUpdated) isResponse()         {}
func (RunSubmitted) isResponse()           {}
func (TournamentCreated) isResponse()      {}
func (TournamentEnded) isResponse()        {}
func (RewardClaimed) isResponse()          {}
func (TournamentBootstrapped) isResponse() {}

// Event describes a committed state change for feed subscribers. Only
// successful operations emit events.
type Event struct {
	Type         string                   `json:"type"`
	TournamentID uint64                   `json:"tournament_id,omitempty"`
	Run          *model.GameRun           `json:"run,omitempty"`
	Tournament   *model.Tournament        `json:"tournament,omitempty"`
	Leaderboard  []model.LeaderboardEntry `json:"leaderboard,omitempty"`
	WinnerCount  uint32                   `json:"winner_count,omitempty"`
}

const (
	EventRunSubmitted      = "run_submitted"
	EventTournamentCreated = "tournament_created"
	EventTournamentEnded   = "tournament_ended"
)

// Publisher receives events after their operation commits.
type Publisher interface {
	Publish(Event)
}
