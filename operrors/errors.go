package operrors

import "errors"

// Operation sentinel errors. Used by the tournament, engine and api packages
// to avoid circular imports. Every failed operation surfaces exactly one of
// these; none of them leaves partial state behind.
var (
	ErrNotAuthenticated    = errors.New("caller is not authenticated")
	ErrNotRegistered       = errors.New("player is not registered")
	ErrUsernameTaken       = errors.New("username is already taken")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTournamentNotActive = errors.New("tournament is not accepting runs")
	ErrNotYetDue           = errors.New("tournament has not reached its end time")
	ErrAlreadyEnded        = errors.New("tournament already ended")
	ErrMaxAttemptsReached  = errors.New("maximum attempts reached for this tournament")
	ErrNoReward            = errors.New("no reward for this tournament")
	ErrAlreadyClaimed      = errors.New("reward already claimed")
	ErrInvalidDuration     = errors.New("tournament duration must be at least one day")
	ErrInvalidTimes        = errors.New("tournament end time must be after its start time")
	ErrUnknownOperation    = errors.New("unknown operation")
)
