package model

const (
	// minRunXP is the floor awarded for any run, however bad.
	minRunXP = 10

	// fastRunSecs is the completion time under which a time bonus accrues.
	fastRunSecs = 120

	// deathPenaltyPerDeath and deathPenaltyCap bound the multiplier loss.
	deathPenaltyPerDeath = 10
	deathPenaltyCap      = 50
)

// BaseXP returns the base award for a run at this difficulty.
func (d Difficulty) BaseXP() uint64 {
	switch d {
	case DifficultyEasy:
		return 75
	case DifficultyHard:
		return 125
	case DifficultyNightmare:
		return 150
	default:
		return 100
	}
}

// CalculateXP computes the XP award for one run. Integer arithmetic
// throughout, truncating division, never less than minRunXP.
//
// award = (base + completion_bonus + time_bonus) * (100 - death_penalty) / 100
//
// where completion_bonus = base on a completed run, time_bonus scales
// linearly for completed runs faster than fastRunSecs, and death_penalty
// is deathPenaltyPerDeath per death capped at deathPenaltyCap.
func CalculateXP(d Difficulty, timeMS uint64, deaths uint32, completed bool) uint64 {
	base := d.BaseXP()

	var completionBonus uint64
	if completed {
		completionBonus = base
	}

	var timeBonus uint64
	if timeSecs := timeMS / 1000; completed && timeSecs < fastRunSecs {
		timeBonus = base * (fastRunSecs - timeSecs) / fastRunSecs
	}

	penalty := uint64(deaths) * deathPenaltyPerDeath
	if penalty > deathPenaltyCap {
		penalty = deathPenaltyCap
	}

	xp := (base + completionBonus + timeBonus) * (100 - penalty) / 100
	if xp < minRunXP {
		return minRunXP
	}
	return xp
}
