package model

import "testing"

func TestCalculateXP(t *testing.T) {
	tests := []struct {
		name       string
		difficulty Difficulty
		timeMS     uint64
		deaths     uint32
		completed  bool
		want       uint64
	}{
		{"medium fast clean completion", DifficultyMedium, 60_000, 0, true, 250},
		{"hard slow completion with capped deaths", DifficultyHard, 180_000, 10, true, 125},
		{"easy abandoned run", DifficultyEasy, 500_000, 0, false, 75},
		{"easy abandoned run with deaths", DifficultyEasy, 500_000, 6, false, 37},
		{"nightmare instant completion", DifficultyNightmare, 0, 0, true, 450},
		{"medium completion exactly at 120s gets no time bonus", DifficultyMedium, 120_000, 0, true, 200},
		{"medium completion just under 120s", DifficultyMedium, 119_999, 0, true, 200}, // 119_999ms -> 119s -> bonus 100*1/120 = 0
		{"time bonus ignored when not completed", DifficultyMedium, 30_000, 0, false, 100},
		{"single death costs ten percent", DifficultyMedium, 200_000, 1, true, 180},
		{"five deaths hit the penalty cap", DifficultyMedium, 200_000, 5, true, 100},
		{"many deaths do not exceed the cap", DifficultyMedium, 200_000, 1000, true, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateXP(tt.difficulty, tt.timeMS, tt.deaths, tt.completed)
			if got != tt.want {
				t.Errorf("CalculateXP(%v, %d, %d, %v) = %d, want %d",
					tt.difficulty, tt.timeMS, tt.deaths, tt.completed, got, tt.want)
			}
		})
	}
}

func TestCalculateXPFloor(t *testing.T) {
	// Even a worthless run pays out the minimum.
	got := CalculateXP(DifficultyEasy, 999_999_999, 50, false)
	if got < 10 {
		t.Errorf("expected floor of 10, got %d", got)
	}
}

func TestBaseXPPerDifficulty(t *testing.T) {
	cases := map[Difficulty]uint64{
		DifficultyEasy:      75,
		DifficultyMedium:    100,
		DifficultyHard:      125,
		DifficultyNightmare: 150,
	}
	for d, want := range cases {
		if got := d.BaseXP(); got != want {
			t.Errorf("%s base XP = %d, want %d", d, got, want)
		}
	}
}
