package gamification

import (
	"math"

	"github.com/julianstephens/streakd/internal/models"
)

// Reward is the XP granted for one event kind. PerUnit scales with the
// event quantity and is capped at Cap when Cap is positive.
type Reward struct {
	Base    int
	PerUnit int
	Cap     int
}

// Rewards is the static reward table.
var Rewards = map[models.EventKind]Reward{
	models.EventHabitCompleted:     {Base: 10},
	models.EventAllHabitsCompleted: {Base: 25},
	models.EventRoutineCompleted:   {Base: 15},
	models.EventJournalEntry:       {Base: 10},
	models.EventGratitudeEntry:     {Base: 10},
	models.EventMoodLogged:         {Base: 5},
	models.EventSleepLogged:        {Base: 5},
	models.EventWaterLogged:        {PerUnit: 1, Cap: 8},
	models.EventExerciseLogged:     {Base: 15},
	models.EventPomodoroCompleted:  {Base: 10},
}

// maxUnits bounds uncapped per-unit rewards.
const maxUnits = math.MaxInt32

// XP returns the reward for an event of the given quantity. The per-unit
// part is computed in floating point and clamped before conversion.
func (r Reward) XP(quantity float64) int {
	xp := r.Base
	if r.PerUnit > 0 && quantity > 0 {
		units := math.Floor(quantity) * float64(r.PerUnit)
		if r.Cap > 0 {
			units = min(units, float64(r.Cap))
		}
		xp += int(min(units, maxUnits))
	}
	return xp
}

var multipliers = []struct {
	streak int
	factor float64
}{
	{100, 3.0},
	{60, 2.5},
	{30, 2.0},
	{14, 1.75},
	{7, 1.5},
}

// StreakMultiplier returns the XP factor for habit completions at the given
// streak length.
func StreakMultiplier(streak int) float64 {
	for _, m := range multipliers {
		if streak >= m.streak {
			return m.factor
		}
	}
	return 1.0
}
