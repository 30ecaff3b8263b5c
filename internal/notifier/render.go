package notifier

import (
	"fmt"
	"strings"

	"github.com/julianstephens/streakd/internal/models"
)

const maxListed = 5

// Render formats a payload as plain text for channels that only carry a
// string, such as the tray.
func Render(kind models.ReminderKind, p models.Payload) string {
	var b strings.Builder
	switch kind {
	case models.ReminderMorning:
		fmt.Fprintf(&b, "Good morning! %d habits today. Streak: %d days.", p.DueCount, p.GlobalStreak)
		listHabits(&b, p.PendingHabits)
	case models.ReminderMidday:
		if p.DueCount > 0 && p.DoneCount == p.DueCount {
			b.WriteString("Everything is done already. Impressive.")
			break
		}
		fmt.Fprintf(&b, "Midday check: %d/%d done, %d to go.", p.DoneCount, p.DueCount, len(p.PendingHabits))
		listHabits(&b, p.PendingHabits)
	case models.ReminderEvening, models.ReminderNight:
		if kind == models.ReminderNight {
			b.WriteString("Last call! ")
		} else {
			b.WriteString("The day is not over. ")
		}
		fmt.Fprintf(&b, "%d habits left.", len(p.PendingHabits))
		listHabits(&b, p.PendingHabits)
		if p.StreakAtRisk {
			fmt.Fprintf(&b, "\nYour %d day streak is at stake.", p.GlobalStreak)
		}
	case models.ReminderSummary:
		fmt.Fprintf(&b, "Daily summary: %d/%d habits.", p.DoneCount, p.DueCount)
		for _, h := range p.Habits {
			mark := "[ ]"
			if h.Completed {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "\n  %s %s", mark, h.Name)
		}
	case models.ReminderWeeklySummary:
		due, done := 0, 0
		for _, d := range p.Week {
			due += d.Due
			done += d.Done
		}
		fmt.Fprintf(&b, "Weekly summary: %d/%d. Streak: %d days. Level %d (%s), %d XP.",
			done, due, p.GlobalStreak, p.Level, p.LevelTitle, p.XP)
	case models.ReminderRoutine:
		fmt.Fprintf(&b, "Time for your routine %s.", p.LinkedRoutineID)
	case models.ReminderCustom:
		b.WriteString(p.Message)
	default:
		fmt.Fprintf(&b, "%s reminder", kind)
	}
	return b.String()
}

func listHabits(b *strings.Builder, habits []models.HabitSnapshot) {
	for i, h := range habits {
		if i == maxListed {
			fmt.Fprintf(b, "\n  ...and %d more", len(habits)-maxListed)
			return
		}
		fmt.Fprintf(b, "\n  - %s", h.Name)
	}
}
