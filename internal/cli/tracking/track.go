package tracking

import (
	"context"
	"fmt"

	"github.com/julianstephens/streakd/internal/activity"
	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/models"
)

// TrackCmd records a mood, water, sleep or similar entry.
type TrackCmd struct {
	User     string  `required:"" help:"User ID."`
	Kind     string  `arg:"" enum:"mood,water,sleep,journal,pomodoro,exercise,gratitude" help:"What was tracked."`
	Quantity float64 `arg:"" optional:"" help:"Amount (glasses of water, hours of sleep, mood score)." default:"0"`
	Date     string  `help:"Date in YYYY-MM-DD format (default: today in the user's timezone)." default:""`
	Source   string  `help:"Idempotency key; repeating an entry with the same key grants nothing." default:""`
}

var trackKinds = map[string]models.TrackingKind{
	"mood":      models.EventMoodLogged,
	"water":     models.EventWaterLogged,
	"sleep":     models.EventSleepLogged,
	"journal":   models.EventJournalEntry,
	"pomodoro":  models.EventPomodoroCompleted,
	"exercise":  models.EventExerciseLogged,
	"gratitude": models.EventGratitudeEntry,
}

func (c *TrackCmd) Run(ctx *cli.Context) error {
	kind, ok := trackKinds[c.Kind]
	if !ok {
		return fmt.Errorf("unknown tracking kind %q", c.Kind)
	}
	res, err := ctx.Activity().RecordTracking(context.Background(), activity.TrackingEntry{
		UserID:   c.User,
		Kind:     kind,
		Day:      c.Date,
		Quantity: c.Quantity,
		SourceID: c.Source,
	})
	if err != nil {
		return err
	}
	if res.XPDelta == 0 {
		fmt.Printf("Recorded %s (no XP)\n", c.Kind)
		return nil
	}
	fmt.Printf("Recorded %s: +%d XP (total %d, level %d %s)\n", c.Kind, res.XPDelta, res.XP, res.Level, res.LevelTitle)
	for _, a := range res.Unlocked {
		fmt.Printf("  Achievement unlocked: %s (+%d XP)\n", a.Name, a.XPReward)
	}
	return nil
}
