package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/streakd/internal/cli"
	"github.com/julianstephens/streakd/internal/models"
	"github.com/julianstephens/streakd/internal/notifier"
)

// TickCmd runs a single scheduling pass, or with --dry-run only lists what
// a pass would deliver.
type TickCmd struct {
	At     string `help:"Instant to evaluate, RFC 3339 (default: now)." default:""`
	DryRun bool   `help:"List due reminders without claiming or delivering them."`
}

func (c *TickCmd) Run(ctx *cli.Context) error {
	now := time.Now()
	if ctx.Now != nil {
		now = ctx.Now()
	}
	if c.At != "" {
		t, err := time.Parse(time.RFC3339, c.At)
		if err != nil {
			return fmt.Errorf("invalid --at %q (expected RFC 3339): %w", c.At, err)
		}
		now = t
	}

	bg := context.Background()
	p, err := build(bg, ctx, c.DryRun)
	if err != nil {
		return err
	}
	defer p.Close()

	if c.DryRun {
		cands, err := p.runner.Plan(bg, now)
		if err != nil {
			return err
		}
		printCandidates(cands)
		return nil
	}

	rep, err := p.runner.Tick(bg, now)
	if err != nil {
		return err
	}
	printReport(rep)
	return nil
}

func printCandidates(cands []models.Candidate) {
	if len(cands) == 0 {
		fmt.Println("No reminders due.")
		return
	}
	rows := make([][]string, 0, len(cands))
	for _, cand := range cands {
		text := strings.ReplaceAll(notifier.Render(cand.Key.Kind, cand.Payload), "\n", " ")
		if r := []rune(text); len(r) > 60 {
			text = string(r[:57]) + "..."
		}
		rows = append(rows, []string{
			cand.User.Name,
			string(cand.Key.Kind),
			cand.Key.Day,
			cand.Payload.LocalTime,
			string(cand.Payload.Escalation),
			text,
		})
	}
	cli.PrintTable([]string{"User", "Kind", "Day", "Local", "Escalation", "Message"}, rows, nil)
}
