package models

// HabitSnapshot is the per-habit view carried in reminder payloads.
type HabitSnapshot struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
	Completed     bool   `json:"completed"`
}

type Escalation string

const (
	EscalationNone     Escalation = "none"
	EscalationNudge    Escalation = "nudge"
	EscalationUrgent   Escalation = "urgent"
	EscalationLastCall Escalation = "last_call"
)

// DayTally is one row of the weekly summary.
type DayTally struct {
	Day  string `json:"day"`
	Due  int    `json:"due"`
	Done int    `json:"done"`
}

// Payload bundles the derived state a delivery channel needs to render a
// reminder. The engine never formats text itself.
type Payload struct {
	Day             string          `json:"day"`
	LocalTime       string          `json:"local_time"`
	PendingHabits   []HabitSnapshot `json:"pending_habits"`
	DueCount        int             `json:"due_count"`
	DoneCount       int             `json:"done_count"`
	Habits          []HabitSnapshot `json:"habits,omitempty"`
	GlobalStreak    int             `json:"global_streak"`
	XP              int             `json:"xp"`
	Level           int             `json:"level"`
	LevelTitle      string          `json:"level_title"`
	Escalation      Escalation      `json:"escalation"`
	StreakAtRisk    bool            `json:"streak_at_risk,omitempty"`
	Week            []DayTally      `json:"week,omitempty"`
	LinkedRoutineID string          `json:"linked_routine_id,omitempty"`
	Message         string          `json:"message,omitempty"`
}

// Candidate is one reminder instance the scheduler wants delivered.
type Candidate struct {
	User    User     `json:"user"`
	Key     ClaimKey `json:"key"`
	Payload Payload  `json:"payload"`
}
