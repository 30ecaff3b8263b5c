package gamification

// MaxLevel bounds the threshold table.
const MaxLevel = 100

// thresholds[i] is the cumulative XP needed for level i+1. Moving from
// level n to n+1 costs n*100 XP.
var thresholds = func() []int {
	t := make([]int, MaxLevel)
	for i := range t {
		n := i + 1
		t[i] = 100 * n * (n - 1) / 2
	}
	return t
}()

var titles = []struct {
	level int
	title string
}{
	{50, "Immortal"},
	{40, "Myth"},
	{30, "Legend"},
	{25, "Grand Master"},
	{20, "Master"},
	{15, "Expert"},
	{10, "Veteran"},
	{7, "Disciplined"},
	{5, "Steady"},
	{3, "Initiate"},
	{2, "Apprentice"},
	{1, "Novice"},
}

// Threshold returns the cumulative XP at which level is reached.
func Threshold(level int) int {
	if level < 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return thresholds[level-1]
}

// LevelFor counts the thresholds at or below xp.
func LevelFor(xp int) int {
	level := 0
	for _, t := range thresholds {
		if t > xp {
			break
		}
		level++
	}
	return max(level, 1)
}

// Title returns the display title for a level.
func Title(level int) string {
	for _, t := range titles {
		if level >= t.level {
			return t.title
		}
	}
	return titles[len(titles)-1].title
}

// Progress reports XP earned within the current level and XP still needed
// for the next one.
func Progress(xp int) (into, remaining int) {
	level := LevelFor(xp)
	into = xp - Threshold(level)
	if level >= MaxLevel {
		return into, 0
	}
	return into, Threshold(level+1) - xp
}
