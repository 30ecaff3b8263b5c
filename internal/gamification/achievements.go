package gamification

import "github.com/julianstephens/streakd/internal/models"

// Catalogue is the default achievement set.
func Catalogue() []models.Achievement {
	return []models.Achievement{
		streakAchievement("streak_3", "Warming Up", 3, 25),
		streakAchievement("streak_7", "One Week Strong", 7, 50),
		streakAchievement("streak_14", "Fortnight", 14, 100),
		streakAchievement("streak_30", "Monthly Momentum", 30, 200),
		streakAchievement("streak_60", "Two Months Deep", 60, 400),
		streakAchievement("streak_100", "Centurion", 100, 750),
		streakAchievement("streak_365", "Year of Discipline", 365, 2000),

		completionAchievement("first_habit", "First Step", 1, 10),
		completionAchievement("habits_50", "Fifty Done", 50, 50),
		completionAchievement("habits_100", "Hundred Club", 100, 100),
		completionAchievement("habits_500", "Relentless", 500, 300),
		completionAchievement("habits_1000", "Thousand Reps", 1000, 500),

		{
			ID:             "pomodoro_master",
			Name:           "Pomodoro Master",
			Description:    "Complete 50 pomodoros",
			ConditionType:  models.ConditionTrackingCount,
			ConditionValue: 50,
			TrackingKind:   models.EventPomodoroCompleted,
			XPReward:       75,
		},

		levelAchievement("level_5", 5),
		levelAchievement("level_10", 10),
		levelAchievement("level_20", 20),
		levelAchievement("level_50", 50),

		tenureAchievement("week_1", "First Week", 7, 15),
		tenureAchievement("month_1", "First Month", 30, 50),
		tenureAchievement("month_6", "Half a Year", 180, 200),
		tenureAchievement("year_1", "One Year In", 365, 500),
	}
}

func streakAchievement(id, name string, days, xp int) models.Achievement {
	return models.Achievement{
		ID: id, Name: name,
		ConditionType: models.ConditionStreakReached, ConditionValue: days, XPReward: xp,
	}
}

func completionAchievement(id, name string, count, xp int) models.Achievement {
	return models.Achievement{
		ID: id, Name: name,
		ConditionType: models.ConditionTotalCompletions, ConditionValue: count, XPReward: xp,
	}
}

func levelAchievement(id string, level int) models.Achievement {
	return models.Achievement{
		ID: id, Name: "Level " + Title(level),
		ConditionType: models.ConditionLevelReached, ConditionValue: level,
	}
}

func tenureAchievement(id, name string, days, xp int) models.Achievement {
	return models.Achievement{
		ID: id, Name: name,
		ConditionType: models.ConditionDaysSinceSignup, ConditionValue: days, XPReward: xp,
	}
}
