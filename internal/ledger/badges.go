package ledger

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Badge identifiers.
const (
	BadgeFirstActivity = "first_activity"
	BadgeTenActivities = "ten_activities"
	BadgeHundredPoints = "hundred_points"
	BadgeLevelUp5      = "level_up_5"
)

// Default badge thresholds. Deployments that want different milestones
// pass their own rule table through Config.BadgeRules.
const (
	tenActivitiesThreshold = 10
	hundredPointsThreshold = 100
	levelUpThreshold       = 5
)

// BadgeRule unlocks a badge when Unlocked transitions from false to true
// across one applied submission.
type BadgeRule struct {
	ID       string
	Unlocked func(prev, next *ProgressRecord) bool
}

// defaultBadgeRules returns the rule table in evaluation order. Every rule
// whose condition newly holds fires, not just the first.
func defaultBadgeRules() []BadgeRule {
	return []BadgeRule{
		{
			ID: BadgeFirstActivity,
			Unlocked: func(prev, next *ProgressRecord) bool {
				return prev.ActivitiesCompleted == 0 && next.ActivitiesCompleted >= 1
			},
		},
		{
			ID: BadgeTenActivities,
			Unlocked: func(prev, next *ProgressRecord) bool {
				return prev.ActivitiesCompleted < tenActivitiesThreshold &&
					next.ActivitiesCompleted >= tenActivitiesThreshold
			},
		},
		{
			ID: BadgeHundredPoints,
			Unlocked: func(prev, next *ProgressRecord) bool {
				return prev.Points < hundredPointsThreshold &&
					next.Points >= hundredPointsThreshold
			},
		},
		{
			ID: BadgeLevelUp5,
			Unlocked: func(prev, next *ProgressRecord) bool {
				return prev.CurrentLevel < levelUpThreshold &&
					next.CurrentLevel >= levelUpThreshold
			},
		},
	}
}

// evaluateBadges returns the badges newly unlocked by the prev -> next
// transition, in rule order, and appends them to next.Badges. A badge
// already present never fires again, which keeps unlocks exactly-once
// across retried submissions.
func evaluateBadges(rules []BadgeRule, prev, next *ProgressRecord) []string {
	var unlocked []string
	for _, rule := range rules {
		if prev.HasBadge(rule.ID) || next.HasBadge(rule.ID) {
			continue
		}
		if !rule.Unlocked(prev, next) {
			continue
		}
		next.Badges = append(next.Badges, rule.ID)
		unlocked = append(unlocked, rule.ID)
	}
	return unlocked
}

var badgeTitler = cases.Title(language.English)

// BadgeDisplayName derives a human-readable name from a badge identifier,
// e.g. "first_activity" -> "First Activity".
func BadgeDisplayName(id string) string {
	return badgeTitler.String(strings.ReplaceAll(id, "_", " "))
}
