package ledger

import (
	"encoding/json"
	"time"
)

// ProgressRecord tracks a student's cumulative progress in one subject.
// There is exactly one record per (user, subject) pair. Points,
// ActivitiesCompleted and CurrentLevel never decrease across applied
// submissions; Badges is append-only with set semantics.
type ProgressRecord struct {
	UserID              string    `json:"user_id"`
	Subject             string    `json:"subject"`
	ActivitiesCompleted int       `json:"activities_completed"`
	TotalActivities     int       `json:"total_activities"`
	Points              int       `json:"points"`
	Badges              []string  `json:"badges"`
	CurrentLevel        int       `json:"current_level"`
	Version             int64     `json:"version"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// HasBadge reports whether the record already holds the badge.
func (r *ProgressRecord) HasBadge(id string) bool {
	for _, b := range r.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// QuizResultEvent is a write-once submission of one scored attempt.
// Answers is an opaque payload validated against the activity's schema;
// the ledger stores it but never interprets it.
type QuizResultEvent struct {
	UserID           string          `json:"user_id"`
	ActivityID       string          `json:"activity_id"`
	Score            int             `json:"score"`
	MaxScore         int             `json:"max_score"`
	TimeTakenSeconds int             `json:"time_taken_seconds"`
	Answers          json.RawMessage `json:"answers,omitempty"`
	SubmittedAt      time.Time       `json:"submitted_at"`
}

// AchievementRecord is an append-only earned achievement. A given
// (user, name) pair is earned at most once.
type AchievementRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Subject     string    `json:"subject,omitempty"`
	EarnedAt    time.Time `json:"earned_at"`
}

// SubmitResult is the outcome of one applied quiz result.
type SubmitResult struct {
	Progress        ProgressRecord      `json:"progress"`
	PointsEarned    int                 `json:"points_earned"`
	NewAchievements []AchievementRecord `json:"new_achievements"`
}
