// Package ledger owns per-student, per-subject progress state. It applies
// quiz result submissions as atomic transactions that update activity
// counters, points, levels and badges, and exposes read-only aggregation
// for teacher analytics.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/studyhall/progress-ledger/internal/catalog"
	"github.com/studyhall/progress-ledger/internal/roster"
)

const (
	defaultLevelPointsThreshold = 100
	defaultSubmitMaxAttempts    = 3
	defaultSubmitRetryBackoff   = 25 * time.Millisecond
)

// ActivityCatalog resolves activity reference data.
type ActivityCatalog interface {
	Activity(id string) (catalog.ActivityDefinition, bool)
	SubjectSize(subject string) int
	ValidateAnswers(activityID string, answers []byte) error
}

// Config holds dependencies for the ledger.
type Config struct {
	Store     Store
	Catalog   ActivityCatalog
	Directory roster.Directory
	Feed      Feed
	Snapshots *SnapshotCache

	LevelPointsThreshold int           // points per level (default 100)
	SubmitMaxAttempts    int           // attempts before giving up on conflicts (default 3)
	SubmitRetryBackoff   time.Duration // initial backoff, doubled per attempt (default 25ms)
	BadgeRules           []BadgeRule   // evaluation order is the slice order
}

// Ledger is the progress ledger.
type Ledger struct {
	store     Store
	catalog   ActivityCatalog
	directory roster.Directory
	feed      Feed
	snapshots *SnapshotCache

	levelPointsThreshold int
	submitMaxAttempts    int
	submitRetryBackoff   time.Duration
	badgeRules           []BadgeRule
}

// New creates a ledger.
func New(cfg Config) *Ledger {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	feed := cfg.Feed
	if feed == nil {
		feed = NopFeed{}
	}
	threshold := cfg.LevelPointsThreshold
	if threshold <= 0 {
		threshold = defaultLevelPointsThreshold
	}
	attempts := cfg.SubmitMaxAttempts
	if attempts <= 0 {
		attempts = defaultSubmitMaxAttempts
	}
	backoff := cfg.SubmitRetryBackoff
	if backoff <= 0 {
		backoff = defaultSubmitRetryBackoff
	}
	rules := cfg.BadgeRules
	if rules == nil {
		rules = defaultBadgeRules()
	}
	return &Ledger{
		store:                store,
		catalog:              cfg.Catalog,
		directory:            cfg.Directory,
		feed:                 feed,
		snapshots:            cfg.Snapshots,
		levelPointsThreshold: threshold,
		submitMaxAttempts:    attempts,
		submitRetryBackoff:   backoff,
		badgeRules:           rules,
	}
}

// SubmitQuizResult applies one quiz result to the student's progress for the
// activity's subject and returns the updated snapshot plus any newly
// unlocked achievements.
//
// Duplicate submissions are not deduplicated here: every accepted event
// increments activities_completed. Idempotency is the caller's policy.
func (l *Ledger) SubmitQuizResult(ctx context.Context, event QuizResultEvent) (*SubmitResult, error) {
	if event.Score < 0 || event.MaxScore < 0 || event.Score > event.MaxScore {
		return nil, fmt.Errorf("%w: score %d/%d", ErrInvalidScore, event.Score, event.MaxScore)
	}

	activity, ok := l.catalog.Activity(event.ActivityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActivity, event.ActivityID)
	}
	if err := l.catalog.ValidateAnswers(event.ActivityID, event.Answers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswers, err)
	}

	user, err := l.directory.GetUser(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, event.UserID)
		}
		return nil, fmt.Errorf("%w: resolve user: %v", ErrStorage, err)
	}
	if user.Role != roster.RoleStudent {
		return nil, fmt.Errorf("%w: %s is not a student", ErrUnknownUser, event.UserID)
	}

	if event.SubmittedAt.IsZero() {
		event.SubmittedAt = time.Now().UTC()
	}
	pointsEarned := scorePoints(activity.PointsReward, event.Score, event.MaxScore)

	var lastErr error
	backoff := l.submitRetryBackoff
	for attempt := 1; attempt <= l.submitMaxAttempts; attempt++ {
		result, err := l.applyOnce(ctx, activity, event, pointsEarned)
		if err == nil {
			l.afterCommit(ctx, result)
			return result, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}

		slog.Warn("submission attempt failed",
			"user_id", event.UserID,
			"subject", activity.Subject,
			"attempt", attempt,
			"error", err,
		)
		if attempt == l.submitMaxAttempts {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
	return nil, lastErr
}

// applyOnce runs a single optimistic read-transform-commit cycle.
func (l *Ledger) applyOnce(ctx context.Context, activity catalog.ActivityDefinition, event QuizResultEvent, pointsEarned int) (*SubmitResult, error) {
	prev, err := l.store.GetProgress(ctx, event.UserID, activity.Subject)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		prev = &ProgressRecord{
			UserID:       event.UserID,
			Subject:      activity.Subject,
			CurrentLevel: 1,
		}
	}

	next := *prev
	next.Badges = append([]string{}, prev.Badges...)
	next.ActivitiesCompleted++
	next.Points += pointsEarned
	next.CurrentLevel = l.level(next.Points, prev.CurrentLevel)
	next.TotalActivities = l.catalog.SubjectSize(activity.Subject)
	next.Version = prev.Version + 1
	next.UpdatedAt = time.Now().UTC()

	unlocked := evaluateBadges(l.badgeRules, prev, &next)
	achievements := make([]AchievementRecord, 0, len(unlocked))
	for _, badge := range unlocked {
		achievements = append(achievements, AchievementRecord{
			ID:          uuid.NewString(),
			UserID:      event.UserID,
			Type:        "badge",
			Name:        badge,
			DisplayName: BadgeDisplayName(badge),
			Subject:     activity.Subject,
			EarnedAt:    next.UpdatedAt,
		})
	}

	if err := l.store.CommitResult(ctx, next, prev.Version, event, achievements); err != nil {
		return nil, err
	}
	return &SubmitResult{
		Progress:        next,
		PointsEarned:    pointsEarned,
		NewAchievements: achievements,
	}, nil
}

// afterCommit refreshes the snapshot cache and publishes unlock events.
// Both are best-effort; the transaction is already durable.
func (l *Ledger) afterCommit(ctx context.Context, result *SubmitResult) {
	l.snapshots.Invalidate(ctx, result.Progress.UserID, result.Progress.Subject)
	l.snapshots.Put(ctx, result.Progress)

	for _, a := range result.NewAchievements {
		event := AchievementEvent{
			AchievementID: a.ID,
			UserID:        a.UserID,
			Subject:       a.Subject,
			Badge:         a.Name,
			DisplayName:   a.DisplayName,
			EarnedAt:      a.EarnedAt,
		}
		if err := l.feed.Publish(ctx, event); err != nil {
			slog.Warn("achievement event publish failed", "badge", a.Name, "error", err)
		}
	}

	slog.Info("quiz result applied",
		"user_id", result.Progress.UserID,
		"subject", result.Progress.Subject,
		"points_earned", result.PointsEarned,
		"points", result.Progress.Points,
		"level", result.Progress.CurrentLevel,
		"new_badges", len(result.NewAchievements),
	)
}

// GetProgress returns the progress record for one (user, subject) pair.
func (l *Ledger) GetProgress(ctx context.Context, userID, subject string) (*ProgressRecord, error) {
	if rec := l.snapshots.Get(ctx, userID, subject); rec != nil {
		return rec, nil
	}
	rec, err := l.store.GetProgress(ctx, userID, subject)
	if err != nil {
		return nil, err
	}
	l.snapshots.Put(ctx, *rec)
	return rec, nil
}

// ListProgress returns all progress records for a user. A user with no
// submissions yet has an empty list, not an error.
func (l *Ledger) ListProgress(ctx context.Context, userID string) ([]ProgressRecord, error) {
	return l.store.ListProgress(ctx, userID)
}

// ListAchievements returns every achievement the user has earned.
func (l *Ledger) ListAchievements(ctx context.Context, userID string) ([]AchievementRecord, error) {
	return l.store.ListAchievements(ctx, userID)
}

// scorePoints grants partial credit proportional to the score ratio, capped
// so a partial attempt never exceeds the full reward.
func scorePoints(reward, score, maxScore int) int {
	if maxScore == 0 {
		return 0
	}
	earned := int(math.Round(float64(reward) * float64(score) / float64(maxScore)))
	if earned < 0 {
		return 0
	}
	if earned > reward {
		return reward
	}
	return earned
}

// level derives the level from points and never lets it regress below the
// previously stored level, even after a data correction.
func (l *Ledger) level(points, storedLevel int) int {
	derived := points/l.levelPointsThreshold + 1
	if derived < storedLevel {
		return storedLevel
	}
	return derived
}
