package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studyhall/progress-ledger/internal/roster"
)

// analyticsFanout bounds concurrent per-student lookups.
const analyticsFanout = 8

// StudentWarning flags a student whose data could not be read; their
// contribution is missing from the aggregates.
type StudentWarning struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// ClassSummary aggregates progress across one class.
type ClassSummary struct {
	ClassID        string           `json:"class_id"`
	ClassName      string           `json:"class_name"`
	Students       int              `json:"students"`
	AvgPoints      float64          `json:"avg_points"`
	AvgLevel       float64          `json:"avg_level"`
	CompletionRate float64          `json:"completion_rate"`
	Warnings       []StudentWarning `json:"warnings,omitempty"`
}

// AnalyticsReport is the teacher-facing aggregation across all classes.
type AnalyticsReport struct {
	TeacherID   string         `json:"teacher_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Classes     []ClassSummary `json:"classes"`
	Partial     bool           `json:"partial"`
}

// studentTally is one student's contribution to a class aggregate.
type studentTally struct {
	points    int
	level     int
	completed int
	total     int
}

// GetClassAnalytics folds every student's progress records into per-class
// aggregates. A failed student lookup degrades to a warning instead of
// failing the whole call; readers can see exactly whose data is missing.
func (l *Ledger) GetClassAnalytics(ctx context.Context, teacherID string) (*AnalyticsReport, error) {
	teacher, err := l.directory.GetUser(ctx, teacherID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, teacherID)
		}
		return nil, fmt.Errorf("%w: resolve teacher: %v", ErrStorage, err)
	}
	if teacher.Role != roster.RoleTeacher {
		return nil, fmt.Errorf("%w: %s is not a teacher", ErrUnknownUser, teacherID)
	}

	classes, err := l.directory.ListClasses(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("%w: list classes: %v", ErrStorage, err)
	}

	report := &AnalyticsReport{
		TeacherID:   teacherID,
		GeneratedAt: time.Now().UTC(),
		Classes:     make([]ClassSummary, 0, len(classes)),
	}

	for _, class := range classes {
		summary := l.summarizeClass(ctx, class)
		if len(summary.Warnings) > 0 {
			report.Partial = true
		}
		report.Classes = append(report.Classes, summary)
	}
	return report, nil
}

func (l *Ledger) summarizeClass(ctx context.Context, class roster.Class) ClassSummary {
	summary := ClassSummary{
		ClassID:   class.ID,
		ClassName: class.Name,
		Students:  len(class.StudentIDs),
	}

	var (
		mu       sync.Mutex
		tallies  []studentTally
		warnings []StudentWarning
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyticsFanout)
	for _, studentID := range class.StudentIDs {
		g.Go(func() error {
			records, err := l.store.ListProgress(gctx, studentID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, StudentWarning{
					StudentID: studentID,
					Reason:    err.Error(),
				})
				return nil
			}

			tally := studentTally{level: 1}
			for _, rec := range records {
				tally.points += rec.Points
				tally.completed += rec.ActivitiesCompleted
				tally.total += rec.TotalActivities
				if rec.CurrentLevel > tally.level {
					tally.level = rec.CurrentLevel
				}
			}
			tallies = append(tallies, tally)
			return nil
		})
	}
	// Per-student errors degrade to warnings, so Wait only synchronizes.
	_ = g.Wait()

	if len(tallies) > 0 {
		var points, levels, completed, total int
		for _, t := range tallies {
			points += t.points
			levels += t.level
			completed += t.completed
			total += t.total
		}
		summary.AvgPoints = float64(points) / float64(len(tallies))
		summary.AvgLevel = float64(levels) / float64(len(tallies))
		if total > 0 {
			summary.CompletionRate = float64(completed) / float64(total)
		}
	}
	summary.Warnings = warnings
	return summary
}
