package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyhall/progress-ledger/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. Atomicity
// comes from a single transaction per commit; lost updates are prevented by
// a conditional update against the record's version column.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed ledger store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetProgress(ctx context.Context, userID, subject string) (*ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rec, err := scanProgress(s.pool.QueryRow(ctx,
		`SELECT user_id, subject, activities_completed, total_activities,
		        points, badges, current_level, version, updated_at
		 FROM progress_records
		 WHERE user_id = $1 AND subject = $2`,
		userID, subject,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get progress: %v", ErrStorage, err)
	}
	return rec, nil
}

func (s *PostgresStore) ListProgress(ctx context.Context, userID string) ([]ProgressRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, subject, activities_completed, total_activities,
		        points, badges, current_level, version, updated_at
		 FROM progress_records
		 WHERE user_id = $1
		 ORDER BY subject ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query progress: %v", ErrStorage, err)
	}
	defer rows.Close()

	var records []ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan progress: %v", ErrStorage, err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate progress: %v", ErrStorage, err)
	}
	return records, nil
}

func (s *PostgresStore) ListAchievements(ctx context.Context, userID string) ([]AchievementRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id, type, name, display_name, COALESCE(subject, ''), earned_at
		 FROM achievements
		 WHERE user_id = $1
		 ORDER BY earned_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query achievements: %v", ErrStorage, err)
	}
	defer rows.Close()

	var records []AchievementRecord
	for rows.Next() {
		var a AchievementRecord
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.Name, &a.DisplayName, &a.Subject, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("%w: scan achievement: %v", ErrStorage, err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate achievements: %v", ErrStorage, err)
	}
	return records, nil
}

func (s *PostgresStore) CommitResult(ctx context.Context, next ProgressRecord, expectedVersion int64, event QuizResultEvent, achievements []AchievementRecord) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	err := database.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.upsertProgress(ctx, tx, next, expectedVersion); err != nil {
			return err
		}
		if err := s.insertEvent(ctx, tx, event); err != nil {
			return err
		}
		for _, a := range achievements {
			if err := s.insertAchievement(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("%w: commit result: %v", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) upsertProgress(ctx context.Context, tx pgx.Tx, next ProgressRecord, expectedVersion int64) error {
	if expectedVersion == 0 {
		cmd, err := tx.Exec(ctx,
			`INSERT INTO progress_records
			   (user_id, subject, activities_completed, total_activities,
			    points, badges, current_level, version, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (user_id, subject) DO NOTHING`,
			next.UserID, next.Subject, next.ActivitiesCompleted, next.TotalActivities,
			next.Points, next.Badges, next.CurrentLevel, next.Version, next.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert progress: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrConflict
		}
		return nil
	}

	cmd, err := tx.Exec(ctx,
		`UPDATE progress_records
		 SET activities_completed = $3,
		     total_activities = $4,
		     points = $5,
		     badges = $6,
		     current_level = $7,
		     version = $8,
		     updated_at = $9
		 WHERE user_id = $1 AND subject = $2 AND version = $10`,
		next.UserID, next.Subject, next.ActivitiesCompleted, next.TotalActivities,
		next.Points, next.Badges, next.CurrentLevel, next.Version, next.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) insertEvent(ctx context.Context, tx pgx.Tx, event QuizResultEvent) error {
	answers := []byte(event.Answers)
	if len(answers) == 0 {
		answers = nil
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO quiz_results
		   (user_id, activity_id, score, max_score, time_taken_seconds, answers, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.UserID, event.ActivityID, event.Score, event.MaxScore,
		event.TimeTakenSeconds, answers, event.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

func (s *PostgresStore) insertAchievement(ctx context.Context, tx pgx.Tx, a AchievementRecord) error {
	// Unique (user_id, name) backs up the engine's exactly-once evaluation.
	_, err := tx.Exec(ctx,
		`INSERT INTO achievements (id, user_id, type, name, display_name, subject, earned_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, NULLIF($6, ''), $7)
		 ON CONFLICT (user_id, name) DO NOTHING`,
		a.ID, a.UserID, a.Type, a.Name, a.DisplayName, a.Subject, a.EarnedAt,
	)
	if err != nil {
		return fmt.Errorf("insert achievement: %w", err)
	}
	return nil
}

func scanProgress(row pgx.Row) (*ProgressRecord, error) {
	var rec ProgressRecord
	if err := row.Scan(
		&rec.UserID,
		&rec.Subject,
		&rec.ActivitiesCompleted,
		&rec.TotalActivities,
		&rec.Points,
		&rec.Badges,
		&rec.CurrentLevel,
		&rec.Version,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if rec.Badges == nil {
		rec.Badges = []string{}
	}
	return &rec, nil
}
