package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresDirectory is a PostgreSQL-backed Directory implementation.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a PostgreSQL-backed directory.
func NewPostgresDirectory(pool *pgxpool.Pool) (*PostgresDirectory, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresDirectory{pool: pool}, nil
}

func (d *PostgresDirectory) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var u UserProfile
	var grade *string
	err := d.pool.QueryRow(ctx,
		`SELECT id, name, role, grade
		 FROM users
		 WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Role, &grade)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if grade != nil {
		u.Grade = *grade
	}
	return &u, nil
}

func (d *PostgresDirectory) ListClasses(ctx context.Context, teacherID string) ([]Class, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := d.pool.Query(ctx,
		`SELECT id, name, teacher_id
		 FROM classes
		 WHERE teacher_id = $1
		 ORDER BY name ASC`,
		teacherID,
	)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var classes []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherID); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}

	for i := range classes {
		students, err := d.listClassStudents(ctx, classes[i].ID)
		if err != nil {
			return nil, err
		}
		classes[i].StudentIDs = students
	}
	return classes, nil
}

func (d *PostgresDirectory) listClassStudents(ctx context.Context, classID string) ([]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT student_id
		 FROM class_members
		 WHERE class_id = $1
		 ORDER BY student_id ASC`,
		classID,
	)
	if err != nil {
		return nil, fmt.Errorf("query class members: %w", err)
	}
	defer rows.Close()

	var students []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan class member: %w", err)
		}
		students = append(students, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class members: %w", err)
	}
	return students, nil
}
