package roster_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/studyhall/progress-ledger/internal/roster"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("ledger"),
		tcpostgres.WithPassword("ledger"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile(filepath.Join("..", "..", "scripts", "schema.sql"))
	if err != nil {
		t.Fatalf("reading schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("applying schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, name, role, grade) VALUES
		  ('s1', 'Aisha', 'student', '7'),
		  ('s2', 'Ben', 'student', '7'),
		  ('t1', 'Mr. Tan', 'teacher', NULL);
		INSERT INTO classes (id, name, teacher_id) VALUES
		  ('c1', '7A', 't1'),
		  ('c2', '7B', 't1');
		INSERT INTO class_members (class_id, student_id) VALUES
		  ('c1', 's1'),
		  ('c1', 's2'),
		  ('c2', 's1');`)
	if err != nil {
		t.Fatalf("seeding roster: %v", err)
	}
	return pool
}

func TestPostgresDirectory(t *testing.T) {
	pool := startPostgres(t)
	dir, err := roster.NewPostgresDirectory(pool)
	if err != nil {
		t.Fatalf("NewPostgresDirectory() error = %v", err)
	}
	ctx := context.Background()

	t.Run("get user", func(t *testing.T) {
		user, err := dir.GetUser(ctx, "s1")
		if err != nil {
			t.Fatalf("GetUser() error = %v", err)
		}
		if user.Role != roster.RoleStudent || user.Grade != "7" {
			t.Errorf("user = %+v, want student in grade 7", user)
		}

		teacher, err := dir.GetUser(ctx, "t1")
		if err != nil {
			t.Fatalf("GetUser() error = %v", err)
		}
		if teacher.Role != roster.RoleTeacher || teacher.Grade != "" {
			t.Errorf("teacher = %+v, want teacher with no grade", teacher)
		}
	})

	t.Run("get unknown user", func(t *testing.T) {
		_, err := dir.GetUser(ctx, "ghost")
		if !errors.Is(err, roster.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list classes with members", func(t *testing.T) {
		classes, err := dir.ListClasses(ctx, "t1")
		if err != nil {
			t.Fatalf("ListClasses() error = %v", err)
		}
		if len(classes) != 2 {
			t.Fatalf("classes = %d, want 2", len(classes))
		}
		if classes[0].Name != "7A" || len(classes[0].StudentIDs) != 2 {
			t.Errorf("first class = %+v, want 7A with 2 students", classes[0])
		}
		if classes[1].Name != "7B" || len(classes[1].StudentIDs) != 1 {
			t.Errorf("second class = %+v, want 7B with 1 student", classes[1])
		}
	})

	t.Run("teacher without classes", func(t *testing.T) {
		classes, err := dir.ListClasses(ctx, "s1")
		if err != nil {
			t.Fatalf("ListClasses() error = %v", err)
		}
		if len(classes) != 0 {
			t.Errorf("classes = %d, want 0", len(classes))
		}
	})
}
