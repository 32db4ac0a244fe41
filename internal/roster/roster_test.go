package roster_test

import (
	"errors"
	"testing"

	"github.com/studyhall/progress-ledger/internal/roster"
)

func TestMemoryDirectory_GetUser(t *testing.T) {
	dir := roster.NewMemoryDirectory()
	dir.AddUser(roster.UserProfile{ID: "s1", Name: "Aisha", Role: roster.RoleStudent, Grade: "7"})

	u, err := dir.GetUser(t.Context(), "s1")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u.Role != roster.RoleStudent {
		t.Errorf("Role = %q, want student", u.Role)
	}
	if u.Grade != "7" {
		t.Errorf("Grade = %q, want 7", u.Grade)
	}
}

func TestMemoryDirectory_GetUser_NotFound(t *testing.T) {
	dir := roster.NewMemoryDirectory()

	_, err := dir.GetUser(t.Context(), "ghost")
	if !errors.Is(err, roster.ErrNotFound) {
		t.Errorf("GetUser() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryDirectory_ListClasses(t *testing.T) {
	dir := roster.NewMemoryDirectory()
	dir.AddUser(roster.UserProfile{ID: "t1", Name: "Mr. Tan", Role: roster.RoleTeacher})
	dir.AddClass(roster.Class{ID: "c1", Name: "7A", TeacherID: "t1", StudentIDs: []string{"s1", "s2"}})
	dir.AddClass(roster.Class{ID: "c2", Name: "7B", TeacherID: "t1", StudentIDs: []string{"s3"}})

	classes, err := dir.ListClasses(t.Context(), "t1")
	if err != nil {
		t.Fatalf("ListClasses() error = %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("classes count = %d, want 2", len(classes))
	}
	if len(classes[0].StudentIDs) != 2 {
		t.Errorf("class c1 students = %d, want 2", len(classes[0].StudentIDs))
	}
}

func TestMemoryDirectory_ListClasses_NoClasses(t *testing.T) {
	dir := roster.NewMemoryDirectory()

	classes, err := dir.ListClasses(t.Context(), "t-nobody")
	if err != nil {
		t.Fatalf("ListClasses() error = %v", err)
	}
	if len(classes) != 0 {
		t.Errorf("classes count = %d, want 0", len(classes))
	}
}
