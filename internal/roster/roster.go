// Package roster provides read-only access to user profiles and class
// membership. Identity and enrollment are owned by another service; the
// ledger only reads them.
package roster

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a user or class does not exist.
var ErrNotFound = errors.New("not found")

// Role is a user's role on the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// UserProfile is the subset of identity data the ledger reads.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Grade string `json:"grade,omitempty"`
}

// Class is a teacher's class with its enrolled students.
type Class struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	TeacherID  string   `json:"teacher_id"`
	StudentIDs []string `json:"student_ids"`
}

// Directory resolves users and class membership.
type Directory interface {
	GetUser(ctx context.Context, id string) (*UserProfile, error)
	ListClasses(ctx context.Context, teacherID string) ([]Class, error)
}

// MemoryDirectory is an in-memory Directory implementation.
type MemoryDirectory struct {
	users   map[string]UserProfile
	classes map[string][]Class // keyed by teacher ID
	mu      sync.RWMutex
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:   make(map[string]UserProfile),
		classes: make(map[string][]Class),
	}
}

// AddUser registers a user profile.
func (d *MemoryDirectory) AddUser(u UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

// AddClass registers a class under its teacher.
func (d *MemoryDirectory) AddClass(c Class) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classes[c.TeacherID] = append(d.classes[c.TeacherID], c)
}

func (d *MemoryDirectory) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (d *MemoryDirectory) ListClasses(ctx context.Context, teacherID string) ([]Class, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	classes := make([]Class, len(d.classes[teacherID]))
	copy(classes, d.classes[teacherID])
	return classes, nil
}
