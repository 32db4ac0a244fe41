package ledger

import (
	"context"
	"sync"
)

// Store persists progress records, quiz result events and achievements.
//
// CommitResult must be atomic: the updated record, the event and any
// achievements become visible together or not at all. Writers use optimistic
// concurrency: expectedVersion is the version of the record the caller read
// (0 for a record that did not exist); a mismatch fails with ErrConflict and
// leaves no trace.
type Store interface {
	GetProgress(ctx context.Context, userID, subject string) (*ProgressRecord, error)
	ListProgress(ctx context.Context, userID string) ([]ProgressRecord, error)
	ListAchievements(ctx context.Context, userID string) ([]AchievementRecord, error)
	CommitResult(ctx context.Context, next ProgressRecord, expectedVersion int64, event QuizResultEvent, achievements []AchievementRecord) error
}

type progressKey struct {
	userID  string
	subject string
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	records      map[progressKey]*ProgressRecord
	achievements map[string][]AchievementRecord // keyed by user ID
	events       []QuizResultEvent
	mu           sync.RWMutex
}

// NewMemoryStore creates a new in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:      make(map[progressKey]*ProgressRecord),
		achievements: make(map[string][]AchievementRecord),
	}
}

func (s *MemoryStore) GetProgress(ctx context.Context, userID, subject string) (*ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[progressKey{userID, subject}]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneRecord(*rec)
	return &out, nil
}

func (s *MemoryStore) ListProgress(ctx context.Context, userID string) ([]ProgressRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ProgressRecord
	for key, rec := range s.records {
		if key.userID == userID {
			out = append(out, cloneRecord(*rec))
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAchievements(ctx context.Context, userID string) ([]AchievementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AchievementRecord{}, s.achievements[userID]...), nil
}

func (s *MemoryStore) CommitResult(ctx context.Context, next ProgressRecord, expectedVersion int64, event QuizResultEvent, achievements []AchievementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := progressKey{next.UserID, next.Subject}
	current, exists := s.records[key]

	if expectedVersion == 0 {
		if exists {
			return ErrConflict
		}
	} else {
		if !exists || current.Version != expectedVersion {
			return ErrConflict
		}
	}

	stored := cloneRecord(next)
	s.records[key] = &stored
	s.events = append(s.events, event)
	for _, a := range achievements {
		if hasAchievement(s.achievements[a.UserID], a.Name) {
			continue // (user, name) earned at most once
		}
		s.achievements[a.UserID] = append(s.achievements[a.UserID], a)
	}
	return nil
}

// EventCount reports the number of committed quiz result events. Test helper.
func (s *MemoryStore) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func hasAchievement(records []AchievementRecord, name string) bool {
	for _, r := range records {
		if r.Name == name {
			return true
		}
	}
	return false
}

func cloneRecord(r ProgressRecord) ProgressRecord {
	r.Badges = append([]string{}, r.Badges...)
	return r
}
