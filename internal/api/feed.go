package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/studyhall/progress-ledger/internal/roster"
)

// handleAchievementFeed streams badge unlocks for the teacher's students
// over a websocket. Events for students outside the teacher's classes are
// filtered out server-side.
func (s *Server) handleAchievementFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "feed_unavailable", "live feed is not enabled")
		return
	}

	teacherID := r.PathValue("id")
	teacher, err := s.directory.GetUser(r.Context(), teacherID)
	if err != nil {
		if errors.Is(err, roster.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown_user", "unknown teacher")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "directory unavailable")
		return
	}
	if teacher.Role != roster.RoleTeacher {
		writeError(w, http.StatusNotFound, "unknown_user", "not a teacher")
		return
	}

	students, err := s.teacherStudents(r, teacherID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "directory unavailable")
		return
	}

	events, cancel, err := s.feed.Subscribe(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "feed_unavailable", "feed subscription failed")
		return
	}
	defer cancel()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "feed closed")
				return
			}
			if !students[event.UserID] {
				continue
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				slog.Debug("feed subscriber gone", "teacher_id", teacherID, "error", err)
				return
			}
		}
	}
}

// teacherStudents resolves the set of student IDs across the teacher's classes.
func (s *Server) teacherStudents(r *http.Request, teacherID string) (map[string]bool, error) {
	classes, err := s.directory.ListClasses(r.Context(), teacherID)
	if err != nil {
		return nil, err
	}
	students := make(map[string]bool)
	for _, class := range classes {
		for _, id := range class.StudentIDs {
			students[id] = true
		}
	}
	return students, nil
}
