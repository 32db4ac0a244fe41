package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/studyhall/progress-ledger/internal/api"
	"github.com/studyhall/progress-ledger/internal/ledger"
	"github.com/studyhall/progress-ledger/internal/roster"
)

func TestAchievementFeed_StreamsAndFilters(t *testing.T) {
	server, broker := testServer(t)
	ts := httptest.NewServer(server.Mux())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	url := strings.Replace(ts.URL, "http://", "ws://", 1) + "/v1/teachers/t1/feed"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	// s2 is not in any of t1's classes; the event must be filtered out.
	_ = broker.Publish(ctx, ledger.AchievementEvent{UserID: "s2", Badge: "first_activity"})
	_ = broker.Publish(ctx, ledger.AchievementEvent{UserID: "s1", Badge: "ten_activities"})

	var got ledger.AchievementEvent
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.UserID != "s1" {
		t.Errorf("UserID = %q, want s1 (s2 is outside the teacher's classes)", got.UserID)
	}
	if got.Badge != "ten_activities" {
		t.Errorf("Badge = %q, want ten_activities", got.Badge)
	}
}

func TestAchievementFeed_UnknownTeacher(t *testing.T) {
	server, _ := testServer(t)
	ts := httptest.NewServer(server.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/teachers/ghost/feed")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestAchievementFeed_DisabledWithoutFeed(t *testing.T) {
	dir := roster.NewMemoryDirectory()
	dir.AddUser(roster.UserProfile{ID: "t1", Name: "Mr. Tan", Role: roster.RoleTeacher})
	s := api.New(api.Config{Directory: dir})
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/teachers/t1/feed")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}
