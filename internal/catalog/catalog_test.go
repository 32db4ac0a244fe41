package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/studyhall/progress-ledger/internal/catalog"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestNewLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "math-fractions-01.yaml", `
id: math-fractions-01
subject: math
title: Comparing Fractions
difficulty: easy
points_reward: 50
activity_type: quiz
`)
	writeFile(t, dir, "math-fractions-02.yaml", `
id: math-fractions-02
subject: math
title: Adding Fractions
difficulty: medium
points_reward: 75
activity_type: quiz
`)
	writeFile(t, dir, "science-cells-01.yaml", `
id: science-cells-01
subject: science
title: Cell Structure
difficulty: easy
points_reward: 40
activity_type: matching
`)
	writeFile(t, dir, "notes.yaml", `just: notes, no id`)
	writeFile(t, dir, "broken.yaml", "id: [unclosed")

	c, err := catalog.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	a, ok := c.Activity("math-fractions-01")
	if !ok {
		t.Fatal("Activity() did not find math-fractions-01")
	}
	if a.PointsReward != 50 {
		t.Errorf("PointsReward = %d, want 50", a.PointsReward)
	}
	if a.Subject != "math" {
		t.Errorf("Subject = %q, want math", a.Subject)
	}

	if got := c.SubjectSize("math"); got != 2 {
		t.Errorf("SubjectSize(math) = %d, want 2", got)
	}
	if got := c.SubjectSize("science"); got != 1 {
		t.Errorf("SubjectSize(science) = %d, want 1", got)
	}
	if got := c.SubjectSize("history"); got != 0 {
		t.Errorf("SubjectSize(history) = %d, want 0", got)
	}

	if _, ok := c.Activity("notes"); ok {
		t.Error("file without an id should be skipped")
	}
}

func TestNewStatic_Duplicate(t *testing.T) {
	_, err := catalog.NewStatic([]catalog.ActivityDefinition{
		{ID: "a1", Subject: "math", PointsReward: 10},
		{ID: "a1", Subject: "math", PointsReward: 20},
	})
	if err == nil {
		t.Error("NewStatic() should reject duplicate activity ids")
	}
}

func TestNewStatic_MissingSubject(t *testing.T) {
	_, err := catalog.NewStatic([]catalog.ActivityDefinition{
		{ID: "a1", PointsReward: 10},
	})
	if err == nil {
		t.Error("NewStatic() should reject activity without subject")
	}
}

func TestValidateAnswers(t *testing.T) {
	c, err := catalog.NewStatic([]catalog.ActivityDefinition{
		{
			ID:           "quiz-1",
			Subject:      "math",
			PointsReward: 50,
			ActivityType: "quiz",
			AnswersSchema: map[string]any{
				"type":     "object",
				"required": []any{"selected"},
				"properties": map[string]any{
					"selected": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
			},
		},
		{ID: "free-1", Subject: "math", PointsReward: 10, ActivityType: "open"},
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}

	tests := []struct {
		name       string
		activityID string
		answers    string
		wantErr    bool
	}{
		{"valid", "quiz-1", `{"selected":["a","c"]}`, false},
		{"missing-required", "quiz-1", `{}`, true},
		{"wrong-type", "quiz-1", `{"selected":"a"}`, true},
		{"not-json", "quiz-1", `{{{`, true},
		{"empty-payload", "quiz-1", ``, true},
		{"no-schema-any-payload", "free-1", `"anything"`, false},
		{"no-schema-no-payload", "free-1", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var answers []byte
			if tt.answers != "" {
				answers = []byte(tt.answers)
			}
			err := c.ValidateAnswers(tt.activityID, answers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnswers() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
