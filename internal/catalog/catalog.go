// Package catalog loads and caches activity reference data from YAML files.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Catalog holds all loaded activity definitions.
type Catalog struct {
	rootDir    string
	activities map[string]ActivityDefinition
	bySubject  map[string]int
	schemas    map[string]*gojsonschema.Schema
	mu         sync.RWMutex
}

// NewLoader creates a catalog and loads all activity YAML under rootDir.
func NewLoader(rootDir string) (*Catalog, error) {
	c := &Catalog{
		rootDir:    rootDir,
		activities: make(map[string]ActivityDefinition),
		bySubject:  make(map[string]int),
		schemas:    make(map[string]*gojsonschema.Schema),
	}

	if err := c.loadAll(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("activity catalog loaded", "activities", len(c.activities))
	return c, nil
}

// NewStatic creates a catalog from in-memory definitions. Used by tests and
// by callers that source reference data elsewhere.
func NewStatic(defs []ActivityDefinition) (*Catalog, error) {
	c := &Catalog{
		activities: make(map[string]ActivityDefinition),
		bySubject:  make(map[string]int),
		schemas:    make(map[string]*gojsonschema.Schema),
	}
	for _, def := range defs {
		if err := c.add(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Activity returns an activity definition by ID.
func (c *Catalog) Activity(id string) (ActivityDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.activities[id]
	return a, ok
}

// SubjectSize returns the number of published activities for a subject.
func (c *Catalog) SubjectSize(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bySubject[subject]
}

// Subjects returns all subjects with at least one activity.
func (c *Catalog) Subjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subjects := make([]string, 0, len(c.bySubject))
	for s := range c.bySubject {
		subjects = append(subjects, s)
	}
	return subjects
}

// ValidateAnswers checks an answers payload against the activity's declared
// schema. Activities without a schema accept any payload, including none.
func (c *Catalog) ValidateAnswers(activityID string, answers []byte) error {
	c.mu.RLock()
	schema, ok := c.schemas[activityID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	if len(answers) == 0 {
		return fmt.Errorf("activity %s requires an answers payload", activityID)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(answers))
	if err != nil {
		return fmt.Errorf("answers payload is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("answers payload rejected: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func (c *Catalog) loadAll() error {
	return filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return c.loadActivity(path)
	})
}

func (c *Catalog) loadActivity(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var def ActivityDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		slog.Warn("skipping invalid activity YAML", "path", path, "error", err)
		return nil
	}

	if def.ID == "" {
		return nil // Not an activity file
	}
	if err := c.add(def); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Catalog) add(def ActivityDefinition) error {
	if def.Subject == "" {
		return fmt.Errorf("activity %s has no subject", def.ID)
	}
	if def.PointsReward < 0 {
		return fmt.Errorf("activity %s has negative points_reward", def.ID)
	}

	var schema *gojsonschema.Schema
	if def.AnswersSchema != nil {
		var err error
		schema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.AnswersSchema))
		if err != nil {
			return fmt.Errorf("activity %s has invalid answers_schema: %w", def.ID, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.activities[def.ID]; exists {
		return fmt.Errorf("duplicate activity id %s", def.ID)
	}
	c.activities[def.ID] = def
	c.bySubject[def.Subject]++
	if schema != nil {
		c.schemas[def.ID] = schema
	}
	return nil
}
