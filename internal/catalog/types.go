package catalog

// ActivityDefinition is read-only reference data describing a scorable
// activity. Definitions are immutable once published; the ledger never
// writes them.
type ActivityDefinition struct {
	ID            string         `yaml:"id"`
	Subject       string         `yaml:"subject"`
	Title         string         `yaml:"title"`
	Difficulty    string         `yaml:"difficulty"`
	PointsReward  int            `yaml:"points_reward"`
	ActivityType  string         `yaml:"activity_type"`
	AnswersSchema map[string]any `yaml:"answers_schema"`
}
