package contracts

import "context"

// RuleConfig is one stored rule configuration, editable independently of any
// report. Params are the rule's numeric bounds; unknown keys are ignored by
// the rule implementation.
type RuleConfig struct {
	RuleKey   string
	Name      string
	Params    map[string]float64
	Enabled   bool
	SortOrder int
}

// RuleConfigRepository manages the rule_configs collection.
type RuleConfigRepository interface {
	List(ctx context.Context) ([]RuleConfig, error)
	ListEnabled(ctx context.Context) ([]RuleConfig, error)
	Upsert(ctx context.Context, cfg *RuleConfig) error
}
