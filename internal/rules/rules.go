package rules

import (
	"fmt"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// NeutralScore is awarded when a rule's required metric is unavailable.
// Data gaps degrade selection quality gracefully instead of eliminating
// otherwise-valid candidates, so the rule passes with a mid-range score.
const NeutralScore = 0.5

// StockContext bundles everything a rule may inspect for one stock.
type StockContext struct {
	StockCode string
	StockName string
	Snapshot  contracts.Snapshot
	TopicID   *int64
}

// Result is one rule's verdict. Score is always >= 0.
type Result struct {
	Passed  bool
	Score   float64
	Reason  string
	Details map[string]interface{}
}

// Rule is one independently configurable scoring/filtering unit.
type Rule interface {
	Key() string
	Name() string
	Check(stock StockContext) Result
}

// Params are the numeric bounds a rule is constructed with. Unknown keys
// are ignored; missing keys fall back to the rule's defaults.
type Params map[string]float64

// Get returns the named parameter or def when absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// missingMetric is the uniform verdict for an absent snapshot metric.
func missingMetric(metric contracts.Metric, label string) Result {
	return Result{
		Passed: true,
		Score:  NeutralScore,
		Reason: fmt.Sprintf("无法获取%s数据", label),
		Details: map[string]interface{}{
			string(metric): nil,
		},
	}
}

// Bucket classification for score aggregation. market_cap belongs to
// neither bucket: it contributes to the total score only.
var (
	techRuleKeys = map[string]bool{
		KeyVolumeRatio:  true,
		KeyPriceChange:  true,
		KeyTurnoverRate: true,
	}
	fundRuleKeys = map[string]bool{
		KeyPERatio: true,
		KeyPBRatio: true,
		KeyROE:     true,
	}
)

// IsTechnical reports whether the rule key counts toward the technical score.
func IsTechnical(ruleKey string) bool { return techRuleKeys[ruleKey] }

// IsFundamental reports whether the rule key counts toward the fundamental score.
func IsFundamental(ruleKey string) bool { return fundRuleKeys[ruleKey] }
