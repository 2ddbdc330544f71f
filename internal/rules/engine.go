package rules

import (
	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// Evaluation is the aggregated result of running every enabled rule against
// one stock. Tech/fund scores are bucket sums normalized by the number of
// enabled rules in that bucket; TotalScore is the raw sum of all rule scores.
type Evaluation struct {
	TechScore  float64
	FundScore  float64
	TotalScore float64
	Outcomes   []contracts.RuleOutcome
	AllPassed  bool
	IsSelected bool
}

// Engine applies configured rules to stocks.
type Engine struct {
	registry *Registry
	logger   *logger.Logger
}

// NewEngine creates an engine over a rule registry.
func NewEngine(registry *Registry, log *logger.Logger) *Engine {
	return &Engine{registry: registry, logger: log}
}

// Evaluate runs the given rule configurations, in order, against one stock.
// An unregistered rule key is a per-rule failure (logged, all_passed
// forced false), never an abort of the stock's evaluation. A stock is
// selected iff every rule passed and the total score is positive: scores
// rank and explain, but selection is binary and strict.
func (e *Engine) Evaluate(stock StockContext, configs []contracts.RuleConfig) Evaluation {
	eval := Evaluation{
		AllPassed: true,
		Outcomes:  make([]contracts.RuleOutcome, 0, len(configs)),
	}

	var techSum, fundSum float64
	var techCount, fundCount int

	for _, cfg := range configs {
		if IsTechnical(cfg.RuleKey) {
			techCount++
		} else if IsFundamental(cfg.RuleKey) {
			fundCount++
		}

		rule, err := e.registry.New(cfg.RuleKey, cfg.Params)
		if err != nil {
			e.logger.WithFields(map[string]interface{}{
				"rule_key":   cfg.RuleKey,
				"stock_code": stock.StockCode,
			}).WithError(err).Error("Rule instantiation failed")

			eval.AllPassed = false
			eval.Outcomes = append(eval.Outcomes, contracts.RuleOutcome{
				RuleKey: cfg.RuleKey,
				Passed:  false,
				Reason:  "未注册的规则: " + cfg.RuleKey,
			})
			continue
		}

		result := rule.Check(stock)

		eval.Outcomes = append(eval.Outcomes, contracts.RuleOutcome{
			RuleKey: cfg.RuleKey,
			Passed:  result.Passed,
			Score:   result.Score,
			Reason:  result.Reason,
			Details: result.Details,
		})

		if !result.Passed {
			eval.AllPassed = false
		}

		eval.TotalScore += result.Score
		if IsTechnical(cfg.RuleKey) {
			techSum += result.Score
		} else if IsFundamental(cfg.RuleKey) {
			fundSum += result.Score
		}
	}

	if techCount > 0 {
		eval.TechScore = techSum / float64(techCount)
	}
	if fundCount > 0 {
		eval.FundScore = fundSum / float64(fundCount)
	}

	eval.IsSelected = eval.AllPassed && eval.TotalScore > 0

	return eval
}
