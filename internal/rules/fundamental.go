package rules

import (
	"fmt"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Fundamental rule keys.
const (
	KeyPERatio = "pe_ratio"
	KeyPBRatio = "pb_ratio"
	KeyROE     = "roe"
)

// PERatioRule filters stocks by dynamic P/E ratio (市盈率). The lower bound
// of 0 excludes loss-making companies whose P/E is negative.
type PERatioRule struct {
	min float64
	max float64
}

// NewPERatioRule builds the rule with min/max bounds.
func NewPERatioRule(params Params) *PERatioRule {
	return &PERatioRule{
		min: params.Get("min_pe", 0),
		max: params.Get("max_pe", 50),
	}
}

func (r *PERatioRule) Key() string  { return KeyPERatio }
func (r *PERatioRule) Name() string { return "市盈率筛选" }

func (r *PERatioRule) Check(stock StockContext) Result {
	pe, ok := stock.Snapshot.Get(contracts.MetricPERatio)
	if !ok {
		return missingMetric(contracts.MetricPERatio, "市盈率")
	}

	passed := pe >= r.min && pe <= r.max
	reason := fmt.Sprintf("市盈率 %.2f不在[%.0f, %.0f]范围内", pe, r.min, r.max)
	score := 0.0
	if passed {
		reason = fmt.Sprintf("市盈率 %.2f在[%.0f, %.0f]范围内", pe, r.min, r.max)
		score = 1.0
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"pe_ratio": pe},
	}
}

// PBRatioRule filters stocks by P/B ratio (市净率).
type PBRatioRule struct {
	min float64
	max float64
}

// NewPBRatioRule builds the rule with min/max bounds.
func NewPBRatioRule(params Params) *PBRatioRule {
	return &PBRatioRule{
		min: params.Get("min_pb", 0),
		max: params.Get("max_pb", 10),
	}
}

func (r *PBRatioRule) Key() string  { return KeyPBRatio }
func (r *PBRatioRule) Name() string { return "市净率筛选" }

func (r *PBRatioRule) Check(stock StockContext) Result {
	pb, ok := stock.Snapshot.Get(contracts.MetricPBRatio)
	if !ok {
		return missingMetric(contracts.MetricPBRatio, "市净率")
	}

	passed := pb >= r.min && pb <= r.max
	reason := fmt.Sprintf("市净率 %.2f不在[%.0f, %.0f]范围内", pb, r.min, r.max)
	score := 0.0
	if passed {
		reason = fmt.Sprintf("市净率 %.2f在[%.0f, %.0f]范围内", pb, r.min, r.max)
		score = 1.0
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"pb_ratio": pb},
	}
}

// ROERule filters stocks by return on equity.
type ROERule struct {
	min float64
}

// NewROERule builds the rule with a minimum ROE percentage.
func NewROERule(params Params) *ROERule {
	return &ROERule{min: params.Get("min_roe", 0)}
}

func (r *ROERule) Key() string  { return KeyROE }
func (r *ROERule) Name() string { return "ROE筛选" }

func (r *ROERule) Check(stock StockContext) Result {
	roe, ok := stock.Snapshot.Get(contracts.MetricROE)
	if !ok {
		return missingMetric(contracts.MetricROE, "ROE")
	}

	passed := roe >= r.min
	reason := fmt.Sprintf("ROE %.2f%% < %.1f%%", roe, r.min)
	score := 0.0
	if passed {
		reason = fmt.Sprintf("ROE %.2f%% >= %.1f%%", roe, r.min)
		score = 1.0
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"roe": roe},
	}
}
