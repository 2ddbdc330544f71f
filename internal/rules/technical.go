package rules

import (
	"fmt"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Technical rule keys.
const (
	KeyMarketCap    = "market_cap"
	KeyVolumeRatio  = "volume_ratio"
	KeyPriceChange  = "price_change"
	KeyTurnoverRate = "turnover_rate"
)

// MarketCapRule filters stocks by total market capitalization (亿元).
type MarketCapRule struct {
	min float64
	max float64
}

// NewMarketCapRule builds the rule with min/max bounds in 亿元.
func NewMarketCapRule(params Params) *MarketCapRule {
	return &MarketCapRule{
		min: params.Get("min_market_cap", 50),
		max: params.Get("max_market_cap", 500),
	}
}

func (r *MarketCapRule) Key() string  { return KeyMarketCap }
func (r *MarketCapRule) Name() string { return "市值筛选" }

func (r *MarketCapRule) Check(stock StockContext) Result {
	cap, ok := stock.Snapshot.Get(contracts.MetricMarketCap)
	if !ok {
		return missingMetric(contracts.MetricMarketCap, "市值")
	}

	passed := cap >= r.min && cap <= r.max
	reason := fmt.Sprintf("市值 %.2f亿不在[%.0f, %.0f]范围内", cap, r.min, r.max)
	score := 0.0
	if passed {
		reason = fmt.Sprintf("市值 %.2f亿在[%.0f, %.0f]范围内", cap, r.min, r.max)
		score = 1.0
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"market_cap": cap},
	}
}

// VolumeRatioRule filters stocks by volume ratio (量比). The score scales
// with how far the ratio clears the minimum, capped at 1.
type VolumeRatioRule struct {
	min float64
}

// NewVolumeRatioRule builds the rule with a minimum ratio.
func NewVolumeRatioRule(params Params) *VolumeRatioRule {
	return &VolumeRatioRule{min: params.Get("min_volume_ratio", 1.5)}
}

func (r *VolumeRatioRule) Key() string  { return KeyVolumeRatio }
func (r *VolumeRatioRule) Name() string { return "量比筛选" }

func (r *VolumeRatioRule) Check(stock StockContext) Result {
	ratio, ok := stock.Snapshot.Get(contracts.MetricVolumeRatio)
	if !ok {
		return missingMetric(contracts.MetricVolumeRatio, "量比")
	}

	passed := ratio >= r.min
	score := 0.0
	reason := fmt.Sprintf("量比 %.2f < %.2f", ratio, r.min)
	if passed {
		score = ratio / r.min
		if score > 1.0 {
			score = 1.0
		}
		reason = fmt.Sprintf("量比 %.2f >= %.2f", ratio, r.min)
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"volume_ratio": ratio},
	}
}

// PriceChangeRule filters stocks by daily price change percentage.
type PriceChangeRule struct {
	min float64
	max float64
}

// NewPriceChangeRule builds the rule with min/max percent bounds.
func NewPriceChangeRule(params Params) *PriceChangeRule {
	return &PriceChangeRule{
		min: params.Get("min_change_pct", -10),
		max: params.Get("max_change_pct", 10),
	}
}

func (r *PriceChangeRule) Key() string  { return KeyPriceChange }
func (r *PriceChangeRule) Name() string { return "涨跌幅筛选" }

func (r *PriceChangeRule) Check(stock StockContext) Result {
	changePct, ok := stock.Snapshot.Get(contracts.MetricChangePct)
	if !ok {
		return missingMetric(contracts.MetricChangePct, "涨跌幅")
	}

	passed := changePct >= r.min && changePct <= r.max
	reason := fmt.Sprintf("涨跌幅 %.2f%%不在[%.1f%%, %.1f%%]范围内", changePct, r.min, r.max)
	score := 0.0
	if passed {
		reason = fmt.Sprintf("涨跌幅 %.2f%%在[%.1f%%, %.1f%%]范围内", changePct, r.min, r.max)
		score = 1.0
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"change_pct": changePct},
	}
}

// TurnoverRateRule filters stocks by turnover rate (换手率).
type TurnoverRateRule struct {
	min float64
	max float64
}

// NewTurnoverRateRule builds the rule with min/max percent bounds.
func NewTurnoverRateRule(params Params) *TurnoverRateRule {
	return &TurnoverRateRule{
		min: params.Get("min_turnover", 2.0),
		max: params.Get("max_turnover", 20.0),
	}
}

func (r *TurnoverRateRule) Key() string  { return KeyTurnoverRate }
func (r *TurnoverRateRule) Name() string { return "换手率筛选" }

func (r *TurnoverRateRule) Check(stock StockContext) Result {
	rate, ok := stock.Snapshot.Get(contracts.MetricTurnoverRate)
	if !ok {
		return missingMetric(contracts.MetricTurnoverRate, "换手率")
	}

	passed := rate >= r.min && rate <= r.max
	reason := fmt.Sprintf("换手率 %.2f%%不在[%.1f%%, %.1f%%]范围内", rate, r.min, r.max)
	score := 0.0
	if passed {
		reason = fmt.Sprintf("换手率 %.2f%%在[%.1f%%, %.1f%%]范围内", rate, r.min, r.max)
		score = 1.0
	}

	return Result{
		Passed:  passed,
		Score:   score,
		Reason:  reason,
		Details: map[string]interface{}{"turnover_rate": rate},
	}
}
