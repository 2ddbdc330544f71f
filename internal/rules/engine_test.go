package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

func newTestEngine() *Engine {
	return NewEngine(DefaultRegistry(), logger.NewNop())
}

func TestEngine_AllRulesPassSelectsStock(t *testing.T) {
	engine := newTestEngine()

	stock := StockContext{
		StockCode: "300750",
		StockName: "宁德时代",
		Snapshot: contracts.Snapshot{
			contracts.MetricChangePct:    6.0,
			contracts.MetricTurnoverRate: 8.0,
			contracts.MetricVolumeRatio:  2.0,
			contracts.MetricMarketCap:    120,
			contracts.MetricPERatio:      30,
			contracts.MetricPBRatio:      4,
			contracts.MetricROE:          15,
		},
	}

	eval := engine.Evaluate(stock, DefaultConfigs())

	assert.True(t, eval.AllPassed)
	assert.True(t, eval.IsSelected)
	assert.Greater(t, eval.TotalScore, 0.0)
	assert.Len(t, eval.Outcomes, len(DefaultConfigs()))
	for _, o := range eval.Outcomes {
		assert.True(t, o.Passed, "rule %s should pass", o.RuleKey)
	}
}

func TestEngine_SingleFailingRuleBlocksSelection(t *testing.T) {
	engine := newTestEngine()

	// High scores everywhere except price change: the gate is strict.
	stock := StockContext{
		StockCode: "600519",
		Snapshot: contracts.Snapshot{
			contracts.MetricChangePct:    1.0, // below the 5% minimum
			contracts.MetricTurnoverRate: 8.0,
			contracts.MetricVolumeRatio:  3.0,
			contracts.MetricMarketCap:    200,
			contracts.MetricPERatio:      20,
			contracts.MetricPBRatio:      3,
			contracts.MetricROE:          25,
		},
	}

	eval := engine.Evaluate(stock, DefaultConfigs())

	assert.False(t, eval.AllPassed)
	assert.False(t, eval.IsSelected)
	assert.Greater(t, eval.TotalScore, 0.0, "score magnitude must not override the gate")
}

func TestEngine_MissingMetricsDegradeGracefully(t *testing.T) {
	engine := newTestEngine()

	// Snapshot with only price data: fundamentals are all unknown.
	stock := StockContext{
		StockCode: "002230",
		Snapshot: contracts.Snapshot{
			contracts.MetricChangePct:    7.0,
			contracts.MetricTurnoverRate: 5.0,
			contracts.MetricVolumeRatio:  2.5,
		},
	}

	eval := engine.Evaluate(stock, DefaultConfigs())

	assert.True(t, eval.AllPassed)
	assert.True(t, eval.IsSelected)
	// market_cap, pe, pb, roe each contribute the neutral score.
	assert.InDelta(t, NeutralScore, eval.FundScore, 1e-9)
}

func TestEngine_BucketNormalization(t *testing.T) {
	engine := newTestEngine()

	configs := []contracts.RuleConfig{
		{RuleKey: KeyPriceChange, Params: map[string]float64{"min_change_pct": 0, "max_change_pct": 10}},
		{RuleKey: KeyTurnoverRate, Params: map[string]float64{"min_turnover": 1, "max_turnover": 30}},
		{RuleKey: KeyPERatio, Params: map[string]float64{"min_pe": 0, "max_pe": 100}},
	}

	stock := StockContext{
		Snapshot: contracts.Snapshot{
			contracts.MetricChangePct:    4.0,
			contracts.MetricTurnoverRate: 6.0,
			contracts.MetricPERatio:      40,
		},
	}

	eval := engine.Evaluate(stock, configs)

	// Two technical rules at 1.0 each, one fundamental at 1.0.
	assert.InDelta(t, 1.0, eval.TechScore, 1e-9)
	assert.InDelta(t, 1.0, eval.FundScore, 1e-9)
	assert.InDelta(t, 3.0, eval.TotalScore, 1e-9)
}

func TestEngine_NoFundamentalRulesMeansZeroFundScore(t *testing.T) {
	engine := newTestEngine()

	configs := []contracts.RuleConfig{
		{RuleKey: KeyPriceChange, Params: map[string]float64{"min_change_pct": 0, "max_change_pct": 10}},
	}

	eval := engine.Evaluate(StockContext{
		Snapshot: contracts.Snapshot{contracts.MetricChangePct: 3.0},
	}, configs)

	assert.Zero(t, eval.FundScore)
	assert.True(t, eval.IsSelected)
}

func TestEngine_UnknownRuleKeyFailsThatRuleOnly(t *testing.T) {
	engine := newTestEngine()

	configs := []contracts.RuleConfig{
		{RuleKey: "golden_cross", Params: nil}, // not registered
		{RuleKey: KeyPriceChange, Params: map[string]float64{"min_change_pct": 0, "max_change_pct": 10}},
	}

	eval := engine.Evaluate(StockContext{
		Snapshot: contracts.Snapshot{contracts.MetricChangePct: 3.0},
	}, configs)

	require.Len(t, eval.Outcomes, 2)
	assert.False(t, eval.Outcomes[0].Passed)
	assert.True(t, eval.Outcomes[1].Passed)
	assert.False(t, eval.AllPassed)
	assert.False(t, eval.IsSelected)
}

func TestEngine_ZeroTotalScoreBlocksSelection(t *testing.T) {
	engine := newTestEngine()

	// No rules configured: all-passed vacuously true, but total score 0.
	eval := engine.Evaluate(StockContext{Snapshot: contracts.Snapshot{}}, nil)

	assert.True(t, eval.AllPassed)
	assert.False(t, eval.IsSelected)
}

func TestRegistry_DuplicateKeyRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("x", func(p Params) Rule { return NewROERule(p) }))
	assert.Error(t, r.Register("x", func(p Params) Rule { return NewROERule(p) }))
}

func TestRegistry_UnknownKey(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.New("does_not_exist", nil)
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestDefaultRegistry_CoversDefaultConfigs(t *testing.T) {
	r := DefaultRegistry()
	for _, cfg := range DefaultConfigs() {
		_, err := r.New(cfg.RuleKey, Params(cfg.Params))
		assert.NoError(t, err, "default config %s must be registered", cfg.RuleKey)
	}
}
