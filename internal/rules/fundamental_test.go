package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

func TestPERatioRule(t *testing.T) {
	rule := NewPERatioRule(Params{"min_pe": 0, "max_pe": 50})

	tests := []struct {
		name       string
		pe         *float64
		wantPassed bool
		wantScore  float64
	}{
		{"reasonable PE", ptr(25.0), true, 1.0},
		{"negative PE (loss-making)", ptr(-12.0), false, 0},
		{"overvalued", ptr(180.0), false, 0},
		{"missing PE", nil, true, NeutralScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := contracts.Snapshot{}
			if tt.pe != nil {
				snap.Set(contracts.MetricPERatio, *tt.pe)
			}
			result := rule.Check(StockContext{StockCode: "600000", Snapshot: snap})
			assert.Equal(t, tt.wantPassed, result.Passed)
			assert.InDelta(t, tt.wantScore, result.Score, 1e-9)
		})
	}
}

func TestPBRatioRule(t *testing.T) {
	rule := NewPBRatioRule(Params{"min_pb": 0, "max_pb": 10})

	result := rule.Check(StockContext{
		Snapshot: contracts.Snapshot{contracts.MetricPBRatio: 3.2},
	})
	assert.True(t, result.Passed)

	result = rule.Check(StockContext{
		Snapshot: contracts.Snapshot{contracts.MetricPBRatio: 15.0},
	})
	assert.False(t, result.Passed)
}

func TestROERule(t *testing.T) {
	rule := NewROERule(Params{"min_roe": 5})

	result := rule.Check(StockContext{
		Snapshot: contracts.Snapshot{contracts.MetricROE: 12.5},
	})
	assert.True(t, result.Passed)

	result = rule.Check(StockContext{
		Snapshot: contracts.Snapshot{contracts.MetricROE: 2.0},
	})
	assert.False(t, result.Passed)

	result = rule.Check(StockContext{Snapshot: contracts.Snapshot{}})
	assert.True(t, result.Passed)
	assert.InDelta(t, NeutralScore, result.Score, 1e-9)
}

func ptr(v float64) *float64 { return &v }
