package rules

import "github.com/fenghou-lab/hotpick/internal/contracts"

// DefaultConfigs returns the stock rule set seeded on first startup.
// The positive price-change minimum deliberately keeps only stocks already
// moving with their theme; quiet constituents of a hot board are noise.
func DefaultConfigs() []contracts.RuleConfig {
	return []contracts.RuleConfig{
		{
			RuleKey:   KeyMarketCap,
			Name:      "市值筛选",
			Params:    map[string]float64{"min_market_cap": 50, "max_market_cap": 500},
			Enabled:   true,
			SortOrder: 1,
		},
		{
			RuleKey:   KeyVolumeRatio,
			Name:      "量比筛选",
			Params:    map[string]float64{"min_volume_ratio": 1.5},
			Enabled:   true,
			SortOrder: 2,
		},
		{
			RuleKey:   KeyPriceChange,
			Name:      "涨跌幅筛选",
			Params:    map[string]float64{"min_change_pct": 5, "max_change_pct": 10},
			Enabled:   true,
			SortOrder: 3,
		},
		{
			RuleKey:   KeyTurnoverRate,
			Name:      "换手率筛选",
			Params:    map[string]float64{"min_turnover": 2.0, "max_turnover": 20.0},
			Enabled:   true,
			SortOrder: 4,
		},
		{
			RuleKey:   KeyPERatio,
			Name:      "市盈率筛选",
			Params:    map[string]float64{"min_pe": 0, "max_pe": 50},
			Enabled:   true,
			SortOrder: 5,
		},
		{
			RuleKey:   KeyPBRatio,
			Name:      "市净率筛选",
			Params:    map[string]float64{"min_pb": 0, "max_pb": 10},
			Enabled:   true,
			SortOrder: 6,
		},
		{
			RuleKey:   KeyROE,
			Name:      "ROE筛选",
			Params:    map[string]float64{"min_roe": 0},
			Enabled:   true,
			SortOrder: 7,
		},
	}
}
