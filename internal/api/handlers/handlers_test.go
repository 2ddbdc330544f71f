package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/internal/rules"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/logger"
	"github.com/fenghou-lab/hotpick/pkg/redis"
)

type fakeRuleConfigs struct {
	configs  []contracts.RuleConfig
	upserted []contracts.RuleConfig
	listErr  error
}

func (f *fakeRuleConfigs) List(ctx context.Context) ([]contracts.RuleConfig, error) {
	return f.configs, f.listErr
}

func (f *fakeRuleConfigs) ListEnabled(ctx context.Context) ([]contracts.RuleConfig, error) {
	return f.configs, f.listErr
}

func (f *fakeRuleConfigs) Upsert(ctx context.Context, cfg *contracts.RuleConfig) error {
	f.upserted = append(f.upserted, *cfg)
	return nil
}

type fakeQuoteMarket struct {
	snapshot contracts.Snapshot
	err      error
	calls    int
}

func (f *fakeQuoteMarket) ListBoards(ctx context.Context) ([]contracts.Board, error) {
	return nil, nil
}

func (f *fakeQuoteMarket) ListConstituents(ctx context.Context, board contracts.Board) ([]contracts.Constituent, error) {
	return nil, nil
}

func (f *fakeQuoteMarket) GetSnapshot(ctx context.Context, code string) (contracts.Snapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

func disabledCache(t *testing.T) *redis.Cache {
	t.Helper()
	client, err := redis.New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return redis.NewCache(client, "test")
}

func TestRuleHandlerList(t *testing.T) {
	configs := &fakeRuleConfigs{configs: []contracts.RuleConfig{
		{RuleKey: "market_cap", Name: "市值", Params: map[string]float64{"min_market_cap": 50}, Enabled: true},
		{RuleKey: "pe_ratio", Name: "市盈率", Params: map[string]float64{"max_pe": 100}, Enabled: false},
	}}
	h := NewRuleHandler(configs, rules.DefaultRegistry(), logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/rules", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rules []struct {
			RuleKey string `json:"rule_key"`
			Enabled bool   `json:"enabled"`
		} `json:"rules"`
		AvailableKeys []string `json:"available_keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rules, 2)
	assert.Equal(t, "market_cap", body.Rules[0].RuleKey)
	assert.False(t, body.Rules[1].Enabled)
	assert.Contains(t, body.AvailableKeys, "volume_ratio")
}

func TestRuleHandlerUpdate(t *testing.T) {
	configs := &fakeRuleConfigs{}
	h := NewRuleHandler(configs, rules.DefaultRegistry(), logger.NewNop())

	payload := `{"name":"涨幅", "params":{"min_change_pct":3,"max_change_pct":9}, "enabled":false}`
	req := httptest.NewRequest(http.MethodPut, "/api/rules/price_change", strings.NewReader(payload))
	req = mux.SetURLVars(req, map[string]string{"key": "price_change"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, configs.upserted, 1)
	assert.Equal(t, "price_change", configs.upserted[0].RuleKey)
	assert.False(t, configs.upserted[0].Enabled)
	assert.Equal(t, 3.0, configs.upserted[0].Params["min_change_pct"])
}

func TestRuleHandlerUpdateRejectsUnknownKey(t *testing.T) {
	configs := &fakeRuleConfigs{}
	h := NewRuleHandler(configs, rules.DefaultRegistry(), logger.NewNop())

	req := httptest.NewRequest(http.MethodPut, "/api/rules/golden_cross", strings.NewReader(`{"params":{}}`))
	req = mux.SetURLVars(req, map[string]string{"key": "golden_cross"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, configs.upserted)
}

func TestStockHandlerGetQuote(t *testing.T) {
	market := &fakeQuoteMarket{snapshot: contracts.Snapshot{
		contracts.MetricPrice:     1720.5,
		contracts.MetricChangePct: 2.1,
	}}
	h := NewStockHandler(market, disabledCache(t), logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/600519/quote", nil)
	req = mux.SetURLVars(req, map[string]string{"code": "600519"})
	rec := httptest.NewRecorder()
	h.GetQuote(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, market.calls)

	var body struct {
		Code     string             `json:"code"`
		Snapshot map[string]float64 `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "600519", body.Code)
	assert.Equal(t, 1720.5, body.Snapshot["price"])
}

func TestStockHandlerGetQuoteUpstreamFailure(t *testing.T) {
	market := &fakeQuoteMarket{err: errors.New("upstream down")}
	h := NewStockHandler(market, disabledCache(t), logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/600519/quote", nil)
	req = mux.SetURLVars(req, map[string]string{"code": "600519"})
	rec := httptest.NewRecorder()
	h.GetQuote(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
