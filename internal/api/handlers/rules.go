package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/internal/rules"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// RuleHandler handles rule configuration endpoints. Rule edits take effect
// on the next stage-4 run; stored selections are never rewritten.
type RuleHandler struct {
	configs  contracts.RuleConfigRepository
	registry *rules.Registry
	logger   *logger.Logger
}

// NewRuleHandler creates a new rule handler.
func NewRuleHandler(configs contracts.RuleConfigRepository, registry *rules.Registry, log *logger.Logger) *RuleHandler {
	return &RuleHandler{configs: configs, registry: registry, logger: log}
}

type ruleView struct {
	RuleKey   string             `json:"rule_key"`
	Name      string             `json:"name"`
	Params    map[string]float64 `json:"params"`
	Enabled   bool               `json:"enabled"`
	SortOrder int                `json:"sort_order"`
}

// List returns all stored rule configurations.
// GET /api/rules
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.configs.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list rules")
		respondError(w, http.StatusInternalServerError, "Failed to list rules")
		return
	}

	out := make([]ruleView, 0, len(configs))
	for _, c := range configs {
		out = append(out, ruleView{
			RuleKey:   c.RuleKey,
			Name:      c.Name,
			Params:    c.Params,
			Enabled:   c.Enabled,
			SortOrder: c.SortOrder,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules":          out,
		"available_keys": h.registry.Keys(),
	})
}

// Update upserts one rule configuration. The key must name a registered rule.
// PUT /api/rules/{key}
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req struct {
		Name      string             `json:"name"`
		Params    map[string]float64 `json:"params"`
		Enabled   *bool              `json:"enabled"`
		SortOrder int                `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.registry.New(key, req.Params); err != nil {
		respondError(w, http.StatusBadRequest, "Unknown rule key: "+key)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	cfg := &contracts.RuleConfig{
		RuleKey:   key,
		Name:      req.Name,
		Params:    req.Params,
		Enabled:   enabled,
		SortOrder: req.SortOrder,
	}
	if err := h.configs.Upsert(r.Context(), cfg); err != nil {
		h.logger.WithError(err).WithField("rule_key", key).Error("Failed to update rule")
		respondError(w, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	respondJSON(w, http.StatusOK, ruleView{
		RuleKey:   cfg.RuleKey,
		Name:      cfg.Name,
		Params:    cfg.Params,
		Enabled:   cfg.Enabled,
		SortOrder: cfg.SortOrder,
	})
}
