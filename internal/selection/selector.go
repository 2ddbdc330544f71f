package selection

import (
	"context"
	"fmt"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/internal/rules"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// Selector runs stage 4: score every pool-1 candidate against the enabled
// rules and write pool 2. It implements contracts.Selector.
type Selector struct {
	candidates contracts.CandidateRepository
	selections contracts.SelectionRepository
	configs    contracts.RuleConfigRepository
	engine     *rules.Engine
	logger     *logger.Logger
}

// NewSelector creates a selector over the shared rule engine.
func NewSelector(candidates contracts.CandidateRepository, selections contracts.SelectionRepository,
	configs contracts.RuleConfigRepository, engine *rules.Engine, log *logger.Logger) *Selector {
	return &Selector{
		candidates: candidates,
		selections: selections,
		configs:    configs,
		engine:     engine,
		logger:     log,
	}
}

// Select evaluates all candidates and returns the selected count. An empty
// pool is fatal; an empty selection set is a valid outcome. With no
// enabled rules in storage the built-in defaults apply.
func (s *Selector) Select(ctx context.Context, reportID int64) (int, error) {
	candidates, err := s.candidates.ListByReport(ctx, reportID)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, fmt.Errorf("report %d has no candidates", reportID)
	}

	configs, err := s.configs.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rule configs: %w", err)
	}
	if len(configs) == 0 {
		s.logger.Warn("No enabled rules stored, applying built-in defaults")
		configs = rules.DefaultConfigs()
	}

	selected := 0
	stored := 0
	for _, c := range candidates {
		eval := s.engine.Evaluate(rules.StockContext{
			StockCode: c.StockCode,
			StockName: c.StockName,
			Snapshot:  c.Snapshot,
			TopicID:   c.TopicID,
		}, configs)

		row := &contracts.Selection{
			ReportID:     reportID,
			CandidateID:  c.ID,
			StockCode:    c.StockCode,
			StockName:    c.StockName,
			TechScore:    eval.TechScore,
			FundScore:    eval.FundScore,
			TotalScore:   eval.TotalScore,
			RuleOutcomes: eval.Outcomes,
			IsSelected:   eval.IsSelected,
		}
		if _, err := s.selections.Add(ctx, row); err != nil {
			s.logger.WithError(err).WithField("stock", c.StockCode).Warn("Selection insert failed, skipping")
			continue
		}
		stored++
		if eval.IsSelected {
			selected++
		}
	}

	if stored == 0 {
		return 0, fmt.Errorf("no selections stored for report %d", reportID)
	}

	s.logger.WithFields(map[string]interface{}{
		"report_id":  reportID,
		"candidates": len(candidates),
		"selected":   selected,
	}).Info("Selection completed")

	return selected, nil
}
