package sourcing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fenghou-lab/hotpick/internal/boards"
	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// Sourcer runs stage 3: resolve each topic's boards and pull their
// constituents into pool 1. It implements contracts.CandidateSourcer.
type Sourcer struct {
	topics     contracts.TopicRepository
	candidates contracts.CandidateRepository
	resolver   contracts.BoardResolver
	market     contracts.MarketData

	concurrency int
	logger      *logger.Logger
}

// NewSourcer creates a candidate sourcer with a bounded fetch pool.
func NewSourcer(topics contracts.TopicRepository, candidates contracts.CandidateRepository,
	resolver contracts.BoardResolver, market contracts.MarketData,
	concurrency int, log *logger.Logger) *Sourcer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sourcer{
		topics:      topics,
		candidates:  candidates,
		resolver:    resolver,
		market:      market,
		concurrency: concurrency,
		logger:      log,
	}
}

// unit is one topic-board fetch. Board names repeated across topics are
// fetched once per topic so each candidate keeps its topic attribution.
type unit struct {
	topicID   int64
	boardName string
}

// Source fills pool 1 for the report. Unresolvable boards and failing board
// fetches are skipped; the stage fails only when the pool stays empty.
func (s *Sourcer) Source(ctx context.Context, reportID int64) (int, error) {
	topics, err := s.topics.ListByReport(ctx, reportID)
	if err != nil {
		return 0, err
	}
	if len(topics) == 0 {
		return 0, fmt.Errorf("report %d has no topics", reportID)
	}

	units := buildUnits(topics)

	var mu sync.Mutex
	added := 0
	seen := make(map[string]bool) // topicID:code

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, u := range units {
		g.Go(func() error {
			cons, board, err := s.fetchBoard(gctx, u)
			if err != nil {
				// Per-unit failure; cancellation is the only fatal case.
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				return nil
			}

			for _, stock := range cons {
				key := fmt.Sprintf("%d:%s", u.topicID, stock.Code)

				mu.Lock()
				if seen[key] {
					mu.Unlock()
					continue
				}
				seen[key] = true
				mu.Unlock()

				topicID := u.topicID
				candidate := &contracts.Candidate{
					ReportID:    reportID,
					TopicID:     &topicID,
					StockCode:   stock.Code,
					StockName:   stock.Name,
					Snapshot:    stock.Snapshot,
					MatchReason: "来自板块: " + board.Name,
				}
				if _, err := s.candidates.Add(gctx, candidate); err != nil {
					s.logger.WithError(err).WithField("stock", stock.Code).Warn("Candidate insert failed, skipping")
					continue
				}

				mu.Lock()
				added++
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return added, err
	}

	if added == 0 {
		return 0, fmt.Errorf("no candidates sourced for report %d", reportID)
	}

	s.logger.WithFields(map[string]interface{}{
		"report_id":  reportID,
		"topics":     len(topics),
		"units":      len(units),
		"candidates": added,
	}).Info("Candidates sourced")

	return added, nil
}

func (s *Sourcer) fetchBoard(ctx context.Context, u unit) ([]contracts.Constituent, *contracts.Board, error) {
	board, err := s.resolver.Resolve(ctx, u.boardName)
	if err != nil {
		if errors.Is(err, boards.ErrNoBoardMatch) {
			s.logger.WithField("sector", u.boardName).Warn("No board matched, skipping")
		} else {
			s.logger.WithError(err).WithField("sector", u.boardName).Warn("Board resolution failed, skipping")
		}
		return nil, nil, err
	}

	cons, err := s.market.ListConstituents(ctx, *board)
	if err != nil {
		s.logger.WithError(err).WithField("board", board.Name).Warn("Constituent fetch failed, skipping")
		return nil, nil, err
	}

	return cons, board, nil
}

// buildUnits expands topics into topic-board fetches. A topic without board
// suggestions falls back to its own name.
func buildUnits(topics []contracts.Topic) []unit {
	var units []unit
	for _, t := range topics {
		names := t.RelatedBoards
		if len(names) == 0 {
			names = []string{t.Name}
		}

		perTopic := make(map[string]bool)
		for _, name := range names {
			if name == "" || perTopic[name] {
				continue
			}
			perTopic[name] = true
			units = append(units, unit{topicID: t.ID, boardName: name})
		}
	}
	return units
}
