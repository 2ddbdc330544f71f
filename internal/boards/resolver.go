package boards

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// ErrNoBoardMatch is returned when a sector name matches nothing in the
// board catalog. Callers treat it as a skippable per-item condition.
var ErrNoBoardMatch = errors.New("no matching board")

// Resolver maps free-text sector names from topic extraction to catalog
// boards. Article sectors are usually broader than exchange board names, so
// matching runs through a fixed precedence of exact match, curated aliases,
// then substring heuristics in both directions.
type Resolver struct {
	catalog *Catalog
	logger  *logger.Logger
}

// NewResolver creates a resolver over a board catalog.
func NewResolver(catalog *Catalog, log *logger.Logger) *Resolver {
	return &Resolver{catalog: catalog, logger: log}
}

// CatalogNames returns every board name in the catalog, for use as LLM
// prompt candidates.
func (r *Resolver) CatalogNames(ctx context.Context) ([]string, error) {
	boards, err := r.catalog.Boards(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(boards))
	for _, b := range boards {
		names = append(names, b.Name)
	}
	return names, nil
}

// Resolve maps one sector name to a board. Precedence:
//  1. exact catalog name
//  2. alias table, exact then substring per preferred name
//  3. board names containing the sector (shortest, then lexicographic)
//  4. board names contained in the sector (longest, then lexicographic)
func (r *Resolver) Resolve(ctx context.Context, name string) (*contracts.Board, error) {
	sector := strings.TrimSpace(name)
	if sector == "" {
		return nil, ErrNoBoardMatch
	}

	boards, err := r.catalog.Boards(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]contracts.Board, len(boards))
	for _, b := range boards {
		byName[b.Name] = b
	}

	if b, ok := byName[sector]; ok {
		return &b, nil
	}

	for _, preferred := range sectorAliases[sector] {
		if b, ok := byName[preferred]; ok {
			r.logger.WithFields(map[string]interface{}{
				"sector": sector,
				"board":  b.Name,
			}).Debug("Sector resolved via alias")
			return &b, nil
		}
	}
	for _, preferred := range sectorAliases[sector] {
		if b := pickContaining(boards, preferred); b != nil {
			return b, nil
		}
	}

	if b := pickContaining(boards, sector); b != nil {
		r.logger.WithFields(map[string]interface{}{
			"sector": sector,
			"board":  b.Name,
		}).Debug("Sector resolved via substring")
		return b, nil
	}

	if b := pickContainedIn(boards, sector); b != nil {
		return b, nil
	}

	return nil, ErrNoBoardMatch
}

// pickContaining returns the board whose name contains needle, preferring
// the shortest name, then lexicographic order.
func pickContaining(boards []contracts.Board, needle string) *contracts.Board {
	var matches []contracts.Board
	for _, b := range boards {
		if strings.Contains(b.Name, needle) {
			matches = append(matches, b)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(matches[i].Name), utf8.RuneCountInString(matches[j].Name)
		if li != lj {
			return li < lj
		}
		return matches[i].Name < matches[j].Name
	})
	return &matches[0]
}

// pickContainedIn returns the board whose name is a substring of the sector,
// preferring the longest name, then lexicographic order.
func pickContainedIn(boards []contracts.Board, sector string) *contracts.Board {
	var matches []contracts.Board
	for _, b := range boards {
		if b.Name != "" && strings.Contains(sector, b.Name) {
			matches = append(matches, b)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(matches[i].Name), utf8.RuneCountInString(matches[j].Name)
		if li != lj {
			return li > lj
		}
		return matches[i].Name < matches[j].Name
	})
	return &matches[0]
}
