package contracts

import "context"

// Metric names the closed set of snapshot values the rule engine understands.
// A metric absent from a Snapshot means the upstream could not provide it;
// rules must degrade gracefully, never fail hard on a gap.
type Metric string

const (
	MetricPrice        Metric = "price"
	MetricOpen         Metric = "open"
	MetricHigh         Metric = "high"
	MetricLow          Metric = "low"
	MetricPrevClose    Metric = "prev_close"
	MetricVolume       Metric = "volume"
	MetricTurnover     Metric = "turnover"
	MetricChangePct    Metric = "change_pct"
	MetricChangeAmount Metric = "change_amount"
	MetricTurnoverRate Metric = "turnover_rate"
	MetricVolumeRatio  Metric = "volume_ratio"
	MetricAmplitude    Metric = "amplitude"
	MetricPERatio      Metric = "pe_ratio"
	MetricPBRatio      Metric = "pb_ratio"
	MetricROE          Metric = "roe"
	MetricMarketCap    Metric = "market_cap"    // total market cap, 亿元
	MetricCircCap      Metric = "circulating_cap" // circulating market cap, 亿元
)

// Snapshot maps metric names to values. Missing keys mean "unknown".
type Snapshot map[Metric]float64

// Get returns the metric value and whether it is present.
func (s Snapshot) Get(m Metric) (float64, bool) {
	v, ok := s[m]
	return v, ok
}

// Set stores a metric value. Nil maps are left untouched.
func (s Snapshot) Set(m Metric, v float64) {
	if s != nil {
		s[m] = v
	}
}

// Merge copies metrics from other into s without overwriting existing keys.
func (s Snapshot) Merge(other Snapshot) {
	for m, v := range other {
		if _, ok := s[m]; !ok {
			s[m] = v
		}
	}
}

// BoardKind distinguishes exchange industry boards from concept boards.
type BoardKind string

const (
	BoardIndustry BoardKind = "industry"
	BoardConcept  BoardKind = "concept"
)

// Board is one exchange-maintained stock grouping.
type Board struct {
	Name string    `json:"name"`
	Code string    `json:"code"`
	Kind BoardKind `json:"kind"`
}

// Constituent is one stock inside a board, with whatever snapshot metrics
// the list endpoint happened to return.
type Constituent struct {
	Code     string
	Name     string
	Snapshot Snapshot
}

// MarketData is the market data gateway consumed by stage 3. Implementations
// paginate, deduplicate by stock code, and degrade unparseable fields to
// missing metrics instead of failing the call.
type MarketData interface {
	ListBoards(ctx context.Context) ([]Board, error)
	ListConstituents(ctx context.Context, board Board) ([]Constituent, error)
	GetSnapshot(ctx context.Context, code string) (Snapshot, error)
}

// BoardResolver maps a free-text sector/topic name to a catalog board.
type BoardResolver interface {
	Resolve(ctx context.Context, name string) (*Board, error)
	// CatalogNames returns the cached board names, for prompt candidates.
	CatalogNames(ctx context.Context) ([]string, error)
}
