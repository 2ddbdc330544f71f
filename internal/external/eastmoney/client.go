package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/httputil"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// Token the public delayed-quote endpoints expect. Not a secret.
const clistToken = "bd1d9ddb04089700cf9c27f6f7426281"

// Screener filters for the clist endpoint.
const (
	fsIndustryBoards = "m:90+t:2"
	fsConceptBoards  = "m:90+t:3"
)

// Field sets requested per call. Board listings only need code and name;
// constituent listings pull every quote column the rule engine can use.
const (
	boardFields       = "f12,f14"
	constituentFields = "f12,f14,f2,f3,f8,f9,f10,f17,f18,f20,f23,f37"
)

// Client fetches boards and delayed quotes from the EastMoney push2delay
// API. It implements contracts.MarketData.
type Client struct {
	http     *httputil.Client
	baseURL  string
	pageSize int
	maxPages int
	limiter  *rate.Limiter
	logger   *logger.Logger
}

// New creates an EastMoney client from configuration.
func New(cfg *config.Config, log *logger.Logger) *Client {
	emCfg := cfg.EastMoney
	limit := rate.Limit(emCfg.RatePerSec)
	if emCfg.RatePerSec <= 0 {
		limit = rate.Inf
	}
	return &Client{
		http:     httputil.New(log, emCfg.Timeout),
		baseURL:  strings.TrimRight(emCfg.BaseURL, "/"),
		pageSize: emCfg.PageSize,
		maxPages: emCfg.MaxPages,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   log,
	}
}

// clistResponse is the envelope of api/qt/clist/get. Quote columns arrive
// with mixed types: numbers normally, the string "-" when unavailable.
type clistResponse struct {
	Data *struct {
		Total int                      `json:"total"`
		Diff  []map[string]interface{} `json:"diff"`
	} `json:"data"`
}

// ListBoards returns all industry and concept boards.
func (c *Client) ListBoards(ctx context.Context) ([]contracts.Board, error) {
	industry, err := c.listBoardKind(ctx, fsIndustryBoards, contracts.BoardIndustry)
	if err != nil {
		return nil, fmt.Errorf("list industry boards: %w", err)
	}

	concept, err := c.listBoardKind(ctx, fsConceptBoards, contracts.BoardConcept)
	if err != nil {
		return nil, fmt.Errorf("list concept boards: %w", err)
	}

	return append(industry, concept...), nil
}

func (c *Client) listBoardKind(ctx context.Context, fs string, kind contracts.BoardKind) ([]contracts.Board, error) {
	rows, err := c.listAll(ctx, fs, boardFields, "f3")
	if err != nil {
		return nil, err
	}

	boards := make([]contracts.Board, 0, len(rows))
	for _, row := range rows {
		code := asString(row["f12"])
		name := asString(row["f14"])
		if code == "" || name == "" {
			continue
		}
		boards = append(boards, contracts.Board{Name: name, Code: code, Kind: kind})
	}
	return boards, nil
}

// ListConstituents returns the stocks of one board with their quote
// snapshots. Unparseable quote columns become missing metrics.
func (c *Client) ListConstituents(ctx context.Context, board contracts.Board) ([]contracts.Constituent, error) {
	fs := fmt.Sprintf("b:%s+f:!50", board.Code)
	rows, err := c.listAll(ctx, fs, constituentFields, "f3")
	if err != nil {
		return nil, fmt.Errorf("list constituents of %s: %w", board.Name, err)
	}

	out := make([]contracts.Constituent, 0, len(rows))
	for _, row := range rows {
		code := asString(row["f12"])
		name := asString(row["f14"])
		if code == "" || name == "" {
			continue
		}
		out = append(out, contracts.Constituent{
			Code:     code,
			Name:     name,
			Snapshot: constituentSnapshot(row),
		})
	}
	return out, nil
}

// listAll pages through the clist endpoint until a short page, a repeat of
// an already-seen code set, or the page cap. Results are deduplicated by
// stock/board code; the upstream occasionally repeats rows across pages.
func (c *Client) listAll(ctx context.Context, fs, fields, fid string) ([]map[string]interface{}, error) {
	seen := make(map[string]bool)
	var rows []map[string]interface{}

	for page := 1; page <= c.maxPages; page++ {
		diff, err := c.listPage(ctx, fs, fields, fid, page)
		if err != nil {
			return nil, err
		}
		if len(diff) == 0 {
			break
		}

		added := 0
		for _, row := range diff {
			code := asString(row["f12"])
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			rows = append(rows, row)
			added++
		}

		if len(diff) < c.pageSize || added == 0 {
			break
		}
	}

	return rows, nil
}

func (c *Client) listPage(ctx context.Context, fs, fields, fid string, page int) ([]map[string]interface{}, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("pn", strconv.Itoa(page))
	params.Set("pz", strconv.Itoa(c.pageSize))
	params.Set("po", "1")
	params.Set("np", "1")
	params.Set("ut", clistToken)
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("fid", fid)
	params.Set("fs", fs)
	params.Set("fields", fields)

	reqURL := fmt.Sprintf("%s/api/qt/clist/get?%s", c.baseURL, params.Encode())

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, fmt.Errorf("eastmoney clist returned status %d", resp.StatusCode)
	}

	var body clistResponse
	if err := httputil.ReadJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, nil
	}
	return body.Data.Diff, nil
}

// constituentSnapshot maps clist quote columns to metrics. Market caps come
// back in yuan and are stored in 亿元 to match rule parameter units.
func constituentSnapshot(row map[string]interface{}) contracts.Snapshot {
	snap := make(contracts.Snapshot)
	putMetric(snap, contracts.MetricPrice, row["f2"], 1)
	putMetric(snap, contracts.MetricChangePct, row["f3"], 1)
	putMetric(snap, contracts.MetricTurnoverRate, row["f8"], 1)
	putMetric(snap, contracts.MetricPERatio, row["f9"], 1)
	putMetric(snap, contracts.MetricVolumeRatio, row["f10"], 1)
	putMetric(snap, contracts.MetricOpen, row["f17"], 1)
	putMetric(snap, contracts.MetricPrevClose, row["f18"], 1)
	putMetric(snap, contracts.MetricMarketCap, row["f20"], 1e8)
	putMetric(snap, contracts.MetricPBRatio, row["f23"], 1)
	putMetric(snap, contracts.MetricROE, row["f37"], 1)
	return snap
}

// putMetric stores a quote column when it parses as a number, dividing by
// scale. "-" and null columns are dropped so rules see a missing metric.
func putMetric(snap contracts.Snapshot, m contracts.Metric, raw interface{}, scale float64) {
	v, ok := asFloat(raw)
	if !ok {
		return
	}
	snap.Set(m, v/scale)
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asString(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
