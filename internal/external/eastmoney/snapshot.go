package eastmoney

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/httputil"
)

// Single-stock quote fields for api/qt/stock/get. The endpoint uses a
// different field numbering than clist.
const snapshotFields = "f43,f44,f45,f46,f50,f60,f116,f117,f162,f167,f168,f170,f173"

type stockGetResponse struct {
	Data map[string]interface{} `json:"data"`
}

// GetSnapshot fetches one stock's delayed quote by six-digit code.
func (c *Client) GetSnapshot(ctx context.Context, code string) (contracts.Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("ut", clistToken)
	params.Set("fltt", "2")
	params.Set("invt", "2")
	params.Set("secid", secID(code))
	params.Set("fields", snapshotFields)

	reqURL := fmt.Sprintf("%s/api/qt/stock/get?%s", c.baseURL, params.Encode())

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, fmt.Errorf("eastmoney stock/get returned status %d", resp.StatusCode)
	}

	var body stockGetResponse
	if err := httputil.ReadJSON(resp, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("no quote data for %s", code)
	}

	snap := make(contracts.Snapshot)
	putMetric(snap, contracts.MetricPrice, body.Data["f43"], 1)
	putMetric(snap, contracts.MetricHigh, body.Data["f44"], 1)
	putMetric(snap, contracts.MetricLow, body.Data["f45"], 1)
	putMetric(snap, contracts.MetricOpen, body.Data["f46"], 1)
	putMetric(snap, contracts.MetricVolumeRatio, body.Data["f50"], 1)
	putMetric(snap, contracts.MetricPrevClose, body.Data["f60"], 1)
	putMetric(snap, contracts.MetricMarketCap, body.Data["f116"], 1e8)
	putMetric(snap, contracts.MetricCircCap, body.Data["f117"], 1e8)
	putMetric(snap, contracts.MetricPERatio, body.Data["f162"], 1)
	putMetric(snap, contracts.MetricPBRatio, body.Data["f167"], 1)
	putMetric(snap, contracts.MetricTurnoverRate, body.Data["f168"], 1)
	putMetric(snap, contracts.MetricChangePct, body.Data["f170"], 1)
	putMetric(snap, contracts.MetricROE, body.Data["f173"], 1)
	return snap, nil
}

// secID prefixes the exchange market id: 1 for Shanghai listings, 0 for
// Shenzhen and Beijing.
func secID(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") || strings.HasPrefix(code, "5") {
		return "1." + code
	}
	return "0." + code
}
