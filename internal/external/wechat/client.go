package wechat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/httputil"
	"github.com/fenghou-lab/hotpick/pkg/logger"
	"github.com/fenghou-lab/hotpick/pkg/redis"
)

const listPath = "/fbmain/monitor/v3/post_condition"

// Upstream business codes worth one more attempt: rate limit and transient
// network wobble on the provider side.
var retryableCodes = map[int]bool{-1: true, 111: true, 112: true}

// Client sources public-account articles through a third-party monitoring
// API, then fetches each article page to extract its text. It implements
// contracts.ArticleSource.
type Client struct {
	http    *httputil.Client
	baseURL string
	apiKey  string
	logger  *logger.Logger
}

// New creates a WeChat article source from configuration.
func New(cfg *config.Config, log *logger.Logger) *Client {
	wcCfg := cfg.WeChat
	return &Client{
		http:    httputil.New(log, wcCfg.Timeout),
		baseURL: strings.TrimRight(wcCfg.BaseURL, "/"),
		apiKey:  wcCfg.APIKey,
		logger:  log,
	}
}

// WithRateLimiter bounds list calls across processes sharing one API key.
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.http.WithRateLimiter(limiter, cfg)
	return c
}

type listRequest struct {
	Biz        string `json:"biz"`
	URL        string `json:"url"`
	Name       string `json:"name"`
	Key        string `json:"key"`
	VerifyCode string `json:"verifycode"`
}

type listResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Title    string `json:"title"`
		Digest   string `json:"digest"`
		URL      string `json:"url"`
		PostTime int64  `json:"post_time"`
	} `json:"data"`
}

// FetchLatest returns up to limit recent articles for one account. Article
// pages that cannot be fetched degrade to the digest text instead of
// failing the account.
func (c *Client) FetchLatest(ctx context.Context, account string, limit int) ([]contracts.SourcedArticle, error) {
	list, err := c.fetchList(ctx, account)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(list.Data) > limit {
		list.Data = list.Data[:limit]
	}

	articles := make([]contracts.SourcedArticle, 0, len(list.Data))
	for _, item := range list.Data {
		title := strings.TrimSpace(item.Title)
		url := strings.TrimSpace(item.URL)
		if title == "" || url == "" {
			continue
		}

		content := c.fetchBody(ctx, url)
		if content == "" {
			content = strings.TrimSpace(item.Digest)
		}

		articles = append(articles, contracts.SourcedArticle{
			Title:         title,
			Content:       content,
			SourceAccount: account,
			PublishedAt:   time.Unix(item.PostTime, 0),
			URL:           url,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"account":  account,
		"articles": len(articles),
	}).Info("Account articles fetched")

	return articles, nil
}

func (c *Client) fetchList(ctx context.Context, account string) (*listResponse, error) {
	req := listRequest{Name: account, Key: c.apiKey}

	var list listResponse
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := c.http.PostJSON(ctx, c.baseURL+listPath, req)
		if err != nil {
			return nil, fmt.Errorf("list articles for %s: %w", account, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("article list API returned status %d", resp.StatusCode)
		}

		if err := httputil.ReadJSON(resp, &list); err != nil {
			return nil, err
		}
		if list.Code == 0 {
			return &list, nil
		}
		if !retryableCodes[list.Code] || attempt == 3 {
			break
		}

		c.logger.WithFields(map[string]interface{}{
			"account": account,
			"code":    list.Code,
			"attempt": attempt,
		}).Warn("Article list API busy, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	return nil, fmt.Errorf("article list API failed for %s: code=%d msg=%s", account, list.Code, list.Msg)
}

// fetchBody downloads one article page and extracts its readable text.
// Failures are logged and return empty; the caller falls back to the digest.
func (c *Client) fetchBody(ctx context.Context, url string) string {
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Warn("Article page fetch failed")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		}).Warn("Article page fetch failed")
		return ""
	}

	text, err := extractText(resp.Body)
	if err != nil {
		c.logger.WithError(err).WithField("url", url).Warn("Article page parse failed")
		return ""
	}
	return text
}
