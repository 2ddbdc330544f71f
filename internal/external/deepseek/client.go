package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/httputil"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// ErrMalformedResponse is returned when the model reply cannot be parsed
// into topics. Callers treat it as a stage failure, not a retry hint.
var ErrMalformedResponse = errors.New("malformed extraction response")

const systemPrompt = "你是一个专业的A股题材挖掘分析师。"

const promptHeader = `你是一个专业的A股题材挖掘分析师。请分析以下公众号文章内容，提炼出其中提到的热点板块/题材。

要求：
1. 识别文章中提到的所有行业板块、概念题材
2. 对于每个热点，给出简短的逻辑描述
3. 尝试匹配东方财富网的板块名称（如"人工智能"、"新能源汽车"、"低空经济"、"机器人"、"半导体"等）
`

const promptFormat = `
请以JSON格式返回，格式如下：
{
  "topics": [
    {
      "topic_name": "板块名称",
      "related_boards": ["东财板块名1", "东财板块名2"],
      "logic_summary": "逻辑摘要，简短说明为什么这个题材是热点"
    }
  ]
}

文章内容：
`

// Client calls the DeepSeek chat completions API to extract hot topics from
// article batches. It implements contracts.TopicExtractor.
type Client struct {
	http      *httputil.Client
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	logger    *logger.Logger
}

// New creates a DeepSeek client from configuration.
func New(cfg *config.Config, log *logger.Logger) *Client {
	dsCfg := cfg.DeepSeek
	return &Client{
		// A truncated completion is not transient; do not retry it.
		http:      httputil.New(log, dsCfg.Timeout).WithRetry(2, 0),
		baseURL:   strings.TrimRight(dsCfg.BaseURL, "/"),
		apiKey:    dsCfg.APIKey,
		model:     dsCfg.Model,
		maxTokens: dsCfg.MaxTokens,
		logger:    log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type extractionPayload struct {
	Topics []struct {
		TopicName     string   `json:"topic_name"`
		RelatedBoards []string `json:"related_boards"`
		LogicSummary  string   `json:"logic_summary"`
	} `json:"topics"`
}

// ExtractTopics sends one batched prompt for all articles and parses the
// JSON reply. Topics without a name are dropped.
func (c *Client) ExtractTopics(ctx context.Context, req contracts.ExtractionRequest) ([]contracts.ExtractedTopic, error) {
	if len(req.Articles) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(req)

	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   c.maxTokens,
	}

	content, err := c.complete(ctx, body)
	if err != nil {
		return nil, err
	}

	topics, err := parseTopics(content)
	if err != nil {
		c.logger.WithError(err).WithField("raw", truncate(content, 500)).Error("Topic extraction reply unparseable")
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"articles": len(req.Articles),
		"topics":   len(topics),
	}).Info("Topics extracted")

	return topics, nil
}

func (c *Client) complete(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deepseek request failed: %w", err)
	}

	var chat chatResponse
	if err := httputil.ReadJSON(resp, &chat); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if chat.Error != nil {
			msg = chat.Error.Message
		}
		return "", fmt.Errorf("deepseek returned status %d: %s", resp.StatusCode, msg)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	return chat.Choices[0].Message.Content, nil
}

// buildPrompt assembles the extraction prompt. When candidate board names
// are known the model is told to pick from them verbatim, which makes stage
// 3 resolution far more reliable.
func buildPrompt(req contracts.ExtractionRequest) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	if len(req.CandidateBoards) > 0 {
		b.WriteString("4. related_boards 中的名称必须从以下候选板块列表中原样选取：\n")
		b.WriteString(strings.Join(req.CandidateBoards, "、"))
		b.WriteString("\n")
	}

	b.WriteString(promptFormat)

	for _, a := range req.Articles {
		b.WriteString("【")
		b.WriteString(a.Title)
		b.WriteString("】\n")
		b.WriteString(a.Content)
		b.WriteString("\n\n")
	}

	return b.String()
}

// parseTopics decodes the model reply, tolerating a Markdown code fence
// around the JSON object.
func parseTopics(content string) ([]contracts.ExtractedTopic, error) {
	cleaned := stripFence(content)

	var payload extractionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	topics := make([]contracts.ExtractedTopic, 0, len(payload.Topics))
	for _, t := range payload.Topics {
		name := strings.TrimSpace(t.TopicName)
		if name == "" {
			continue
		}
		topics = append(topics, contracts.ExtractedTopic{
			Name:          name,
			RelatedBoards: t.RelatedBoards,
			Rationale:     strings.TrimSpace(t.LogicSummary),
		})
	}
	return topics, nil
}

// stripFence removes a surrounding ```json ... ``` block if present.
func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
