package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

func TestParseTopics_PlainJSON(t *testing.T) {
	raw := `{"topics":[{"topic_name":"人工智能","related_boards":["AI算力","AI芯片"],"logic_summary":"算力需求爆发"}]}`

	topics, err := parseTopics(raw)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "人工智能", topics[0].Name)
	assert.Equal(t, []string{"AI算力", "AI芯片"}, topics[0].RelatedBoards)
	assert.Equal(t, "算力需求爆发", topics[0].Rationale)
}

func TestParseTopics_MarkdownFenced(t *testing.T) {
	raw := "```json\n{\"topics\":[{\"topic_name\":\"黄金\",\"related_boards\":[\"黄金概念\"],\"logic_summary\":\"避险情绪升温\"}]}\n```"

	topics, err := parseTopics(raw)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "黄金", topics[0].Name)
}

func TestParseTopics_DropsNamelessEntries(t *testing.T) {
	raw := `{"topics":[{"topic_name":"  ","related_boards":["X"]},{"topic_name":"军工","related_boards":[]}]}`

	topics, err := parseTopics(raw)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "军工", topics[0].Name)
}

func TestParseTopics_MalformedIsTypedError(t *testing.T) {
	_, err := parseTopics("很抱歉，我无法处理这个请求。")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBuildPrompt_IncludesCandidateBoards(t *testing.T) {
	prompt := buildPrompt(contracts.ExtractionRequest{
		Articles: []contracts.ExtractionArticle{
			{Title: "早盘必读", Content: "AI服务器需求提升"},
		},
		CandidateBoards: []string{"AI算力", "黄金概念"},
	})

	assert.Contains(t, prompt, "AI算力、黄金概念")
	assert.Contains(t, prompt, "【早盘必读】")
	assert.Contains(t, prompt, "AI服务器需求提升")
}

func TestBuildPrompt_NoCandidateSectionWithoutBoards(t *testing.T) {
	prompt := buildPrompt(contracts.ExtractionRequest{
		Articles: []contracts.ExtractionArticle{{Title: "t", Content: "c"}},
	})

	assert.NotContains(t, prompt, "候选板块列表")
}

func newTestExtractor(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		DeepSeek: config.DeepSeekConfig{
			APIKey:    "test-key",
			BaseURL:   srv.URL,
			Model:     "deepseek-chat",
			MaxTokens: 2000,
			Timeout:   2 * time.Second,
		},
	}
	return New(cfg, logger.NewNop())
}

func TestExtractTopics_EndToEnd(t *testing.T) {
	client := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		reply := `{"topics":[{"topic_name":"机器人","related_boards":["人形机器人"],"logic_summary":"产业化提速"}]}`
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		})
		require.NoError(t, err)
	}))

	topics, err := client.ExtractTopics(context.Background(), contracts.ExtractionRequest{
		Articles: []contracts.ExtractionArticle{{ID: 1, Title: "盘前", Content: "机器人产业化"}},
	})
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "机器人", topics[0].Name)
}

func TestExtractTopics_EmptyBatchIsNoop(t *testing.T) {
	client := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))

	topics, err := client.ExtractTopics(context.Background(), contracts.ExtractionRequest{})
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestExtractTopics_NoChoices(t *testing.T) {
	client := newTestExtractor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
		require.NoError(t, err)
	}))

	_, err := client.ExtractTopics(context.Background(), contracts.ExtractionRequest{
		Articles: []contracts.ExtractionArticle{{Title: "t", Content: "c"}},
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
