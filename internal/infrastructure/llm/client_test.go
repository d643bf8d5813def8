package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCollector/internal/config"
	"NewsCollector/internal/domain"
)

func completionServer(t *testing.T, answer string, status int, calls *atomic.Int32, seen *atomic.Value) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			MaxTokens int `json:"max_tokens"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 && seen != nil {
			seen.Store(req.Messages[0].Content)
		}

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": answer}, "finish_reason": "stop"},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Enabled:     true,
		BaseURL:     baseURL,
		Model:       "glm-4-flash",
		APIKey:      "test-key",
		MaxTokens:   500,
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	}
}

func TestClassifyListsIndustries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var seen atomic.Value
	server := completionServer(t, " 云计算\n", http.StatusOK, &calls, &seen)

	client := NewClient(testConfig(server.URL))
	answer, err := client.Classify(context.Background(), "标题", []domain.Industry{
		{ID: "dc", Name: "数据中心", Keywords: []string{"IDC", "机房"}},
		{ID: "cloud", Name: "云计算"},
	})
	require.NoError(t, err)
	assert.Equal(t, "云计算", answer)

	prompt, _ := seen.Load().(string)
	assert.Contains(t, prompt, "1. 数据中心（关键词：IDC、机房）")
	assert.Contains(t, prompt, "2. 云计算（关键词：）")
}

func TestClassifyReportsHTTPError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := completionServer(t, "", http.StatusInternalServerError, &calls, nil)

	_, err := NewClient(testConfig(server.URL)).Classify(context.Background(), "标题", []domain.Industry{{ID: "dc", Name: "数据中心"}})
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := completionServer(t, "摘要：国家发布新的算力基础设施行动计划。", http.StatusOK, &calls, nil)
	client := NewClient(testConfig(server.URL))

	short, err := client.Summarize(context.Background(), "太短的标题")
	require.NoError(t, err)
	assert.Empty(t, short)
	assert.Equal(t, int32(0), calls.Load())

	summary, err := client.Summarize(context.Background(), strings.Repeat("算力基础设施", 4))
	require.NoError(t, err)
	assert.Equal(t, "国家发布新的算力基础设施行动计划。", summary)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCleanSummary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "内容", CleanSummary("总结: 内容 "))
	assert.Equal(t, "内容", CleanSummary("摘要：内容"))
	assert.Equal(t, "无前缀", CleanSummary("无前缀"))
}
