package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"NewsCollector/internal/config"
	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

const minSummaryTitleRunes = 20

const classifyPrompt = `你是一个行业分类专家。请根据文章内容，判断它最适合归类到哪个行业。

可选的行业列表：
%s

请直接输出最匹配的行业名称，不要输出其他内容。如果无法确定，请输出"未分类"。`

const summaryPrompt = `你是一个专业的新闻编辑，擅长撰写简洁精准的新闻摘要。
请根据提供的文章标题，生成一段80-150字的中文摘要。
要求：
1. 突出核心信息和关键数据
2. 语言简洁专业
3. 不要使用"本文"、"该文"等指代词
4. 直接输出摘要内容，不要加任何前缀`

var summaryPrefix = regexp.MustCompile(`^(?:摘要|总结)[：:]\s*`)

// ErrEmptyCompletion is returned when the API answers without choices.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Client classifies and summarizes through an OpenAI-compatible chat API.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

var (
	_ ports.TextClassifier = (*Client)(nil)
	_ ports.Summarizer     = (*Client)(nil)
)

// NewClient builds a client from configuration.
func NewClient(cfg config.LLMConfig) *Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	cc.HTTPClient = &http.Client{Timeout: cfg.Timeout + 5*time.Second}

	return &Client{
		api:         openai.NewClientWithConfig(cc),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Classify asks for the single best industry name, or 未分类.
func (c *Client) Classify(ctx context.Context, text string, candidates []domain.Industry) (string, error) {
	if c == nil {
		return "", fmt.Errorf("llm client is nil")
	}

	system := fmt.Sprintf(classifyPrompt, describeIndustries(candidates))
	out, err := c.create(ctx, system, "文章内容："+text)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Summarize returns "" for titles too short to summarize.
func (c *Client) Summarize(ctx context.Context, title string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("llm client is nil")
	}
	if utf8.RuneCountInString(strings.TrimSpace(title)) < minSummaryTitleRunes {
		return "", nil
	}

	out, err := c.create(ctx, summaryPrompt, "标题："+title+"\n\n请根据标题生成摘要")
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return CleanSummary(out), nil
}

// CleanSummary strips a leading 摘要：/总结： label.
func CleanSummary(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSpace(summaryPrefix.ReplaceAllString(s, ""))
}

func describeIndustries(candidates []domain.Industry) string {
	var b strings.Builder
	for i, ind := range candidates {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s（关键词：%s）", i+1, ind.Name, strings.Join(ind.Keywords, "、"))
	}
	return b.String()
}

func (c *Client) create(ctx context.Context, system, user string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
