package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"superstory-server/internal/config"
	"superstory-server/internal/metrics"
	"superstory-server/shared/models"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrAIGenerationFailed ошибка генерации ответа чата.
var ErrAIGenerationFailed = errors.New("chat completion failed")

// UsageInfo информация об использовании токенов.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

// AIClient интерфейс провайдера chat-completion.
type AIClient interface {
	// Complete отправляет историю сообщений как есть и возвращает ответ ассистента.
	Complete(ctx context.Context, messages []models.ChatMessage) (string, UsageInfo, error)
}

// NewAIClient создает клиента в зависимости от AI_CLIENT_TYPE.
func NewAIClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	switch strings.ToLower(cfg.AIClientType) {
	case "openai":
		openaiConfig := openaigo.DefaultConfig(cfg.AIAPIKey)
		if cfg.AIBaseURL != "" {
			openaiConfig.BaseURL = cfg.AIBaseURL
		}
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout}
		logger.Info("OpenAI client created", zap.String("baseURL", openaiConfig.BaseURL), zap.String("model", cfg.AIModel))
		return &openAIClient{
			client: openaigo.NewClientWithConfig(openaiConfig),
			model:  cfg.AIModel,
			logger: logger.Named("OpenAIClient"),
		}, nil
	case "ollama":
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: %s", cfg.AIClientType)
	}
}

// --- OpenAI ---

type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func (c *openAIClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, UsageInfo, error) {
	usage := UsageInfo{}
	req := openaigo.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openaigo.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openaigo.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("openai", c.model, "error").Inc()
		c.logger.Error("OpenAI request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues("openai", c.model, "error_empty_response").Inc()
		return "", usage, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	content := resp.Choices[0].Message.Content
	metrics.ChatRequestsTotal.WithLabelValues("openai", c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues("openai", c.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		usage = UsageInfo{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	} else {
		usage = estimateUsage(c.model, messages, content)
	}
	observeUsage("openai", c.model, usage)

	c.logger.Debug("OpenAI response received",
		zap.Duration("duration", duration),
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens),
		zap.Bool("estimated", usage.Estimated),
	)
	return content, usage, nil
}

// --- Ollama ---

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaClient(cfg *config.Config, logger *zap.Logger) (AIClient, error) {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.AIBaseURL, "/"), "/v1")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}

	logger.Info("Ollama client created", zap.String("baseURL", baseURL), zap.String("model", cfg.AIModel))
	return &ollamaClient{
		client:  api.NewClient(parsed, &http.Client{Timeout: cfg.AITimeout}),
		model:   cfg.AIModel,
		timeout: cfg.AITimeout,
		logger:  logger.Named("OllamaClient"),
	}, nil
}

func (c *ollamaClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, UsageInfo, error) {
	usage := UsageInfo{}
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: make([]api.Message, 0, len(messages)),
		Stream:   &stream,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, api.Message{Role: m.Role, Content: m.Content})
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues("ollama", c.model, "error").Inc()
		c.logger.Error("Ollama request failed", zap.Duration("duration", duration), zap.Error(err))
		return "", usage, fmt.Errorf("%w: %v", ErrAIGenerationFailed, err)
	}
	if resp.Message.Content == "" {
		metrics.ChatRequestsTotal.WithLabelValues("ollama", c.model, "error_empty_response").Inc()
		return "", usage, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	metrics.ChatRequestsTotal.WithLabelValues("ollama", c.model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues("ollama", c.model).Observe(duration.Seconds())

	usage = UsageInfo{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	observeUsage("ollama", c.model, usage)

	return resp.Message.Content, usage, nil
}

// --- Токены ---

// estimateUsage оценивает токены через tiktoken, если провайдер не вернул usage.
func estimateUsage(model string, messages []models.ChatMessage, completion string) UsageInfo {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return UsageInfo{}
		}
	}
	prompt := 0
	for _, m := range messages {
		prompt += len(enc.Encode(m.Content, nil, nil))
	}
	completionTokens := len(enc.Encode(completion, nil, nil))
	return UsageInfo{
		PromptTokens:     prompt,
		CompletionTokens: completionTokens,
		TotalTokens:      prompt + completionTokens,
		Estimated:        true,
	}
}

func observeUsage(provider, model string, usage UsageInfo) {
	if usage.TotalTokens == 0 {
		return
	}
	metrics.ChatTokens.WithLabelValues(provider, model, "prompt").Add(float64(usage.PromptTokens))
	metrics.ChatTokens.WithLabelValues(provider, model, "completion").Add(float64(usage.CompletionTokens))
}
