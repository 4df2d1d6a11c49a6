package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/modelbench/internal/common"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderOpenAI uses an OpenAI-compatible chat completion API
	ProviderOpenAI ProviderType = "openai"
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses the Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// CompletionRequest is a provider-agnostic single-turn completion request.
type CompletionRequest struct {
	Model        string
	SystemPrompt *string
	Prompt       string
	Temperature  float32
	MaxTokens    int
}

// CompletionResponse is a provider-agnostic completion response with the
// token usage reported by the provider.
type CompletionResponse struct {
	Text     string
	Tokens   int
	Provider ProviderType
}

// ProviderFactory creates and manages AI provider clients. Each call is a
// single attempt - the scheduler owns the hard per-task timeout and there
// is no retry layer. Requests are rate limited per provider.
//
// Complete is called concurrently by every scheduler worker, so each
// client is built at most once behind a sync.Once.
type ProviderFactory struct {
	openaiConfig *common.OpenAIConfig
	claudeConfig *common.ClaudeConfig
	geminiConfig *common.GeminiConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger

	openaiOnce   sync.Once
	openaiClient *openai.Client
	openaiErr    error

	claudeOnce   sync.Once
	claudeClient anthropic.Client
	claudeErr    error

	geminiOnce   sync.Once
	geminiClient *genai.Client
	geminiErr    error

	limiters map[ProviderType]*rate.Limiter
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(config *common.Config, logger arbor.ILogger) *ProviderFactory {
	return &ProviderFactory{
		openaiConfig: &config.OpenAI,
		claudeConfig: &config.Claude,
		geminiConfig: &config.Gemini,
		llmConfig:    &config.LLM,
		logger:       logger,
		limiters: map[ProviderType]*rate.Limiter{
			ProviderOpenAI: newLimiter(config.OpenAI.RateLimit),
			ProviderClaude: newLimiter(config.Claude.RateLimit),
			ProviderGemini: newLimiter(config.Gemini.RateLimit),
		},
	}
}

func newLimiter(interval string) *rate.Limiter {
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" or "anthropic/..." -> Claude
// - "gemini-2.5-flash" or "google/..." -> Gemini
// - "gpt-4o-mini" or "openai/..." -> OpenAI
// - anything else -> default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	m := strings.ToLower(model)

	if strings.HasPrefix(m, "claude/") || strings.HasPrefix(m, "anthropic/") || strings.HasPrefix(m, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(m, "gemini/") || strings.HasPrefix(m, "google/") || strings.HasPrefix(m, "gemini-") {
		return ProviderGemini
	}
	if strings.HasPrefix(m, "openai/") || strings.HasPrefix(m, "gpt-") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") {
		return ProviderOpenAI
	}

	if f.llmConfig.DefaultProvider != "" {
		return ProviderType(f.llmConfig.DefaultProvider)
	}
	return ProviderOpenAI
}

// NormalizeModel removes a provider prefix from a model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"openai/", "claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// Complete generates a completion using the provider the model belongs to.
func (f *ProviderFactory) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	provider := f.DetectProvider(req.Model)
	model := f.NormalizeModel(req.Model)

	if limiter, ok := f.limiters[provider]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Msg("Requesting completion")

	switch provider {
	case ProviderClaude:
		return f.completeWithClaude(ctx, req, model)
	case ProviderGemini:
		return f.completeWithGemini(ctx, req, model)
	default:
		return f.completeWithOpenAI(ctx, req, model)
	}
}

func (f *ProviderFactory) getOpenAIClient() (*openai.Client, error) {
	f.openaiOnce.Do(func() {
		if f.openaiConfig.APIKey == "" {
			f.openaiErr = fmt.Errorf("config inconsistency: openai.api_key is required")
			return
		}
		cfg := openai.DefaultConfig(f.openaiConfig.APIKey)
		if f.openaiConfig.BaseURL != "" {
			cfg.BaseURL = f.openaiConfig.BaseURL
		}
		f.openaiClient = openai.NewClientWithConfig(cfg)
	})
	return f.openaiClient, f.openaiErr
}

func (f *ProviderFactory) completeWithOpenAI(ctx context.Context, req *CompletionRequest, model string) (*CompletionResponse, error) {
	client, err := f.getOpenAIClient()
	if err != nil {
		return nil, fmt.Errorf("%w (model %s)", err, model)
	}

	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != nil {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: *req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI API")
	}

	return &CompletionResponse{
		Text:     resp.Choices[0].Message.Content,
		Tokens:   resp.Usage.TotalTokens,
		Provider: ProviderOpenAI,
	}, nil
}

func (f *ProviderFactory) getClaudeClient() (anthropic.Client, error) {
	f.claudeOnce.Do(func() {
		if f.claudeConfig.APIKey == "" {
			f.claudeErr = fmt.Errorf("config inconsistency: claude.api_key is required")
			return
		}
		f.claudeClient = anthropic.NewClient(option.WithAPIKey(f.claudeConfig.APIKey))
	})
	return f.claudeClient, f.claudeErr
}

func (f *ProviderFactory) completeWithClaude(ctx context.Context, req *CompletionRequest, model string) (*CompletionResponse, error) {
	client, err := f.getClaudeClient()
	if err != nil {
		return nil, fmt.Errorf("%w (model %s)", err, model)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if req.SystemPrompt != nil {
		params.System = []anthropic.TextBlockParam{
			{Text: *req.SystemPrompt},
		}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Claude API")
	}

	return &CompletionResponse{
		Text:     text.String(),
		Tokens:   int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		Provider: ProviderClaude,
	}, nil
}

func (f *ProviderFactory) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.geminiOnce.Do(func() {
		if f.geminiConfig.APIKey == "" {
			f.geminiErr = fmt.Errorf("config inconsistency: gemini.api_key is required")
			return
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  f.geminiConfig.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			f.geminiErr = fmt.Errorf("failed to create Gemini client: %w", err)
			return
		}
		f.geminiClient = client
	})
	return f.geminiClient, f.geminiErr
}

func (f *ProviderFactory) completeWithGemini(ctx context.Context, req *CompletionRequest, model string) (*CompletionResponse, error) {
	client, err := f.getGeminiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w (model %s)", err, model)
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != nil {
		config.SystemInstruction = genai.NewContentFromText(*req.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini API")
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty text in Gemini response")
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CompletionResponse{
		Text:     text,
		Tokens:   tokens,
		Provider: ProviderGemini,
	}, nil
}

// Close releases all provider clients. The factory is not usable afterwards.
func (f *ProviderFactory) Close() error {
	f.openaiClient = nil
	f.geminiClient = nil
	f.claudeClient = anthropic.Client{}
	return nil
}
