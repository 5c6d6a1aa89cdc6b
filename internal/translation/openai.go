package translation

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is used when OPENAI_MODEL is unset.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider translates text through the OpenAI chat completions API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProviderFromEnv builds an OpenAI provider from env vars.
// Returns nil when OPENAI_API_KEY is unset.
func NewOpenAIProviderFromEnv() *OpenAIProvider {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = DefaultOpenAIModel
	}
	return NewOpenAIProvider(apiKey, model)
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	if strings.TrimSpace(model) == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ModelName returns the configured model identifier.
func (p *OpenAIProvider) ModelName() string {
	if p == nil {
		return ""
	}
	return p.model
}

func (p *OpenAIProvider) SupportedLanguages() []string {
	return SupportedTranslationLanguageCodes()
}

func (p *OpenAIProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	if p == nil {
		return nil, fmt.Errorf("openai provider is nil")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	sourceLang := normalizeLangCode(req.SourceLang)
	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return nil, fmt.Errorf("target language is required")
	}

	target := targetLanguageLabel(targetLang).english
	prompt := fmt.Sprintf("Translate the following text into %s. Respond with only the translation, nothing else.\n\n%s", target, text)

	started := time.Now()
	translated, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:         translated,
		SourceLang:   sourceLang,
		TargetLang:   targetLang,
		ProviderName: p.Name(),
		LatencyMs:    time.Since(started).Milliseconds(),
	}, nil
}

func (p *OpenAIProvider) TranslateBatch(ctx context.Context, req BatchRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("openai provider is nil")
	}
	if len(req.Texts) == 0 {
		return "", fmt.Errorf("texts are required")
	}
	targetLang := normalizeLangCode(req.TargetLang)
	if targetLang == "" {
		return "", fmt.Errorf("target language is required")
	}

	return p.complete(ctx, BuildBatchPrompt(req.Texts, normalizeLangCode(req.SourceLang), targetLang))
}

func (p *OpenAIProvider) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no translation returned")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("translation response was empty")
	}
	return translated, nil
}
