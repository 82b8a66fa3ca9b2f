// Package llm re-ranks suggestion candidates with a chat-completion model
// reached over the OpenAI API or Ollama's OpenAI-compatible endpoint.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/jenezis/harmonizer/internal/harmonizer"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultOllamaModel   = "llama3.1"

	maxReplyTokens = 512
)

// Config selects the model endpoint. An empty Provider disables re-ranking.
type Config struct {
	Provider string
	BaseURL  string
	Model    string
	APIKey   string

	// Breaker tuning; zero values keep the defaults.
	FailureThreshold int
	Cooldown         time.Duration
}

// Reranker implements harmonizer.Reranker on top of a chat model.
type Reranker struct {
	client  *openai.Client
	model   string
	log     *logrus.Logger
	breaker *breaker
}

// New returns the configured re-ranker, or harmonizer.NoReranker when
// cfg.Provider is empty.
func New(cfg Config, log *logrus.Logger) (harmonizer.Reranker, error) {
	var baseURL, model string

	switch cfg.Provider {
	case "":
		return harmonizer.NoReranker{}, nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("re-rank provider %q requires an API key", cfg.Provider)
		}
		baseURL, model = defaultOpenAIBaseURL, defaultOpenAIModel
	case ProviderOllama:
		baseURL, model = defaultOllamaBaseURL, defaultOllamaModel
		if cfg.APIKey == "" {
			cfg.APIKey = "ollama"
		}
	default:
		return nil, fmt.Errorf("unknown re-rank provider %q", cfg.Provider)
	}

	if cfg.BaseURL != "" {
		baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Model != "" {
		model = cfg.Model
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	log.WithFields(logrus.Fields{
		"provider": cfg.Provider,
		"base_url": baseURL,
		"model":    model,
	}).Info("re-ranking enabled")

	return &Reranker{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		log:     log,
		breaker: newBreaker(cfg.FailureThreshold, cfg.Cooldown),
	}, nil
}

// Rerank asks the model to pick and order up to topK names from candidates.
// The deadline comes from ctx.
func (r *Reranker) Rerank(ctx context.Context, input string, candidates []string, topK int) ([]string, error) {
	if err := r.breaker.allow(); err != nil {
		return nil, err
	}

	names, err := r.complete(ctx, input, candidates, topK)
	if err != nil {
		r.breaker.failure()
		return nil, err
	}

	r.breaker.success()

	return names, nil
}

func (r *Reranker) complete(ctx context.Context, input string, candidates []string, topK int) ([]string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: 0,
		MaxTokens:   maxReplyTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(input, candidates, topK)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	names, err := parseNameList(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	if len(names) > topK {
		names = names[:topK]
	}

	return names, nil
}
