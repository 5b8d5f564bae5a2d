// Package openaitext implements text AI-content detection by asking an OpenAI
// chat model to estimate the probability that a passage was machine written.
package openaitext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/faketect/faketect/internal/detect"
)

// MaxTextLength caps the analyzed passage. Longer input is truncated rather
// than rejected so users can paste whole documents.
const MaxTextLength = 20000

const systemPrompt = `You are an AI-generated text detector. Analyze the text the user provides and estimate the probability that it was produced by a language model rather than a human.

Respond ONLY with a JSON object of this exact shape, no markdown fences:
{"ai_probability": <number between 0 and 100>, "reasoning": "<one short sentence>"}`

// Provider implements detect.TextProvider.
type Provider struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// New creates a text detection provider backed by the OpenAI API.
func New(apiKey, model string, logger *slog.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Provider{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}, nil
}

// Name returns the provider identifier used in verdict sources.
func (p *Provider) Name() string { return "openai-text" }

// DetectText scores a passage for AI generation.
func (p *Provider) DetectText(ctx context.Context, text string) (*detect.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, detect.WrapError("text", detect.ErrInvalidMedia)
	}
	if len(text) > MaxTextLength {
		text = text[:MaxTextLength]
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.HTTPStatusCode {
			case 401, 403:
				return nil, detect.WrapError("text", detect.ErrUnauthorized)
			case 429:
				return nil, detect.WrapError("text", detect.ErrRateLimited)
			}
		}
		return nil, detect.WrapError("text", detect.ErrUnavailable)
	}
	if len(resp.Choices) == 0 {
		return nil, detect.WrapError("text", fmt.Errorf("empty completion: %w", detect.ErrUnavailable))
	}

	content := resp.Choices[0].Message.Content
	verdict, err := parseVerdict(content)
	if err != nil {
		return nil, detect.WrapError("text", err)
	}

	return &detect.Result{
		Provider:   p.Name(),
		AIScore:    verdict.AIProbability,
		IsAI:       verdict.AIProbability >= 50,
		Confidence: verdict.AIProbability,
		Raw:        []byte(content),
	}, nil
}

type textVerdict struct {
	AIProbability float64 `json:"ai_probability"`
	Reasoning     string  `json:"reasoning"`
}

// parseVerdict extracts the JSON verdict from the model reply, tolerating
// stray prose or markdown fences around the object.
func parseVerdict(content string) (*textVerdict, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var v textVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &v); err != nil {
		return nil, fmt.Errorf("unmarshal model reply: %w", err)
	}
	if v.AIProbability < 0 || v.AIProbability > 100 {
		return nil, fmt.Errorf("ai_probability %.2f out of range", v.AIProbability)
	}
	return &v, nil
}
