package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quizforge/quiz-generator-api/internal/models"
	"github.com/quizforge/quiz-generator-api/internal/utils"
)

// Generator turns extracted document text into raw quiz text with one
// synchronous LLM call. No retry, no streaming: the caller gets the full
// response body or an error.
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

// ErrContentTooShort rejects input below MinContentChars before any network
// call is made.
var ErrContentTooShort = errors.New("not enough text content to generate a quiz")

// ServiceError wraps an upstream generation failure. StatusCode holds the
// upstream HTTP status when one was received, 0 for transport errors.
type ServiceError struct {
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation service returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation service request failed: %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

type openRouterGenerator struct {
	client *openai.Client
	model  string
	logger *utils.Logger
}

// NewOpenRouterGenerator builds a Generator speaking the chat-completions
// schema against the given base URL.
func NewOpenRouterGenerator(apiKey, baseURL, model string, logger *utils.Logger) Generator {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
	}

	return &openRouterGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

func (g *openRouterGenerator) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	text := strings.TrimSpace(req.Text)
	if len(text) < MinContentChars {
		return nil, ErrContentTooShort
	}

	content, truncated := boundContent(text)
	if truncated {
		g.logger.Warn("content truncated for prompt",
			"original_chars", len(text),
			"max_chars", MaxContentChars,
			"user_id", req.UserID)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(content, req.NumQuestions),
			},
		},
		Temperature: 0.2,
		MaxTokens:   4096,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, &ServiceError{Err: errors.New("generation service returned no content")}
	}

	raw := resp.Choices[0].Message.Content

	g.logger.Info("generation completed",
		"model", g.model,
		"content_chars", len(content),
		"response_chars", len(raw))

	return &models.GenerationResult{
		Raw:          raw,
		Model:        g.model,
		ContentChars: len(content),
		Truncated:    truncated,
	}, nil
}

// classifyError folds the client's error types into ServiceError.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ServiceError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	return &ServiceError{Err: err}
}
