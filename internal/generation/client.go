// Package generation вызывает OpenAI-совместимый API chat completions
// для перевода статьи и написания аналитического комментария.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/article-insights/internal/config"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/metrics"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

const (
	translationMaxTokens   = 4000
	translationTemperature = 0.3
	commentaryMaxTokens    = 2000
	commentaryTemperature  = 0.7
)

// RequestMessage сообщение диалога.
type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest тело запроса chat/completions.
type ChatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []RequestMessage `json:"messages"`
	MaxTokens   uint32           `json:"max_tokens,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
}

// ChatChoice вариант ответа.
type ChatChoice struct {
	Index        uint32         `json:"index"`
	Message      RequestMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

// ChatCompletionResponse ответ chat/completions.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
}

// Client клиент сервиса генерации.
type Client struct {
	http             *http.Client
	baseURL          string
	apiKey           string
	translationModel string
	commentaryModel  string
	language         string
	log              *slog.Logger
}

// New создаёт Client.
func New(cfg config.Generation, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:             &http.Client{Timeout: timeout},
		baseURL:          strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:           cfg.APIKey,
		translationModel: cfg.TranslationModel,
		commentaryModel:  cfg.CommentaryModel,
		language:         cfg.TargetLanguage,
		log:              log,
	}
}

// Translate переводит текст на целевой язык.
func (c *Client) Translate(ctx context.Context, text string) (string, error) {
	const op = "generation.Translate"

	out, err := c.complete(ctx, "translate", ChatCompletionRequest{
		Model: c.translationModel,
		Messages: []RequestMessage{
			{Role: "system", Content: translationPrompt(c.language)},
			{Role: "user", Content: fmt.Sprintf("Translate the following content into %s:\n\n%s", c.language, text)},
		},
		MaxTokens:   translationMaxTokens,
		Temperature: temperature(translationTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// GenerateCommentary пишет комментарий к переведённой статье в заданном стиле.
func (c *Client) GenerateCommentary(ctx context.Context, translated string, style models.StyleTag) (string, error) {
	const op = "generation.GenerateCommentary"

	out, err := c.complete(ctx, "commentary", ChatCompletionRequest{
		Model: c.commentaryModel,
		Messages: []RequestMessage{
			{Role: "system", Content: commentaryPrompt(style, c.language)},
			{Role: "user", Content: commentaryRequest + translated},
		},
		MaxTokens:   commentaryMaxTokens,
		Temperature: temperature(commentaryTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (c *Client) complete(ctx context.Context, operation string, request ChatCompletionRequest) (string, error) {
	start := time.Now()
	out, err := c.post(ctx, request)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.GenerationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.Error("generation call failed", slog.String("operation", operation),
			slog.String("model", request.Model), slog.String("error", err.Error()))
	}
	return out, err
}

func (c *Client) post(ctx context.Context, body ChatCompletionRequest) (string, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.NetworkError, "generation service is unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.NetworkError, "failed to read generation response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperr.Wrap(apperr.GenerationError, "generation request failed",
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 512)))
	}

	var response ChatCompletionResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", apperr.Wrap(apperr.GenerationError, "malformed generation response", err)
	}
	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Message.Content) == "" {
		return "", apperr.New(apperr.GenerationError, "generation returned empty content")
	}
	return response.Choices[0].Message.Content, nil
}

func temperature(v float32) *float32 {
	return &v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
