package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quizforge/quizforge-backend/internal/platform/envutil"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

// ErrRateLimited is returned when the generation provider answers 429. The
// orchestration layer maps it to a user-visible busy sentinel instead of
// surfacing the raw failure.
var ErrRateLimited = errors.New("llm: rate limited")

// Client is the text generation boundary. Implementations must either return
// text or an error; they never panic into the orchestrators.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient builds a chat-completions client against an OpenAI-compatible
// endpoint (OpenRouter by default).
func NewClient(log *logger.Logger) (Client, error) {
	apiKey := envutil.String("LLM_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}
	baseURL := strings.TrimRight(envutil.String("LLM_BASE_URL", "https://openrouter.ai/api/v1"), "/")
	model := envutil.String("LLM_MODEL", "deepseek/deepseek-chat")
	timeout := time.Duration(envutil.Int("LLM_TIMEOUT_SECONDS", 60)) * time.Second

	c := &client{
		log:       log.With("service", "LLMClient"),
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		maxTokens: envutil.Int("LLM_MAX_TOKENS", 500),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	log.Info("llm client ready", "base_url", baseURL, "model", model)
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: user})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: msgs, MaxTokens: c.maxTokens})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.log.Warn("generation provider rate limited", "model", c.model)
		return "", ErrRateLimited
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat request failed (status=%d): %s", resp.StatusCode, truncate(string(raw), 256))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
