package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quizforge/quizforge-backend/internal/platform/envutil"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

// Client converts text into a fixed-dimension vector. Callers own the
// per-item fallback policy (zero vector on ingest, empty results on
// retrieval), so failures here are plain errors.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

type client struct {
	log        *logger.Logger
	url        string
	token      string
	dim        int
	httpClient *http.Client
}

// NewClient builds a feature-extraction client against a Hugging Face style
// inference endpoint.
func NewClient(log *logger.Logger) (Client, error) {
	model := envutil.String("EMBED_MODEL", "Alibaba-NLP/gte-Qwen2-7B-instruct")
	baseURL := strings.TrimRight(envutil.String("EMBED_BASE_URL", "https://api-inference.huggingface.co"), "/")
	dim := envutil.Int("EMBED_DIM", 3584)
	if dim <= 0 {
		return nil, fmt.Errorf("EMBED_DIM must be positive")
	}
	timeout := time.Duration(envutil.Int("EMBED_TIMEOUT_SECONDS", 30)) * time.Second

	c := &client{
		log:   log.With("service", "EmbeddingClient"),
		url:   baseURL + "/models/" + model,
		token: envutil.String("EMBED_API_TOKEN", ""),
		dim:   dim,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	log.Info("embedding client ready", "model", model, "dim", dim)
	return c, nil
}

func (c *client) Dim() int { return c.dim }

type extractionRequest struct {
	Inputs []string `json:"inputs"`
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(extractionRequest{Inputs: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed request failed (status=%d): %s", resp.StatusCode, truncate(string(raw), 256))
	}

	vec, err := decodeVector(raw)
	if err != nil {
		return nil, err
	}
	if len(vec) != c.dim {
		return nil, fmt.Errorf("embed dimension mismatch: want=%d got=%d", c.dim, len(vec))
	}
	return vec, nil
}

// decodeVector accepts either a flat vector or a single-element batch, which
// is how feature-extraction endpoints answer one-input requests.
func decodeVector(raw []byte) ([]float32, error) {
	var batch [][]float32
	if err := json.Unmarshal(raw, &batch); err == nil {
		if len(batch) == 0 {
			return nil, fmt.Errorf("embed response was empty")
		}
		return batch[0], nil
	}
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("embed response was empty")
	}
	return flat, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
