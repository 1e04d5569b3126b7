package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, dim string, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("EMBED_BASE_URL", srv.URL)
	t.Setenv("EMBED_MODEL", "test/embedder")
	t.Setenv("EMBED_DIM", dim)

	c, err := NewClient(logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestEmbedDecodesBatchResponse(t *testing.T) {
	c := newTestClient(t, "3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	})

	vec, err := c.Embed(context.Background(), "some chunk")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len: want=3 got=%d", len(vec))
	}
	if vec[1] != 0.2 {
		t.Fatalf("vec[1]: want=0.2 got=%v", vec[1])
	}
}

func TestEmbedDecodesFlatResponse(t *testing.T) {
	c := newTestClient(t, "2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]float32{0.5, 0.6})
	})

	vec, err := c.Embed(context.Background(), "some chunk")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("len: want=2 got=%d", len(vec))
	}
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	c := newTestClient(t, "4", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{0.1, 0.2}})
	})

	if _, err := c.Embed(context.Background(), "some chunk"); err == nil {
		t.Fatalf("expected dimension error, got nil")
	}
}

func TestEmbedSurfacesServerError(t *testing.T) {
	c := newTestClient(t, "2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := c.Embed(context.Background(), "some chunk"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
