package services

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/embedding"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/platform/vectorindex"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// Retriever resolves free text to the most similar chunks. It only ever
// reads the index; grounding degrades to an empty result instead of failing
// the caller when the embedding service is unavailable.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, allowed []types.ChunkType) ([]*types.Chunk, error)
}

type retriever struct {
	log    *logger.Logger
	client embedding.Client
	index  *vectorindex.Index
	chunks repos.ChunkRepo
}

func NewRetriever(baseLog *logger.Logger, client embedding.Client, index *vectorindex.Index, chunks repos.ChunkRepo) Retriever {
	return &retriever{
		log:    baseLog.With("service", "Retriever"),
		client: client,
		index:  index,
		chunks: chunks,
	}
}

func (s *retriever) Retrieve(ctx context.Context, query string, topK int, allowed []types.ChunkType) ([]*types.Chunk, error) {
	if topK <= 0 || s.index.Len() == 0 {
		return []*types.Chunk{}, nil
	}

	queryVec, err := s.client.Embed(ctx, query)
	if err != nil {
		s.log.Warn("query embedding failed, returning empty context", "error", err)
		return []*types.Chunk{}, nil
	}

	hits, err := s.index.Search(queryVec, topK)
	if err != nil {
		return nil, err
	}

	allowedSet := make(map[types.ChunkType]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = true
	}

	results := make([]*types.Chunk, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.chunks.GetByVectorID(ctx, nil, strconv.Itoa(hit.Offset))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Stale offset, e.g. after a partial reset. Skip silently.
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(allowedSet) > 0 && !allowedSet[chunk.ChunkType] {
			continue
		}
		results = append(results, chunk)
	}
	return results, nil
}
