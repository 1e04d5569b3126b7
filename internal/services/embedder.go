package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quizforge/quizforge-backend/internal/platform/embedding"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/platform/vectorindex"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// Embedder owns every write to the vector index. Chunk vector ids are index
// append offsets, so keeping a single writer is what keeps them stable.
type Embedder interface {
	// EmbedChunks embeds the SMALL and MEDIUM chunks of one just-committed
	// batch, appends them to the index in input order, and records each
	// chunk's offset as its vector id. A failed embedding degrades to a zero
	// vector; one bad chunk never blocks the batch.
	EmbedChunks(ctx context.Context, chunks []*types.Chunk) error
	// ResetIndex wipes the index and its on-disk form so no stale vector can
	// be retrieved after a re-ingest.
	ResetIndex(ctx context.Context) error
	// ReembedCourse rebuilds the index in full from the course's live chunks,
	// in syllabus order.
	ReembedCourse(ctx context.Context, courseID uuid.UUID) error
}

const defaultEmbedFanout = 4

type embedder struct {
	log    *logger.Logger
	client embedding.Client
	index  *vectorindex.Index
	chunks repos.ChunkRepo
	fanout int
}

func NewEmbedder(baseLog *logger.Logger, client embedding.Client, index *vectorindex.Index, chunks repos.ChunkRepo, fanout int) Embedder {
	if fanout <= 0 {
		fanout = defaultEmbedFanout
	}
	return &embedder{
		log:    baseLog.With("service", "Embedder"),
		client: client,
		index:  index,
		chunks: chunks,
		fanout: fanout,
	}
}

func (s *embedder) EmbedChunks(ctx context.Context, chunks []*types.Chunk) error {
	var embeddable []*types.Chunk
	for _, c := range chunks {
		if c.ChunkType == types.ChunkSmall || c.ChunkType == types.ChunkMedium {
			embeddable = append(embeddable, c)
		}
	}
	if len(embeddable) == 0 {
		return nil
	}

	// Fan the service calls out, but keep results slotted by input position
	// so the append order (and therefore every offset) stays stable.
	vectors := make([][]float32, len(embeddable))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)
	for i, chunk := range embeddable {
		i, chunk := i, chunk
		g.Go(func() error {
			vec, err := s.client.Embed(gctx, chunk.Content)
			if err != nil {
				s.log.Warn("embedding failed, substituting zero vector",
					"chunk_id", chunk.ID,
					"error", err,
				)
				vec = make([]float32, s.client.Dim())
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	start, err := s.index.Add(vectors)
	if err != nil {
		return fmt.Errorf("append vectors: %w", err)
	}
	for i, chunk := range embeddable {
		vectorID := strconv.Itoa(start + i)
		if err := s.chunks.SetVectorID(ctx, nil, chunk.ID, vectorID); err != nil {
			return fmt.Errorf("record vector id for chunk %s: %w", chunk.ID, err)
		}
		chunk.VectorID = vectorID
	}
	if err := s.index.Save(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	s.log.Info("chunk batch embedded", "chunks", len(embeddable), "index_total", s.index.Len())
	return nil
}

func (s *embedder) ResetIndex(ctx context.Context) error {
	return s.index.Reset()
}

func (s *embedder) ReembedCourse(ctx context.Context, courseID uuid.UUID) error {
	if err := s.index.Reset(); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	chunks, err := s.chunks.GetByCourseID(ctx, nil, courseID, types.ChunkSmall, types.ChunkMedium)
	if err != nil {
		return fmt.Errorf("load course chunks: %w", err)
	}
	if len(chunks) == 0 {
		s.log.Warn("no chunks to re-embed", "course_id", courseID)
		return nil
	}
	if err := s.EmbedChunks(ctx, chunks); err != nil {
		return err
	}
	s.log.Info("course re-embedded", "course_id", courseID, "chunks", len(chunks))
	return nil
}
