package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

const DefaultMergeThreshold = 100

// Chunker derives the three chunk granularities from a subsection's raw
// material: SMALL paragraphs, MEDIUM merged explanations, and one LARGE
// full-text concept chunk. It never deletes prior chunks; a caller that
// re-runs it without clearing first will duplicate rows.
type Chunker interface {
	// GenerateChunks persists the derived chunks in the given transaction and
	// returns them so the embedding step can run on exactly these rows.
	GenerateChunks(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) ([]*types.Chunk, error)
}

type chunker struct {
	log            *logger.Logger
	hierarchy      repos.HierarchyRepo
	chunks         repos.ChunkRepo
	mergeThreshold int
}

func NewChunker(baseLog *logger.Logger, hierarchy repos.HierarchyRepo, chunks repos.ChunkRepo, mergeThreshold int) Chunker {
	if mergeThreshold <= 0 {
		mergeThreshold = DefaultMergeThreshold
	}
	return &chunker{
		log:            baseLog.With("service", "Chunker"),
		hierarchy:      hierarchy,
		chunks:         chunks,
		mergeThreshold: mergeThreshold,
	}
}

func (s *chunker) GenerateChunks(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) ([]*types.Chunk, error) {
	material, err := s.hierarchy.GetRawMaterialBySubsectionID(ctx, tx, subsectionID)
	if err != nil {
		return nil, fmt.Errorf("load raw material for subsection %s: %w", subsectionID, err)
	}

	paragraphs := splitParagraphs(material.Content)
	merged := mergeParagraphs(paragraphs, s.mergeThreshold)
	s.log.Debug("chunk granularities derived",
		"subsection_id", subsectionID,
		"small", len(paragraphs),
		"medium", len(merged),
	)

	rows := make([]*types.Chunk, 0, len(paragraphs)+len(merged)+1)
	for _, p := range paragraphs {
		rows = append(rows, &types.Chunk{
			ID:           uuid.New(),
			SubsectionID: subsectionID,
			Content:      p,
			ChunkType:    types.ChunkSmall,
		})
	}
	for _, m := range merged {
		rows = append(rows, &types.Chunk{
			ID:           uuid.New(),
			SubsectionID: subsectionID,
			Content:      m,
			ChunkType:    types.ChunkMedium,
		})
	}
	// The LARGE chunk is the unmodified full text: concept scope for
	// syllabus-level planning, never embedded.
	rows = append(rows, &types.Chunk{
		ID:           uuid.New(),
		SubsectionID: subsectionID,
		Content:      material.Content,
		ChunkType:    types.ChunkLarge,
	})

	if _, err := s.chunks.CreateBatch(ctx, tx, rows); err != nil {
		return nil, fmt.Errorf("persist chunks for subsection %s: %w", subsectionID, err)
	}
	return rows, nil
}

var paragraphBoundary = regexp.MustCompile(`\n[ \t]*\n`)

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphBoundary.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// mergeParagraphs runs a single greedy left-to-right pass: paragraph i is
// merged with i+1 when shouldMerge holds, and the scan then advances past
// both. Already-merged spans are never re-evaluated.
func mergeParagraphs(paragraphs []string, threshold int) []string {
	if len(paragraphs) <= 1 {
		return paragraphs
	}
	var merged []string
	i := 0
	for i < len(paragraphs) {
		current := paragraphs[i]
		if i+1 < len(paragraphs) && shouldMerge(current, paragraphs[i+1], threshold) {
			merged = append(merged, current+" "+paragraphs[i+1])
			i += 2
			continue
		}
		merged = append(merged, current)
		i++
	}
	return merged
}

// shouldMerge treats a short leading paragraph or a lowercase continuation
// as one explanation split across paragraph breaks.
func shouldMerge(p1, p2 string, threshold int) bool {
	if len(p1) < threshold {
		return true
	}
	r, _ := utf8.DecodeRuneInString(p2)
	return r != utf8.RuneError && unicode.IsLower(r)
}
