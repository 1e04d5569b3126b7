package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// Ingestion drives a course through the material lifecycle:
// PENDING → PROCESSING → COMPLETED (or FAILED). Every run clears prior
// derived data first so retrieval can only ever see chunks from the
// currently stored material.
type Ingestion interface {
	ProcessMaterial(ctx context.Context, courseID uuid.UUID, filePath string) error
	// ClearCourseData removes the hierarchy, chunks, questions, and the
	// vector index contents for the course.
	ClearCourseData(ctx context.Context, courseID uuid.UUID) error
}

type ingestion struct {
	log        *logger.Logger
	courses    repos.CourseRepo
	hierarchy  repos.HierarchyRepo
	questions  repos.QuestionRepo
	extraction ExtractionService
	chunker    Chunker
	embedder   Embedder

	// txRun wraps a unit of work in a transaction. Tests swap it for a
	// pass-through.
	txRun func(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func NewIngestion(baseLog *logger.Logger, db *gorm.DB, courses repos.CourseRepo, hierarchy repos.HierarchyRepo, questions repos.QuestionRepo, extraction ExtractionService, chunker Chunker, embedder Embedder) Ingestion {
	return &ingestion{
		log:        baseLog.With("service", "Ingestion"),
		courses:    courses,
		hierarchy:  hierarchy,
		questions:  questions,
		extraction: extraction,
		chunker:    chunker,
		embedder:   embedder,
		txRun: func(ctx context.Context, fn func(tx *gorm.DB) error) error {
			return db.WithContext(ctx).Transaction(fn)
		},
	}
}

func (s *ingestion) ProcessMaterial(ctx context.Context, courseID uuid.UUID, filePath string) error {
	if err := s.courses.SetIngestionStatus(ctx, nil, courseID, types.IngestionProcessing); err != nil {
		return fmt.Errorf("mark course processing: %w", err)
	}

	if err := s.processMaterial(ctx, courseID, filePath); err != nil {
		if statusErr := s.courses.SetIngestionStatus(ctx, nil, courseID, types.IngestionFailed); statusErr != nil {
			s.log.Error("failed to mark course failed", "course_id", courseID, "error", statusErr)
		}
		return err
	}

	if err := s.courses.SetIngestionStatus(ctx, nil, courseID, types.IngestionCompleted); err != nil {
		return fmt.Errorf("mark course completed: %w", err)
	}
	s.log.Info("material ingested", "course_id", courseID, "file", filePath)
	return nil
}

func (s *ingestion) processMaterial(ctx context.Context, courseID uuid.UUID, filePath string) error {
	// Clear first: the knowledge base must reflect only the material being
	// stored in this run.
	if err := s.ClearCourseData(ctx, courseID); err != nil {
		return fmt.Errorf("clear course data: %w", err)
	}

	chapters, err := s.extraction.Extract(ctx, filePath)
	if err != nil {
		return fmt.Errorf("extract material: %w", err)
	}

	stored := 0
	for _, chapter := range chapters {
		if err := ctx.Err(); err != nil {
			return err
		}
		chapterRow := &types.Chapter{
			ID:       uuid.New(),
			CourseID: courseID,
			Title:    chapter.Title,
			Order:    chapter.Order,
		}
		if _, err := s.hierarchy.CreateChapter(ctx, nil, chapterRow); err != nil {
			return fmt.Errorf("create chapter %q: %w", chapter.Title, err)
		}
		for _, section := range chapter.Sections {
			sectionRow := &types.Section{
				ID:        uuid.New(),
				ChapterID: chapterRow.ID,
				Title:     section.Title,
				Order:     section.Order,
			}
			if _, err := s.hierarchy.CreateSection(ctx, nil, sectionRow); err != nil {
				return fmt.Errorf("create section %q: %w", section.Title, err)
			}
			for _, subsection := range section.Subsections {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := s.storeSubsection(ctx, sectionRow.ID, subsection); err != nil {
					// One bad subsection must not sink the run; the rest of
					// the material is still worth having.
					s.log.Error("subsection ingestion failed, skipping",
						"section_id", sectionRow.ID,
						"title", subsection.Title,
						"error", err,
					)
					continue
				}
				stored++
			}
		}
	}
	if stored == 0 {
		return fmt.Errorf("no subsection could be ingested from %s", filePath)
	}
	return nil
}

// storeSubsection commits the subsection, its raw material, and its derived
// chunks as one transaction, then embeds the committed chunks. A failed
// embedding leaves the rows in place; chunks without vector ids are simply
// not retrievable until re-embedded.
func (s *ingestion) storeSubsection(ctx context.Context, sectionID uuid.UUID, sub ExtractedSubsection) error {
	var chunks []*types.Chunk
	err := s.txRun(ctx, func(tx *gorm.DB) error {
		subsectionRow := &types.Subsection{
			ID:        uuid.New(),
			SectionID: sectionID,
			Title:     sub.Title,
			Order:     sub.Order,
		}
		if _, err := s.hierarchy.CreateSubsection(ctx, tx, subsectionRow); err != nil {
			return fmt.Errorf("create subsection: %w", err)
		}
		material := &types.RawMaterial{
			ID:           uuid.New(),
			SubsectionID: subsectionRow.ID,
			Content:      sub.Content,
		}
		if _, err := s.hierarchy.CreateRawMaterial(ctx, tx, material); err != nil {
			return fmt.Errorf("store raw material: %w", err)
		}
		var chunkErr error
		chunks, chunkErr = s.chunker.GenerateChunks(ctx, tx, subsectionRow.ID)
		if chunkErr != nil {
			return fmt.Errorf("generate chunks: %w", chunkErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.embedder.EmbedChunks(ctx, chunks); err != nil {
		s.log.Warn("embedding failed for subsection, chunks stored without vectors",
			"title", sub.Title,
			"error", err,
		)
	}
	return nil
}

func (s *ingestion) ClearCourseData(ctx context.Context, courseID uuid.UUID) error {
	err := s.txRun(ctx, func(tx *gorm.DB) error {
		if err := s.questions.DeleteByCourseID(ctx, tx, courseID); err != nil {
			return fmt.Errorf("delete questions: %w", err)
		}
		if err := s.hierarchy.DeleteChaptersByCourseID(ctx, tx, courseID); err != nil {
			return fmt.Errorf("delete chapters: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.embedder.ResetIndex(ctx); err != nil {
		return fmt.Errorf("reset vector index: %w", err)
	}
	s.log.Info("course data cleared", "course_id", courseID)
	return nil
}
