package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/embedding"
	"github.com/quizforge/quizforge-backend/internal/platform/llm"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/platform/vectorindex"
	"github.com/quizforge/quizforge-backend/internal/services"
)

type Services struct {
	Extraction  services.ExtractionService
	Chunker     services.Chunker
	Classifier  services.ThemeClassifier
	Embedder    services.Embedder
	Retriever   services.Retriever
	Planner     services.TopicPlanner
	Professor   services.Professor
	Evaluator   services.Evaluator
	QuizSession services.QuizSession
	Ingestion   services.Ingestion
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	embedClient, err := embedding.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init embedding client: %w", err)
	}
	llmClient, err := llm.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init llm client: %w", err)
	}
	index, err := vectorindex.Open(log, cfg.IndexPath, cfg.IndexDim)
	if err != nil {
		return Services{}, fmt.Errorf("open vector index: %w", err)
	}

	extraction := services.NewTextExtractionService(log)
	chunker := services.NewChunker(log, r.Hierarchy, r.Chunks, cfg.MergeThreshold)
	classifier := services.NewKeywordClassifier(log, cfg.ThemeRules)
	embedder := services.NewEmbedder(log, embedClient, index, r.Chunks, cfg.EmbedFanout)
	retriever := services.NewRetriever(log, embedClient, index, r.Chunks)
	planner := services.NewTopicPlanner(log, r.Hierarchy, r.Chunks, r.Questions, classifier, cfg.CoverageCeiling)
	professor := services.NewProfessor(log, planner, r.Chunks, r.Relations, r.Questions, r.Quizzes, classifier, llmClient)
	evaluator := services.NewEvaluator(log, retriever, llmClient)
	quizSession := services.NewQuizSession(log, r.Quizzes, r.Questions, r.Transcripts, evaluator)
	ingestion := services.NewIngestion(log, db, r.Courses, r.Hierarchy, r.Questions, extraction, chunker, embedder)

	return Services{
		Extraction:  extraction,
		Chunker:     chunker,
		Classifier:  classifier,
		Embedder:    embedder,
		Retriever:   retriever,
		Planner:     planner,
		Professor:   professor,
		Evaluator:   evaluator,
		QuizSession: quizSession,
		Ingestion:   ingestion,
	}, nil
}
