package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/platform/llm"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

const (
	evaluationTopK = 5
	neutralScore   = 0.5

	// BusyReasoning marks a rate-limited grading attempt; callers can retry.
	BusyReasoning = "The grader is busy right now; please resubmit in a moment."
)

type EvaluateInput struct {
	QuestionText        string
	StudentAnswer       string
	IdealAnswer         string
	GradingInstructions string
}

// Evaluation is the grading outcome plus the chunk ids that grounded it,
// kept for the transcript audit trail.
type Evaluation struct {
	Score             float64
	Reasoning         string
	RetrievedChunkIDs []uuid.UUID
}

// Evaluator grades a student answer against retrieved course material. The
// student's answer is only ever used as a search query; it is never indexed,
// so evaluation cannot feed back into the knowledge base.
type Evaluator interface {
	EvaluateAnswer(ctx context.Context, in EvaluateInput) (*Evaluation, error)
}

type evaluator struct {
	log       *logger.Logger
	retriever Retriever
	generate  llm.Client
}

func NewEvaluator(baseLog *logger.Logger, retriever Retriever, generate llm.Client) Evaluator {
	return &evaluator{
		log:       baseLog.With("service", "Evaluator"),
		retriever: retriever,
		generate:  generate,
	}
}

func (s *evaluator) EvaluateAnswer(ctx context.Context, in EvaluateInput) (*Evaluation, error) {
	chunks, err := s.retriever.Retrieve(ctx, in.StudentAnswer, evaluationTopK, []types.ChunkType{types.ChunkSmall, types.ChunkMedium})
	if err != nil {
		return nil, fmt.Errorf("retrieve grading context: %w", err)
	}

	var contextParts []string
	chunkIDs := make([]uuid.UUID, 0, len(chunks))
	for _, c := range chunks {
		contextParts = append(contextParts, c.Content)
		chunkIDs = append(chunkIDs, c.ID)
	}

	prompt := buildEvaluationPrompt(in, strings.Join(contextParts, "\n\n"))
	text, err := s.generate.GenerateText(ctx, "You are an academic evaluator.", prompt)
	if errors.Is(err, llm.ErrRateLimited) {
		return &Evaluation{Score: neutralScore, Reasoning: BusyReasoning, RetrievedChunkIDs: chunkIDs}, nil
	}
	if err != nil {
		s.log.Error("evaluation request failed", "error", err)
		return &Evaluation{
			Score:             neutralScore,
			Reasoning:         "Evaluation is unavailable; the answer was recorded and can be regraded.",
			RetrievedChunkIDs: chunkIDs,
		}, nil
	}

	score, reasoning := parseEvaluation(text)
	return &Evaluation{Score: score, Reasoning: reasoning, RetrievedChunkIDs: chunkIDs}, nil
}

func buildEvaluationPrompt(in EvaluateInput, contextText string) string {
	var b strings.Builder
	b.WriteString("Evaluate the student's answer based on the reference material and the ideal answer.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", in.QuestionText)
	fmt.Fprintf(&b, "Ideal Answer: %s\n", in.IdealAnswer)
	fmt.Fprintf(&b, "Reference Material:\n%s\n", contextText)
	fmt.Fprintf(&b, "Student Answer: %s\n", in.StudentAnswer)
	if strings.TrimSpace(in.GradingInstructions) != "" {
		fmt.Fprintf(&b, "\nCourse grading policy: %s\n", in.GradingInstructions)
	}
	b.WriteString("\nRETURN FORMAT (strict):\nScore: <number between 0.0 and 1.0>\nReasoning: <brief explanation, noting any missing points>\n")
	return b.String()
}

var scoreRe = regexp.MustCompile(`(?i)\bscore\b[*_]*\s*:[*_]*\s*([0-9]+(?:\.[0-9]+)?)`)
var reasoningLabelRe = regexp.MustCompile(`(?i)[*_#]*\breasoning\b[*_]*\s*:[*_]*`)

// parseEvaluation extracts the numeric score and the reasoning text. A
// missing score falls back to the neutral 0.5 with the raw output kept as
// reasoning so nothing is lost from the audit trail.
func parseEvaluation(text string) (float64, string) {
	score := neutralScore
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if parsed, err := strconv.ParseFloat(m[1], 64); err == nil {
			score = normalizeScore(parsed)
		}
	}

	reasoning := strings.TrimSpace(text)
	if loc := reasoningLabelRe.FindStringIndex(text); loc != nil {
		reasoning = cleanSegment(text[loc[1]:])
	}
	if reasoning == "" {
		reasoning = strings.TrimSpace(text)
	}
	return score, reasoning
}

// normalizeScore tolerates providers answering on 0-10 or 0-100 scales.
func normalizeScore(x float64) float64 {
	switch {
	case x > 10:
		x = x / 100
	case x > 1:
		x = x / 10
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
