package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/platform/llm"
	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// Phase shifts generation emphasis as the dialogue progresses. It is a pure
// function of conversation length, never persisted state.
type Phase string

const (
	PhaseFundamental Phase = "FUNDAMENTAL"
	PhaseConnection  Phase = "CONNECTION"
	PhaseCritique    Phase = "CRITIQUE"
)

func phaseForHistory(turns int) Phase {
	switch {
	case turns < 2:
		return PhaseFundamental
	case turns < 4:
		return PhaseConnection
	default:
		return PhaseCritique
	}
}

// Turn is one prior question/answer exchange of the session.
type Turn struct {
	Question string
	Answer   string
}

type GenerateInput struct {
	CourseID uuid.UUID
	// QuizID selects the quiz whose instructions steer generation; when nil
	// the latest quiz of the course is used.
	QuizID *uuid.UUID
	// History is the conversation so far, most recent last.
	History []Turn
	// Deterministic propagates to the planner's final pick.
	Deterministic bool
}

// Professor composes grounded generation requests and turns the model
// output into persisted questions. All failure paths yield sentinel
// questions; callers never see a raw service fault.
type Professor interface {
	GenerateSingleQuestion(ctx context.Context, in GenerateInput) (*types.Question, error)
	// GenerateQuestionsForCourse builds the static question pool, walking
	// the syllabus deterministically. Returns a human-readable summary.
	GenerateQuestionsForCourse(ctx context.Context, courseID uuid.UUID) (string, error)
}

const (
	defaultExaminerPersona = "You are an examiner. Generate short-answer questions grounded strictly in the provided course material."

	maxRelatedChunks      = 2
	feedbackExampleLimit  = 3
	historyWindow         = 6
	batchSubsectionLimit  = 10
	questionsPerBatchItem = 3
)

type professor struct {
	log        *logger.Logger
	planner    TopicPlanner
	chunks     repos.ChunkRepo
	relations  repos.KnowledgeRelationRepo
	questions  repos.QuestionRepo
	quizzes    repos.QuizRepo
	classifier ThemeClassifier
	generate   llm.Client
}

func NewProfessor(baseLog *logger.Logger, planner TopicPlanner, chunks repos.ChunkRepo, relations repos.KnowledgeRelationRepo, questions repos.QuestionRepo, quizzes repos.QuizRepo, classifier ThemeClassifier, generate llm.Client) Professor {
	return &professor{
		log:        baseLog.With("service", "Professor"),
		planner:    planner,
		chunks:     chunks,
		relations:  relations,
		questions:  questions,
		quizzes:    quizzes,
		classifier: classifier,
		generate:   generate,
	}
}

// relatedChunk is a knowledge-graph neighbor resolved for prompt context.
type relatedChunk struct {
	relation string
	content  string
}

type generationContext struct {
	primary      *types.Chunk
	subsection   *types.Subsection
	related      []relatedChunk
	comparison   *types.Chunk
	liked        []*types.Question
	disliked     []*types.Question
	history      []Turn
	phase        Phase
	instructions string
}

func (s *professor) GenerateSingleQuestion(ctx context.Context, in GenerateInput) (*types.Question, error) {
	instructions, err := s.loadInstructions(ctx, in)
	if err != nil {
		s.log.Warn("could not load quiz instructions", "course_id", in.CourseID, "error", err)
	}

	phase := phaseForHistory(len(in.History))
	sel, err := s.planner.SelectNextTopic(ctx, in.CourseID, SelectOptions{
		FilterKeywords: deriveFilterKeywords(instructions),
		RecentThemes:   s.recentThemes(in.History),
		SessionMode:    true,
		Deterministic:  in.Deterministic,
	})
	if err != nil {
		return nil, fmt.Errorf("plan next topic: %w", err)
	}
	if sel == nil {
		s.log.Warn("no candidate topic for course", "course_id", in.CourseID)
		return &types.Question{
			QuestionText: NoMaterialQuestion,
			IdealAnswer:  ParseFailedAnswer,
			Status:       types.QuestionPending,
		}, nil
	}

	gc := generationContext{
		primary:      sel.Chunk,
		subsection:   sel.Subsection,
		history:      in.History,
		phase:        phase,
		instructions: instructions,
	}
	gc.related = s.resolveRelated(ctx, sel.Chunk.ID)
	if phase != PhaseFundamental {
		gc.comparison = s.findComparisonChunk(ctx, in.CourseID, sel.Subsection.ID)
	}
	gc.liked, gc.disliked = s.loadFeedbackExamples(ctx, in.CourseID)

	return s.composeAndPersist(ctx, gc)
}

func (s *professor) GenerateQuestionsForCourse(ctx context.Context, courseID uuid.UUID) (string, error) {
	instructions, err := s.loadInstructions(ctx, GenerateInput{CourseID: courseID})
	if err != nil {
		s.log.Warn("could not load quiz instructions", "course_id", courseID, "error", err)
	}
	keywords := deriveFilterKeywords(instructions)

	var processed []uuid.UUID
	totalGenerated := 0

	for i := 0; i < batchSubsectionLimit; i++ {
		sel, err := s.planner.SelectNextTopic(ctx, courseID, SelectOptions{
			FilterKeywords:      keywords,
			RecentSubsectionIDs: processed,
			Deterministic:       true,
		})
		if err != nil {
			return "", fmt.Errorf("plan batch topic: %w", err)
		}
		if sel == nil || containsUUID(processed, sel.Subsection.ID) {
			break
		}
		processed = append(processed, sel.Subsection.ID)

		mediums, err := s.chunks.GetBySubsectionID(ctx, nil, sel.Subsection.ID, types.ChunkMedium)
		if err != nil {
			s.log.Warn("loading medium chunks failed", "subsection_id", sel.Subsection.ID, "error", err)
			continue
		}
		if len(mediums) > questionsPerBatchItem {
			mediums = mediums[:questionsPerBatchItem]
		}
		for _, chunk := range mediums {
			question, err := s.composeAndPersist(ctx, generationContext{
				primary:      chunk,
				subsection:   sel.Subsection,
				phase:        PhaseFundamental,
				instructions: instructions,
			})
			if err != nil {
				s.log.Warn("question generation failed", "chunk_id", chunk.ID, "error", err)
				continue
			}
			if question.ID != uuid.Nil {
				totalGenerated++
			}
		}
	}

	summary := fmt.Sprintf("Batch complete: generated %d questions across %d topics.", totalGenerated, len(processed))
	s.log.Info("question pool batch finished", "course_id", courseID, "generated", totalGenerated, "topics", len(processed))
	return summary, nil
}

// composeAndPersist issues one generation request and stores the parsed
// question. Rate limits and provider failures come back as sentinel
// questions that are not persisted.
func (s *professor) composeAndPersist(ctx context.Context, gc generationContext) (*types.Question, error) {
	system := defaultExaminerPersona
	if strings.TrimSpace(gc.instructions) != "" {
		system = gc.instructions
	}

	text, err := s.generate.GenerateText(ctx, system, buildGenerationPrompt(gc))
	if errors.Is(err, llm.ErrRateLimited) {
		return &types.Question{
			QuestionText: BusyQuestion,
			IdealAnswer:  BusyAnswer,
			Status:       types.QuestionPending,
		}, nil
	}
	if err != nil {
		s.log.Error("generation request failed", "chunk_id", gc.primary.ID, "error", err)
		return &types.Question{
			QuestionText: UnavailableQuestion,
			IdealAnswer:  UnavailableAnswer,
			Status:       types.QuestionPending,
		}, nil
	}

	qText, aText := parseQuestionAnswer(text)
	qText = stripNumericRefs(qText)

	question := &types.Question{
		ID:           uuid.New(),
		QuestionText: qText,
		IdealAnswer:  aText,
		Status:       types.QuestionPending,
		ChunkID:      &gc.primary.ID,
		SubsectionID: &gc.subsection.ID,
	}
	if _, err := s.questions.Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("persist question: %w", err)
	}
	return question, nil
}

func (s *professor) loadInstructions(ctx context.Context, in GenerateInput) (string, error) {
	if in.QuizID != nil {
		quiz, err := s.quizzes.GetByID(ctx, nil, *in.QuizID)
		if err != nil {
			return "", err
		}
		return quiz.Instructions, nil
	}
	quiz, err := s.quizzes.GetLatestByCourseID(ctx, nil, in.CourseID)
	if err != nil || quiz == nil {
		return "", err
	}
	return quiz.Instructions, nil
}

func (s *professor) resolveRelated(ctx context.Context, chunkID uuid.UUID) []relatedChunk {
	relations, err := s.relations.GetBySourceChunkID(ctx, nil, chunkID, maxRelatedChunks)
	if err != nil {
		s.log.Warn("knowledge relations unavailable", "chunk_id", chunkID, "error", err)
		return nil
	}
	var related []relatedChunk
	for _, rel := range relations {
		target, err := s.chunks.GetByID(ctx, nil, rel.TargetChunkID)
		if err != nil {
			continue
		}
		related = append(related, relatedChunk{relation: rel.RelationType, content: target.Content})
	}
	return related
}

// findComparisonChunk picks a MEDIUM chunk from a different subsection for
// cross-topic synthesis, available from the CONNECTION phase on.
func (s *professor) findComparisonChunk(ctx context.Context, courseID, excludeSubsectionID uuid.UUID) *types.Chunk {
	candidates, err := s.chunks.GetByCourseID(ctx, nil, courseID, types.ChunkMedium)
	if err != nil {
		s.log.Warn("comparison chunk lookup failed", "course_id", courseID, "error", err)
		return nil
	}
	for _, c := range candidates {
		if c.SubsectionID != excludeSubsectionID {
			return c
		}
	}
	return nil
}

func (s *professor) loadFeedbackExamples(ctx context.Context, courseID uuid.UUID) ([]*types.Question, []*types.Question) {
	liked, err := s.questions.GetTopVotedByCourseID(ctx, nil, courseID, true, feedbackExampleLimit)
	if err != nil {
		s.log.Warn("liked examples unavailable", "course_id", courseID, "error", err)
	}
	disliked, err := s.questions.GetTopVotedByCourseID(ctx, nil, courseID, false, feedbackExampleLimit)
	if err != nil {
		s.log.Warn("disliked examples unavailable", "course_id", courseID, "error", err)
	}
	return liked, disliked
}

// recentThemes classifies the last few exchanges so the planner can steer
// away from themes the conversation just covered.
func (s *professor) recentThemes(history []Turn) []string {
	start := len(history) - RecencyWindow
	if start < 0 {
		start = 0
	}
	var themes []string
	for _, turn := range history[start:] {
		for _, text := range []string{turn.Question, turn.Answer} {
			theme := s.classifier.Classify(text)
			if theme.Tag != ThemeUnknown {
				themes = append(themes, theme.Tag)
			}
		}
	}
	return themes
}

var chapterRefRe = regexp.MustCompile(`(?i)chapter\s+\d+`)

// deriveFilterKeywords pulls chapter references out of grading instructions
// ("only ask from chapter 3") so the planner can scope candidates.
func deriveFilterKeywords(instructions string) []string {
	matches := chapterRefRe.FindAllString(instructions, -1)
	keywords := make([]string, 0, len(matches))
	for _, m := range matches {
		keywords = append(keywords, strings.ToLower(m))
	}
	return keywords
}

func buildGenerationPrompt(gc generationContext) string {
	var b strings.Builder

	b.WriteString("CONTEXT MATERIAL (grounded source):\n---\n")
	b.WriteString(gc.primary.Content)
	b.WriteString("\n---\n")

	for _, rel := range gc.related {
		fmt.Fprintf(&b, "\nRELATED CONCEPT (%s):\n---\n%s\n---\n", rel.relation, rel.content)
	}
	if gc.comparison != nil {
		b.WriteString("\nCOMPARISON MATERIAL (different topic, for cross-topic synthesis):\n---\n")
		b.WriteString(gc.comparison.Content)
		b.WriteString("\n---\n")
	}

	if len(gc.liked) > 0 {
		b.WriteString("\nQUESTIONS STUDENTS FOUND HELPFUL (emulate this style):\n")
		for _, q := range gc.liked {
			fmt.Fprintf(&b, "- %s\n", q.QuestionText)
		}
	}
	if len(gc.disliked) > 0 {
		b.WriteString("\nQUESTIONS STUDENTS DISLIKED (avoid this style):\n")
		for _, q := range gc.disliked {
			fmt.Fprintf(&b, "- %s\n", q.QuestionText)
		}
	}

	history := gc.history
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("\nCONVERSATION SO FAR (most recent last):\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "Professor: %s\nStudent: %s\n", turn.Question, turn.Answer)
		}
	}

	b.WriteString("\nTASK:\n")
	fmt.Fprintf(&b, "Current phase: %s.\n", gc.phase)
	switch gc.phase {
	case PhaseFundamental:
		b.WriteString("Probe comprehension of the core idea in the context material.\n")
	case PhaseConnection:
		b.WriteString("Ask the student to connect the context material with the related or comparison material.\n")
	case PhaseCritique:
		b.WriteString("Ask the student to critique or evaluate the argument in the context material.\n")
	}
	b.WriteString("Generate exactly ONE question grounded strictly in the material above.\n")
	b.WriteString("Never reference page, section, or line numbers in the question.\n")
	if len(gc.history) == 0 {
		b.WriteString("This is the first question: open with a brief greeting.\n")
	} else {
		b.WriteString("Do not greet again. Briefly acknowledge the student's last answer before asking.\n")
	}
	b.WriteString("If the system instructions specify a format (like multiple choice), follow it exactly; otherwise use a short-answer question.\n")
	b.WriteString("\nRETURN FORMAT (strict):\nQuestion: <the question text>\nIdeal Answer: <the correct answer/explanation>\n")

	return b.String()
}

func containsUUID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
