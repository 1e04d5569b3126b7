package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// QuizSession runs the student-facing assessment loop: start a quiz, grade
// submitted answers, and append the audit transcript.
type QuizSession interface {
	StartQuiz(ctx context.Context, courseID, studentID uuid.UUID) (*types.Quiz, error)
	SubmitAnswer(ctx context.Context, studentID, quizID, questionID uuid.UUID, answerText string) (*types.Transcript, error)
}

type quizSession struct {
	log         *logger.Logger
	quizzes     repos.QuizRepo
	questions   repos.QuestionRepo
	transcripts repos.TranscriptRepo
	evaluator   Evaluator
}

func NewQuizSession(baseLog *logger.Logger, quizzes repos.QuizRepo, questions repos.QuestionRepo, transcripts repos.TranscriptRepo, evaluator Evaluator) QuizSession {
	return &quizSession{
		log:         baseLog.With("service", "QuizSession"),
		quizzes:     quizzes,
		questions:   questions,
		transcripts: transcripts,
		evaluator:   evaluator,
	}
}

func (s *quizSession) StartQuiz(ctx context.Context, courseID, studentID uuid.UUID) (*types.Quiz, error) {
	quiz := &types.Quiz{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    fmt.Sprintf("Quiz - %s", time.Now().Format("2006-01-02")),
	}
	if _, err := s.quizzes.Create(ctx, nil, quiz); err != nil {
		return nil, fmt.Errorf("create quiz: %w", err)
	}
	s.log.Info("quiz started", "quiz_id", quiz.ID, "course_id", courseID, "student_id", studentID)
	return quiz, nil
}

func (s *quizSession) SubmitAnswer(ctx context.Context, studentID, quizID, questionID uuid.UUID, answerText string) (*types.Transcript, error) {
	question, err := s.questions.GetByID(ctx, nil, questionID)
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}
	if question.Status != types.QuestionApproved {
		return nil, fmt.Errorf("question %s is not approved for assessment", questionID)
	}

	quiz, err := s.quizzes.GetByID(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz: %w", err)
	}

	eval, err := s.evaluator.EvaluateAnswer(ctx, EvaluateInput{
		QuestionText:        question.QuestionText,
		StudentAnswer:       answerText,
		IdealAnswer:         question.IdealAnswer,
		GradingInstructions: quiz.Instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate answer: %w", err)
	}

	retrievedIDs, err := json.Marshal(eval.RetrievedChunkIDs)
	if err != nil {
		return nil, fmt.Errorf("encode retrieved chunk ids: %w", err)
	}

	transcript := &types.Transcript{
		ID:                uuid.New(),
		StudentID:         studentID,
		QuizID:            quizID,
		QuestionID:        questionID,
		StudentAnswer:     answerText,
		AIEvaluation:      eval.Reasoning,
		Score:             eval.Score,
		RetrievedChunkIDs: retrievedIDs,
	}
	if _, err := s.transcripts.Create(ctx, nil, transcript); err != nil {
		return nil, fmt.Errorf("append transcript: %w", err)
	}
	s.log.Info("answer graded", "quiz_id", quizID, "question_id", questionID, "score", eval.Score)
	return transcript, nil
}
