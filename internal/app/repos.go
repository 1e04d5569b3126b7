package app

import (
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/repos"
)

type Repos struct {
	Courses     repos.CourseRepo
	Hierarchy   repos.HierarchyRepo
	Chunks      repos.ChunkRepo
	Relations   repos.KnowledgeRelationRepo
	Questions   repos.QuestionRepo
	Quizzes     repos.QuizRepo
	Transcripts repos.TranscriptRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Courses:     repos.NewCourseRepo(db, log),
		Hierarchy:   repos.NewHierarchyRepo(db, log),
		Chunks:      repos.NewChunkRepo(db, log),
		Relations:   repos.NewKnowledgeRelationRepo(db, log),
		Questions:   repos.NewQuestionRepo(db, log),
		Quizzes:     repos.NewQuizRepo(db, log),
		Transcripts: repos.NewTranscriptRepo(db, log),
	}
}
