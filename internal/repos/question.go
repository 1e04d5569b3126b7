package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type QuestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, question *types.Question) (*types.Question, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error)
	CountBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) (int64, error)
	GetTopVotedByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, liked bool, limit int) ([]*types.Question, error)
	DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *questionRepo) Create(ctx context.Context, tx *gorm.DB, question *types.Question) (*types.Question, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(question).Error; err != nil {
		return nil, err
	}
	return question, nil
}

func (r *questionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Question, error) {
	var question types.Question
	if err := r.resolve(tx).WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *questionRepo) CountBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) (int64, error) {
	var count int64
	err := r.resolve(tx).WithContext(ctx).
		Model(&types.Question{}).
		Where("subsection_id = ?", subsectionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetTopVotedByCourseID returns the course questions a professor's students
// voted on, ranked for feedback-steering examples. liked=true ranks by
// upvotes, liked=false by downvotes; zero-vote questions are left out.
func (r *questionRepo) GetTopVotedByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, liked bool, limit int) ([]*types.Question, error) {
	voteColumn := "question.upvotes"
	if !liked {
		voteColumn = "question.downvotes"
	}
	var questions []*types.Question
	err := r.resolve(tx).WithContext(ctx).
		Model(&types.Question{}).
		Joins("JOIN subsection ON subsection.id = question.subsection_id").
		Joins("JOIN section ON section.id = subsection.section_id").
		Joins("JOIN chapter ON chapter.id = section.chapter_id").
		Where("chapter.course_id = ?", courseID).
		Where(voteColumn+" > 0").
		Order(voteColumn + " DESC").
		Limit(limit).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// DeleteByCourseID removes questions attached to any subsection of the
// course. Questions have no direct FK to the course, so this runs before the
// chapter cascade during a re-ingest.
func (r *questionRepo) DeleteByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	subsectionIDs := r.resolve(tx).WithContext(ctx).
		Model(&types.Subsection{}).
		Select("subsection.id").
		Joins("JOIN section ON section.id = subsection.section_id").
		Joins("JOIN chapter ON chapter.id = section.chapter_id").
		Where("chapter.course_id = ?", courseID)

	return r.resolve(tx).WithContext(ctx).
		Where("subsection_id IN (?)", subsectionIDs).
		Delete(&types.Question{}).Error
}
