package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type QuizRepo interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.Quiz, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Quiz, error)
	// GetLatestByCourseID returns (nil, nil) when the course has no quiz yet.
	GetLatestByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Quiz, error)
}

type quizRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuizRepo(db *gorm.DB, baseLog *logger.Logger) QuizRepo {
	return &quizRepo{db: db, log: baseLog.With("repo", "QuizRepo")}
}

func (r *quizRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *quizRepo) Create(ctx context.Context, tx *gorm.DB, quiz *types.Quiz) (*types.Quiz, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(quiz).Error; err != nil {
		return nil, err
	}
	return quiz, nil
}

func (r *quizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Quiz, error) {
	var quiz types.Quiz
	if err := r.resolve(tx).WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (r *quizRepo) GetLatestByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Quiz, error) {
	var quiz types.Quiz
	err := r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		First(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}
