package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
	SetIngestionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.IngestionStatus) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *types.Course) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(course).Error; err != nil {
		return nil, err
	}
	return course, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var course types.Course
	if err := transaction.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) SetIngestionStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.IngestionStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", id).
		Update("ingestion_status", status).Error
}
