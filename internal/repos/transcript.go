package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// TranscriptRepo is append-only: transcripts are audit records and are never
// updated or deleted by the runtime.
type TranscriptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, transcript *types.Transcript) (*types.Transcript, error)
	ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) ([]*types.Transcript, error)
}

type transcriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranscriptRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptRepo {
	return &transcriptRepo{db: db, log: baseLog.With("repo", "TranscriptRepo")}
}

func (r *transcriptRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *transcriptRepo) Create(ctx context.Context, tx *gorm.DB, transcript *types.Transcript) (*types.Transcript, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(transcript).Error; err != nil {
		return nil, err
	}
	return transcript, nil
}

func (r *transcriptRepo) ListByQuizAndStudent(ctx context.Context, tx *gorm.DB, quizID, studentID uuid.UUID) ([]*types.Transcript, error) {
	var transcripts []*types.Transcript
	err := r.resolve(tx).WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("created_at ASC").
		Find(&transcripts).Error
	if err != nil {
		return nil, err
	}
	return transcripts, nil
}
