package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type KnowledgeRelationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, relation *types.KnowledgeRelation) (*types.KnowledgeRelation, error)
	GetBySourceChunkID(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID, limit int) ([]*types.KnowledgeRelation, error)
}

type knowledgeRelationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeRelationRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeRelationRepo {
	return &knowledgeRelationRepo{db: db, log: baseLog.With("repo", "KnowledgeRelationRepo")}
}

func (r *knowledgeRelationRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *knowledgeRelationRepo) Create(ctx context.Context, tx *gorm.DB, relation *types.KnowledgeRelation) (*types.KnowledgeRelation, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(relation).Error; err != nil {
		return nil, err
	}
	return relation, nil
}

func (r *knowledgeRelationRepo) GetBySourceChunkID(ctx context.Context, tx *gorm.DB, chunkID uuid.UUID, limit int) ([]*types.KnowledgeRelation, error) {
	query := r.resolve(tx).WithContext(ctx).
		Where("source_chunk_id = ?", chunkID).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var relations []*types.KnowledgeRelation
	if err := query.Find(&relations).Error; err != nil {
		return nil, err
	}
	return relations, nil
}
