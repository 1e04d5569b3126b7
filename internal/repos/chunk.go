package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

type ChunkRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chunk, error)
	GetByVectorID(ctx context.Context, tx *gorm.DB, vectorID string) (*types.Chunk, error)
	GetBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID, chunkTypes ...types.ChunkType) ([]*types.Chunk, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, chunkTypes ...types.ChunkType) ([]*types.Chunk, error)
	SetVectorID(ctx context.Context, tx *gorm.DB, id uuid.UUID, vectorID string) error
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *chunkRepo) CreateBatch(ctx context.Context, tx *gorm.DB, chunks []*types.Chunk) ([]*types.Chunk, error) {
	if len(chunks) == 0 {
		return []*types.Chunk{}, nil
	}

	// Keep batches small because Content is large
	const batchSize = 100

	if err := r.resolve(tx).WithContext(ctx).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Chunk, error) {
	var chunk types.Chunk
	if err := r.resolve(tx).WithContext(ctx).First(&chunk, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (r *chunkRepo) GetByVectorID(ctx context.Context, tx *gorm.DB, vectorID string) (*types.Chunk, error) {
	var chunk types.Chunk
	err := r.resolve(tx).WithContext(ctx).
		Where("vector_id = ?", vectorID).
		First(&chunk).Error
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (r *chunkRepo) GetBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID, chunkTypes ...types.ChunkType) ([]*types.Chunk, error) {
	query := r.resolve(tx).WithContext(ctx).
		Where("subsection_id = ?", subsectionID).
		Order("created_at ASC")
	if len(chunkTypes) > 0 {
		query = query.Where("chunk_type IN ?", chunkTypes)
	}
	var chunks []*types.Chunk
	if err := query.Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

// GetByCourseID returns chunks of a whole course in syllabus order, used by
// the full re-embed path.
func (r *chunkRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, chunkTypes ...types.ChunkType) ([]*types.Chunk, error) {
	query := r.resolve(tx).WithContext(ctx).
		Model(&types.Chunk{}).
		Joins("JOIN subsection ON subsection.id = chunk.subsection_id").
		Joins("JOIN section ON section.id = subsection.section_id").
		Joins("JOIN chapter ON chapter.id = section.chapter_id").
		Where("chapter.course_id = ?", courseID).
		Order("chapter.ordinal ASC, section.ordinal ASC, subsection.ordinal ASC, chunk.created_at ASC")
	if len(chunkTypes) > 0 {
		query = query.Where("chunk.chunk_type IN ?", chunkTypes)
	}
	var chunks []*types.Chunk
	if err := query.Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) SetVectorID(ctx context.Context, tx *gorm.DB, id uuid.UUID, vectorID string) error {
	return r.resolve(tx).WithContext(ctx).
		Model(&types.Chunk{}).
		Where("id = ?", id).
		Update("vector_id", vectorID).Error
}
