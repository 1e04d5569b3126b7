package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quizforge/quizforge-backend/internal/platform/logger"
	"github.com/quizforge/quizforge-backend/internal/types"
)

// HierarchyRepo covers the ordered Chapter → Section → Subsection tree plus
// the raw material attached to subsections. Ordering is always by the
// ordinal column so syllabus traversal is deterministic.
type HierarchyRepo interface {
	CreateChapter(ctx context.Context, tx *gorm.DB, chapter *types.Chapter) (*types.Chapter, error)
	CreateSection(ctx context.Context, tx *gorm.DB, section *types.Section) (*types.Section, error)
	CreateSubsection(ctx context.Context, tx *gorm.DB, subsection *types.Subsection) (*types.Subsection, error)
	CreateRawMaterial(ctx context.Context, tx *gorm.DB, material *types.RawMaterial) (*types.RawMaterial, error)

	GetCourseTree(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error)
	GetSubsectionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subsection, error)
	GetRawMaterialBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) (*types.RawMaterial, error)
	DeleteChaptersByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type hierarchyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHierarchyRepo(db *gorm.DB, baseLog *logger.Logger) HierarchyRepo {
	return &hierarchyRepo{db: db, log: baseLog.With("repo", "HierarchyRepo")}
}

func (r *hierarchyRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *hierarchyRepo) CreateChapter(ctx context.Context, tx *gorm.DB, chapter *types.Chapter) (*types.Chapter, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(chapter).Error; err != nil {
		return nil, err
	}
	return chapter, nil
}

func (r *hierarchyRepo) CreateSection(ctx context.Context, tx *gorm.DB, section *types.Section) (*types.Section, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(section).Error; err != nil {
		return nil, err
	}
	return section, nil
}

func (r *hierarchyRepo) CreateSubsection(ctx context.Context, tx *gorm.DB, subsection *types.Subsection) (*types.Subsection, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(subsection).Error; err != nil {
		return nil, err
	}
	return subsection, nil
}

func (r *hierarchyRepo) CreateRawMaterial(ctx context.Context, tx *gorm.DB, material *types.RawMaterial) (*types.RawMaterial, error) {
	if err := r.resolve(tx).WithContext(ctx).Create(material).Error; err != nil {
		return nil, err
	}
	return material, nil
}

// GetCourseTree returns chapters with sections and subsections preloaded,
// every level ordered by ordinal.
func (r *hierarchyRepo) GetCourseTree(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Chapter, error) {
	var chapters []*types.Chapter
	err := r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("ordinal ASC").
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		Preload("Sections.Subsections", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		Find(&chapters).Error
	if err != nil {
		return nil, err
	}
	return chapters, nil
}

func (r *hierarchyRepo) GetSubsectionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Subsection, error) {
	var subsection types.Subsection
	if err := r.resolve(tx).WithContext(ctx).First(&subsection, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &subsection, nil
}

// GetRawMaterialBySubsectionID returns the first material row for the
// subsection; the current design stores exactly one.
func (r *hierarchyRepo) GetRawMaterialBySubsectionID(ctx context.Context, tx *gorm.DB, subsectionID uuid.UUID) (*types.RawMaterial, error) {
	var material types.RawMaterial
	err := r.resolve(tx).WithContext(ctx).
		Where("subsection_id = ?", subsectionID).
		Order("created_at ASC").
		First(&material).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// DeleteChaptersByCourseID removes the course hierarchy; sections,
// subsections, raw material, and chunks go with it through the cascade
// constraints.
func (r *hierarchyRepo) DeleteChaptersByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.Chapter{}).Error
}
