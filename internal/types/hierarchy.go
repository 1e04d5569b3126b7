package types

import (
	"time"

	"github.com/google/uuid"
)

type Chapter struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"course_id"`
	Title     string     `gorm:"column:title;not null" json:"title"`
	Order     int        `gorm:"column:ordinal;not null;default:0" json:"order"`
	Sections  []*Section `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID;references:ID" json:"sections,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chapter) TableName() string { return "chapter" }

type Section struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChapterID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"chapter_id"`
	Title       string        `gorm:"column:title;not null" json:"title"`
	Order       int           `gorm:"column:ordinal;not null;default:0" json:"order"`
	Subsections []*Subsection `gorm:"constraint:OnDelete:CASCADE;foreignKey:SectionID;references:ID" json:"subsections,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (Section) TableName() string { return "section" }

type Subsection struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SectionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"section_id"`
	Title     string         `gorm:"column:title;not null" json:"title"`
	Order     int            `gorm:"column:ordinal;not null;default:0" json:"order"`
	Materials []*RawMaterial `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubsectionID;references:ID" json:"materials,omitempty"`
	Chunks    []*Chunk       `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubsectionID;references:ID" json:"chunks,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Subsection) TableName() string { return "subsection" }

// RawMaterial holds the full extracted text for one subsection. Content is
// immutable after creation; the current design keeps exactly one per
// subsection and lookups take the first match.
type RawMaterial struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubsectionID uuid.UUID `gorm:"type:uuid;not null;index" json:"subsection_id"`
	Content      string    `gorm:"column:content;type:text;not null" json:"content"`
	SourceType   string    `gorm:"column:source_type" json:"source_type"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (RawMaterial) TableName() string { return "raw_material" }
