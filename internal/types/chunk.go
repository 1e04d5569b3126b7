package types

import (
	"time"

	"github.com/google/uuid"
)

type ChunkType string

const (
	ChunkSmall  ChunkType = "S" // definitions, single facts
	ChunkMedium ChunkType = "M" // merged explanations
	ChunkLarge  ChunkType = "L" // concept scope, syllabus planning
)

// Chunk is immutable once created and only removed by cascading subsection
// deletion. VectorID is the index offset assigned when the chunk is embedded;
// LARGE chunks are never embedded and keep it empty.
type Chunk struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SubsectionID uuid.UUID `gorm:"type:uuid;not null;index" json:"subsection_id"`
	Content      string    `gorm:"column:content;type:text;not null" json:"content"`
	ChunkType    ChunkType `gorm:"column:chunk_type;not null;index" json:"chunk_type"`
	VectorID     string    `gorm:"column:vector_id;index" json:"vector_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Chunk) TableName() string { return "chunk" }
