package types

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeRelation is a directed edge between two chunks with a free-form
// label ("pre-requisite", "critique", ...). Duplicates between the same pair
// are allowed. Relations are read at generation time for retrieval
// augmentation and never written by the runtime.
type KnowledgeRelation struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SourceChunkID uuid.UUID `gorm:"type:uuid;not null;index" json:"source_chunk_id"`
	TargetChunkID uuid.UUID `gorm:"type:uuid;not null;index" json:"target_chunk_id"`
	RelationType  string    `gorm:"column:relation_type;not null" json:"relation_type"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (KnowledgeRelation) TableName() string { return "knowledge_relation" }
