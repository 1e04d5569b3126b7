package types

import (
	"time"

	"github.com/google/uuid"
)

type QuestionStatus string

const (
	QuestionPending        QuestionStatus = "pending"
	QuestionApproved       QuestionStatus = "approved"
	QuestionRejected       QuestionStatus = "rejected"
	QuestionNeedsRewording QuestionStatus = "needs_reword"
)

type Question struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	QuestionText string         `gorm:"column:question_text;type:text;not null" json:"question_text"`
	IdealAnswer  string         `gorm:"column:ideal_answer;type:text;not null" json:"ideal_answer"`
	Status       QuestionStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	Difficulty   string         `gorm:"column:difficulty" json:"difficulty,omitempty"`
	Upvotes      int            `gorm:"column:upvotes;not null;default:0" json:"upvotes"`
	Downvotes    int            `gorm:"column:downvotes;not null;default:0" json:"downvotes"`
	ChunkID      *uuid.UUID     `gorm:"type:uuid;index" json:"chunk_id,omitempty"`
	Chunk        *Chunk         `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChunkID;references:ID" json:"chunk,omitempty"`
	SubsectionID *uuid.UUID     `gorm:"type:uuid;index" json:"subsection_id,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Question) TableName() string { return "question" }
