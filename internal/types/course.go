package types

import (
	"time"

	"github.com/google/uuid"
)

type IngestionStatus string

const (
	IngestionPending    IngestionStatus = "pending"
	IngestionProcessing IngestionStatus = "processing"
	IngestionCompleted  IngestionStatus = "completed"
	IngestionFailed     IngestionStatus = "failed"
)

type Course struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title           string          `gorm:"column:title;not null" json:"title"`
	Description     string          `gorm:"column:description" json:"description"`
	IngestionStatus IngestionStatus `gorm:"column:ingestion_status;not null;default:'pending'" json:"ingestion_status"`
	Chapters        []*Chapter      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"chapters,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:now()" json:"updated_at"`
}

func (Course) TableName() string { return "course" }
