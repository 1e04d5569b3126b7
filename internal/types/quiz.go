package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Quiz carries per-course assessment configuration. Instructions, when set,
// override the default examiner persona for generation and grading.
type Quiz struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID        uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	Title           string    `gorm:"column:title" json:"title"`
	Instructions    string    `gorm:"column:instructions;type:text" json:"instructions,omitempty"`
	DurationMinutes int       `gorm:"column:duration_minutes;not null;default:60" json:"duration_minutes"`
	TotalMarks      int       `gorm:"column:total_marks;not null;default:100" json:"total_marks"`
	Finalized       bool      `gorm:"column:finalized;not null;default:false" json:"finalized"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Quiz) TableName() string { return "quiz" }

// Transcript is the append-only audit record of one student response:
// answer, AI evaluation, score, and the chunk ids retrieved for grading.
type Transcript struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StudentID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"student_id"`
	QuizID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"quiz_id"`
	QuestionID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	StudentAnswer     string         `gorm:"column:student_answer;type:text" json:"student_answer"`
	AIEvaluation      string         `gorm:"column:ai_evaluation;type:text" json:"ai_evaluation"`
	Score             float64        `gorm:"column:score" json:"score"`
	RetrievedChunkIDs datatypes.JSON `gorm:"column:retrieved_chunk_ids;type:jsonb" json:"retrieved_chunk_ids,omitempty"`
	TimeTakenSeconds  int            `gorm:"column:time_taken_seconds" json:"time_taken_seconds"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Transcript) TableName() string { return "transcript" }
