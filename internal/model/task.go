package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

type Task struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	Title       string    `gorm:"size:100;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Priority    Priority  `gorm:"type:enum('Low','Medium','High');not null;default:'Medium'" json:"priority"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`
	Status      Status    `gorm:"type:enum('Pending','In Progress','Completed');not null;default:'Pending'" json:"status"`
	AssignedBy  string    `gorm:"type:char(36);not null;index" json:"assigned_by"`
	AssignedTo  string    `gorm:"type:char(36);not null;index" json:"assigned_to"`
	FileURL     string    `gorm:"size:500" json:"file_url,omitempty"`
	// FileKey is the object-store key recorded at upload time so that
	// deleting an attachment never has to parse the URL back apart.
	FileKey   string    `gorm:"size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assignee *User `gorm:"foreignKey:AssignedTo;references:ID" json:"assignee,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
