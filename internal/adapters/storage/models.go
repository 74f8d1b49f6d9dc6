package storage

import "time"

// ThoughtModel is the GORM model for the thoughts table
type ThoughtModel struct {
	CapturedAt      time.Time  `gorm:"not null;index:idx_captured_at"`
	CompletedAt     *time.Time `gorm:"default:null;index:idx_completed_at"`
	Content         string     `gorm:"not null"`
	CreatedAt       time.Time
	DueDate         *time.Time `gorm:"default:null"`
	ID              string     `gorm:"primaryKey"`
	Position        int        `gorm:"not null;default:0;index:idx_position"`
	ReframedContent string     `gorm:"default:''"`
	SlotHour        *int       `gorm:"default:null"`
	SlotMinute      *int       `gorm:"default:null"`
	Status          string     `gorm:"not null;default:'UNSORTED';check:status IN ('UNSORTED','LET_THEM','LET_ME','COMPLETED')"`
	StoicQuote      string     `gorm:"default:''"`
	TimeEstimate    string     `gorm:"default:''"`
	UpdatedAt       time.Time
	Weight          *string    `gorm:"default:null"`
}

// TableName specifies the table name for GORM
func (ThoughtModel) TableName() string { return "thoughts" }

// SubTaskModel is the GORM model for sub-tasks (extension table, 1-to-many
// with thoughts)
type SubTaskModel struct {
	Completed bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	ID        string `gorm:"primaryKey"`
	Position  int    `gorm:"not null;default:0"`
	Text      string `gorm:"not null"`
	ThoughtID string `gorm:"not null;index:idx_subtask_thought"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (SubTaskModel) TableName() string { return "thought_sub_tasks" }

// MetaModel is the GORM model for schema bookkeeping
type MetaModel struct {
	CreatedAt time.Time
	Key       string `gorm:"primaryKey"`
	UpdatedAt time.Time
	Value     string `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (MetaModel) TableName() string { return "flux_meta" }
