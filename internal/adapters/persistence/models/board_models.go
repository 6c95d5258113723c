package models

import (
	"time"
)

// ============================================================
// Notices & Todos
// ============================================================

// Notice 공지사항
type Notice struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Priority    string     `gorm:"size:10;default:'중간'" json:"priority"`
	CreatedByID *uint      `json:"created_by_id"`
	EndDate     *time.Time `gorm:"type:date" json:"end_date"`
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`

	CreatedBy *User `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

func (Notice) TableName() string {
	return "notices"
}

// ActiveOn reports whether the notice should be shown on the given day
func (n *Notice) ActiveOn(today time.Time) bool {
	if !n.IsActive {
		return false
	}
	if n.EndDate == nil {
		return true
	}
	y1, m1, d1 := n.EndDate.Date()
	y2, m2, d2 := today.Date()
	end := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	day := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return !end.Before(day)
}

// Todo 할일
type Todo struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	LoanCaseID   uint       `gorm:"not null;index" json:"loan_case_id"`
	Title        string     `gorm:"size:200;not null" json:"title"`
	Content      string     `gorm:"type:text" json:"content"`
	Deadline     *time.Time `json:"deadline"`
	Status       string     `gorm:"size:20;default:'pending'" json:"status"`
	Priority     int        `gorm:"default:2" json:"priority"`
	CreatedByID  uint       `gorm:"not null" json:"created_by_id"`
	AssignedToID *uint      `gorm:"index" json:"assigned_to_id"`
	IsArchived   bool       `gorm:"default:false" json:"is_archived"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`

	CreatedBy  *User         `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	AssignedTo *User         `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Histories  []TodoHistory `gorm:"foreignKey:TodoID;constraint:OnDelete:CASCADE" json:"histories,omitempty"`
}

func (Todo) TableName() string {
	return "todos"
}

// TodoTemplate 할일 템플릿
type TodoTemplate struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Content     string    `gorm:"type:text" json:"content"`
	Priority    int       `gorm:"default:2" json:"priority"`
	CreatedByID uint      `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TodoTemplate) TableName() string {
	return "todo_templates"
}

// TodoHistory records one field change on a todo
type TodoHistory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TodoID      uint      `gorm:"not null;index" json:"todo_id"`
	ChangedByID uint      `gorm:"not null" json:"changed_by_id"`
	ChangedAt   time.Time `gorm:"not null" json:"changed_at"`
	FieldName   string    `gorm:"size:50;not null" json:"field_name"`
	OldValue    string    `gorm:"type:text" json:"old_value"`
	NewValue    string    `gorm:"type:text" json:"new_value"`
}

func (TodoHistory) TableName() string {
	return "todo_histories"
}
