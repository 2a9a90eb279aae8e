package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID           uuid.UUID  `json:"id" db:"uuid"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Completed    bool       `json:"completed" db:"completed"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DueDate      *time.Time `json:"due_date,omitempty" db:"due_date"`
	ReminderTime *time.Time `json:"reminder_time,omitempty" db:"reminder_time"`
}

// Patch - частичное обновление задачи, nil-поля не трогаются
type Patch struct {
	Title        *string
	Description  *string
	Completed    *bool
	DueDate      *time.Time
	ReminderTime *time.Time
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Completed == nil &&
		p.DueDate == nil &&
		p.ReminderTime == nil
}

// Apply применяет заполненные поля и сообщает, изменилось ли хоть одно
func (p Patch) Apply(t *Task) bool {
	changed := false

	if p.Title != nil && *p.Title != t.Title {
		t.Title = *p.Title
		changed = true
	}
	if p.Description != nil && *p.Description != t.Description {
		t.Description = *p.Description
		changed = true
	}
	if p.Completed != nil && *p.Completed != t.Completed {
		t.Completed = *p.Completed
		changed = true
	}
	if p.DueDate != nil && !equalTime(t.DueDate, p.DueDate) {
		due := *p.DueDate
		t.DueDate = &due
		changed = true
	}
	if p.ReminderTime != nil && !equalTime(t.ReminderTime, p.ReminderTime) {
		reminder := *p.ReminderTime
		t.ReminderTime = &reminder
		changed = true
	}

	return changed
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
