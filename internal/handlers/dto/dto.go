package dto

import (
	"time"
	"todoKeeper/internal/models/task"
)

type CreateTaskRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Completed    bool       `json:"completed"`
	DueDate      *time.Time `json:"due_date"`
	ReminderTime *time.Time `json:"reminder_time"`
}

func (r CreateTaskRequest) ToTask() *task.Task {
	return &task.Task{
		Title:        r.Title,
		Description:  r.Description,
		Completed:    r.Completed,
		DueDate:      r.DueDate,
		ReminderTime: r.ReminderTime,
	}
}

type UpdateTaskRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderTime *time.Time `json:"reminder_time,omitempty"`
}

func (r UpdateTaskRequest) ToPatch() task.Patch {
	return task.Patch{
		Title:        r.Title,
		Description:  r.Description,
		Completed:    r.Completed,
		DueDate:      r.DueDate,
		ReminderTime: r.ReminderTime,
	}
}

type BulkUpdateItemRequest struct {
	ID           string     `json:"id"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderTime *time.Time `json:"reminder_time,omitempty"`
}

func (r BulkUpdateItemRequest) ToPatch() task.Patch {
	return task.Patch{
		Title:        r.Title,
		Description:  r.Description,
		Completed:    r.Completed,
		DueDate:      r.DueDate,
		ReminderTime: r.ReminderTime,
	}
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type TaskResponse struct {
	RowNumber     int        `json:"row_number,omitempty"`
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Completed     bool       `json:"completed"`
	CreatedAt     time.Time  `json:"created_at"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	ReminderTime  *time.Time `json:"reminder_time,omitempty"`
	RemainingTime *float64   `json:"remaining_time,omitempty"`
}

func FromTask(t *task.Task) TaskResponse {
	resp := TaskResponse{
		ID:           t.ID.String(),
		Title:        t.Title,
		Description:  t.Description,
		Completed:    t.Completed,
		CreatedAt:    t.CreatedAt,
		DueDate:      t.DueDate,
		ReminderTime: t.ReminderTime,
	}

	// remaining_time - проекция на момент чтения, не хранится
	if t.DueDate != nil {
		remaining := t.DueDate.Sub(time.Now()).Seconds()
		if remaining < 0 {
			remaining = 0
		}
		resp.RemainingTime = &remaining
	}

	return resp
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

// FromTaskPage нумерует строки сквозной нумерацией: skip + локальный индекс + 1
func FromTaskPage(tasks []*task.Task, skip int) []TaskResponse {
	result := FromTaskList(tasks)
	for i := range result {
		result[i].RowNumber = skip + i + 1
	}
	return result
}

type ListTasksResponse struct {
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	Tasks   []TaskResponse `json:"tasks"`
}
