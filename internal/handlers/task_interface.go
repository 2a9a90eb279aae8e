package handlers

import (
	"context"
	"todoKeeper/internal/models/task"
	"todoKeeper/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error

	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
	ListTasks(ctx context.Context, opts service.ListOptions) (*service.TaskPage, error)
	CountTasks(ctx context.Context, opts service.ListOptions) (int64, error)
	SearchTasks(ctx context.Context, opts service.SearchOptions) ([]*task.Task, error)
	GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error

	BulkCreate(ctx context.Context, tasks []*task.Task) ([]uuid.UUID, error)
	BulkUpdate(ctx context.Context, items []service.BulkUpdateItem) (service.BulkUpdateResult, error)
	BulkDelete(ctx context.Context, ids []string) (int64, error)

	Stats(ctx context.Context) (service.Stats, error)
	Reset(ctx context.Context) (int64, error)
}
