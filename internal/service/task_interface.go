package service

import (
	"context"
	"time"
	"todoKeeper/internal/models/task"

	"github.com/google/uuid"
)

// TaskRepository - контракт хранилища задач.
// Реализуется inmemory и postgres репозиториями.
type TaskRepository interface {
	HealthCheck(ctx context.Context) error

	Create(ctx context.Context, t *task.Task) error
	CreateMany(ctx context.Context, tasks []*task.Task) ([]uuid.UUID, error)

	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	List(ctx context.Context, filter task.Filter, sortBy task.Sort, window task.Window) ([]*task.Task, error)
	ListAll(ctx context.Context, filter task.Filter) ([]*task.Task, error)
	Count(ctx context.Context, filter task.Filter) (int64, error)

	UpdateFields(ctx context.Context, id uuid.UUID, patch task.Patch) (matched, modified bool, err error)

	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)

	DueReminders(ctx context.Context, now time.Time, limit int) ([]*task.Task, error)
	ClearReminder(ctx context.Context, id uuid.UUID, observed time.Time) (bool, error)
}
