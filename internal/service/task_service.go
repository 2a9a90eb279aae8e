package service

import (
	"context"
	"errors"
	"fmt"
	"todoKeeper/internal/logger"
	"todoKeeper/internal/models/task"
	repo "todoKeeper/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь живёт бизнес-логика: компиляция предикатов, планирование
// пагинации и групповые операции с частичными отказами

type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) TaskService {
	return TaskService{
		repo: repo,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *TaskService) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	if t.Title == "" {
		return nil, NewValidationError("title", "не может быть пустым")
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}
	return t, nil
}

// TaskPage - страница результатов вместе с контекстом окна
type TaskPage struct {
	Tasks   []*task.Task
	Total   int64
	Page    int
	PerPage int
	Skip    int
}

// ListTasks выполняет подсчёт и выборку по одному и тому же
// скомпилированному предикату, поэтому total всегда отражает полный
// набор совпадений, а не возвращённую страницу
func (s *TaskService) ListTasks(ctx context.Context, opts ListOptions) (*TaskPage, error) {
	filter, err := compileListFilter(opts)
	if err != nil {
		return nil, err
	}

	sortBy := compileSort(opts.SortBy, opts.Order)
	window := compileWindow(opts.Page, opts.PerPage)

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}

	tasks, err := s.repo.List(ctx, filter, sortBy, window)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	return &TaskPage{
		Tasks:   tasks,
		Total:   total,
		Page:    window.Page,
		PerPage: window.PerPage,
		Skip:    window.Skip(),
	}, nil
}

func (s *TaskService) CountTasks(ctx context.Context, opts ListOptions) (int64, error) {
	filter, err := compileListFilter(opts)
	if err != nil {
		return 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return total, nil
}

func (s *TaskService) SearchTasks(ctx context.Context, opts SearchOptions) ([]*task.Task, error) {
	filter := compileSearchFilter(opts)

	tasks, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("поиск задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(id.String())
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, patch task.Patch) (*task.Task, error) {
	if patch.IsEmpty() {
		return nil, NewValidationError("body", "нет полей для обновления")
	}

	matched, _, err := s.repo.UpdateFields(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	if !matched {
		logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		return nil, NewNotFound(id.String())
	}

	return s.GetTaskByID(ctx, id)
}

func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return NewNotFound(id.String())
		}
		return fmt.Errorf("удаление задачи: %w", err)
	}
	return nil
}

// BulkCreate: валидация fail-fast - первая задача без title отклоняет
// всю пачку, вставка начинается только когда все элементы корректны
func (s *TaskService) BulkCreate(ctx context.Context, tasks []*task.Task) ([]uuid.UUID, error) {
	if len(tasks) == 0 {
		return nil, NewValidationError("body", "пустой список задач")
	}

	for i, t := range tasks {
		if t.Title == "" {
			return nil, NewValidationError("title", fmt.Sprintf("элемент %d: не может быть пустым", i))
		}
	}

	insertedIDs, err := s.repo.CreateMany(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("групповое создание: %w", err)
	}

	logger.Info("Service: Групповое создание задач", zap.Int("created", len(insertedIDs)))
	return insertedIDs, nil
}

type BulkUpdateItem struct {
	ID    string
	Patch task.Patch
}

type BulkUpdateResult struct {
	Matched  int64
	Modified int64
}

// BulkUpdate: элементы с нечитаемым id или пустым патчем пропускаются,
// каждый оставшийся - независимое атомарное обновление. Межэлементной
// атомарности нет, откатов нет.
func (s *TaskService) BulkUpdate(ctx context.Context, items []BulkUpdateItem) (BulkUpdateResult, error) {
	type operation struct {
		id    uuid.UUID
		patch task.Patch
	}

	operations := []operation{}
	for _, item := range items {
		id, err := uuid.Parse(item.ID)
		if err != nil || item.Patch.IsEmpty() {
			continue
		}
		operations = append(operations, operation{id: id, patch: item.Patch})
	}

	if len(operations) == 0 {
		return BulkUpdateResult{}, NewValidationError("items", "нет допустимых операций")
	}

	result := BulkUpdateResult{}
	for _, op := range operations {
		matched, modified, err := s.repo.UpdateFields(ctx, op.id, op.patch)
		if err != nil {
			return BulkUpdateResult{}, fmt.Errorf("групповое обновление: %w", err)
		}
		if matched {
			result.Matched++
		}
		if modified {
			result.Modified++
		}
	}

	logger.Info("Service: Групповое обновление задач",
		zap.Int64("matched", result.Matched),
		zap.Int64("modified", result.Modified))
	return result, nil
}

// BulkDelete: нечитаемые id отбрасываются, при полном отсутствии
// валидных id запрос отклоняется
func (s *TaskService) BulkDelete(ctx context.Context, rawIDs []string) (int64, error) {
	validIDs := []uuid.UUID{}
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		validIDs = append(validIDs, id)
	}

	if len(validIDs) == 0 {
		return 0, NewValidationError("ids", "нет допустимых идентификаторов")
	}

	deleted, err := s.repo.DeleteMany(ctx, validIDs)
	if err != nil {
		return 0, fmt.Errorf("групповое удаление: %w", err)
	}

	logger.Info("Service: Групповое удаление задач", zap.Int64("deleted", deleted))
	return deleted, nil
}

type Stats struct {
	Total       int64 `json:"total"`
	Completed   int64 `json:"completed"`
	Pending     int64 `json:"pending"`
	WithDueDate int64 `json:"with_due_date"`
}

func (s *TaskService) Stats(ctx context.Context) (Stats, error) {
	total, err := s.repo.Count(ctx, task.Filter{})
	if err != nil {
		return Stats{}, fmt.Errorf("подсчёт задач: %w", err)
	}

	completedFlag := true
	completed, err := s.repo.Count(ctx, task.Filter{Completed: &completedFlag})
	if err != nil {
		return Stats{}, fmt.Errorf("подсчёт завершённых: %w", err)
	}

	hasDueDate := true
	withDueDate, err := s.repo.Count(ctx, task.Filter{HasDueDate: &hasDueDate})
	if err != nil {
		return Stats{}, fmt.Errorf("подсчёт задач с дедлайном: %w", err)
	}

	return Stats{
		Total:       total,
		Completed:   completed,
		Pending:     total - completed,
		WithDueDate: withDueDate,
	}, nil
}

// Reset полностью очищает коллекцию (только для окружения разработки)
func (s *TaskService) Reset(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("очистка коллекции: %w", err)
	}

	logger.Warn("Service: Коллекция задач очищена", zap.Int64("deleted", deleted))
	return deleted, nil
}
