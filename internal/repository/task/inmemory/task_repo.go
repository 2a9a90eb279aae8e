package inmemory

import (
	"context"
	"sync"
	"time"
	"todoKeeper/internal/logger"
	"todoKeeper/internal/models/task"
	repo "todoKeeper/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage хранит копии задач, наружу тоже отдаются копии,
// поэтому читатели не видят чужих незафиксированных изменений
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.insertLocked(taskToCreate)
	return nil
}

func (s *TaskStorage) CreateMany(ctx context.Context, tasks []*task.Task) ([]uuid.UUID, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	insertedIDs := make([]uuid.UUID, 0, len(tasks))
	for _, taskToCreate := range tasks {
		s.insertLocked(taskToCreate)
		insertedIDs = append(insertedIDs, taskToCreate.ID)
	}
	return insertedIDs, nil
}

// insertLocked назначает id и created_at, вызывается только под mtx.Lock
func (s *TaskStorage) insertLocked(taskToCreate *task.Task) {
	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	taskToCreate.CreatedAt = time.Now()

	s.storage[taskToCreate.ID] = clone(taskToCreate)
	s.ids = append(s.ids, taskToCreate.ID)
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return clone(taskToGet), nil
}

func (s *TaskStorage) List(ctx context.Context, filter task.Filter, sortBy task.Sort, window task.Window) ([]*task.Task, error) {
	s.mtx.RLock()
	matched := s.matchedLocked(filter)
	s.mtx.RUnlock()

	sortBy.Apply(matched)

	window = window.Normalize()
	skip := window.Skip()
	if skip >= len(matched) {
		return []*task.Task{}, nil
	}

	end := skip + window.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[skip:end], nil
}

func (s *TaskStorage) ListAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return s.matchedLocked(filter), nil
}

func (s *TaskStorage) Count(ctx context.Context, filter task.Filter) (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matches := filter.Matcher()
	var total int64
	for _, id := range s.ids {
		if matches(s.storage[id]) {
			total++
		}
	}
	return total, nil
}

// matchedLocked отдаёт копии подходящих задач в порядке вставки
func (s *TaskStorage) matchedLocked(filter task.Filter) []*task.Task {
	matches := filter.Matcher()
	res := []*task.Task{}
	for _, id := range s.ids {
		if taskToGet := s.storage[id]; matches(taskToGet) {
			res = append(res, clone(taskToGet))
		}
	}
	return res
}

// UpdateFields - одно атомарное частичное обновление по id.
// matched=false без ошибки, если задачи нет (поведение bulk-обновления)
func (s *TaskStorage) UpdateFields(ctx context.Context, id uuid.UUID, patch task.Patch) (bool, bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	taskToUpdate, ok := s.storage[id]
	if !ok {
		return false, false, nil
	}

	modified := patch.Apply(taskToUpdate)
	return true, modified, nil
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	s.removeLocked(id)
	return nil
}

func (s *TaskStorage) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := s.storage[id]; ok {
			s.removeLocked(id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *TaskStorage) DeleteAll(ctx context.Context) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	deleted := int64(len(s.storage))
	s.storage = make(map[uuid.UUID]*task.Task)
	s.ids = []uuid.UUID{}
	return deleted, nil
}

func (s *TaskStorage) removeLocked(id uuid.UUID) {
	delete(s.storage, id)
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
}

// DueReminders отдаёт взведённые задачи, у которых reminder_time уже наступил
func (s *TaskStorage) DueReminders(ctx context.Context, now time.Time, limit int) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var due []*task.Task
	for _, id := range s.ids {
		if len(due) >= limit {
			break
		}
		t := s.storage[id]
		if t.ReminderTime != nil && !t.ReminderTime.After(now) {
			due = append(due, clone(t))
		}
	}
	return due, nil
}

// ClearReminder снимает напоминание, только если оно всё ещё равно
// наблюдавшемуся значению. Гонка двух циклов или цикла с клиентским
// обновлением даёт ровно одно успешное снятие.
func (s *TaskStorage) ClearReminder(ctx context.Context, id uuid.UUID, observed time.Time) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, ok := s.storage[id]
	if !ok || t.ReminderTime == nil || !t.ReminderTime.Equal(observed) {
		return false, nil
	}
	t.ReminderTime = nil
	return true, nil
}

func clone(t *task.Task) *task.Task {
	copied := *t
	if t.DueDate != nil {
		due := *t.DueDate
		copied.DueDate = &due
	}
	if t.ReminderTime != nil {
		reminder := *t.ReminderTime
		copied.ReminderTime = &reminder
	}
	return &copied
}
