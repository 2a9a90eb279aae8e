package service_test

import (
	"context"
	"errors"
	"testing"
	"time"
	"todoKeeper/internal/models/task"
	"todoKeeper/internal/repository"
	"todoKeeper/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) CreateMany(ctx context.Context, tasks []*task.Task) ([]uuid.UUID, error) {
	args := m.Called(ctx, tasks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter task.Filter, sortBy task.Sort, window task.Window) ([]*task.Task, error) {
	args := m.Called(ctx, filter, sortBy, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ListAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Count(ctx context.Context, filter task.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) UpdateFields(ctx context.Context, id uuid.UUID, patch task.Patch) (bool, bool, error) {
	args := m.Called(ctx, id, patch)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) DueReminders(ctx context.Context, now time.Time, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) ClearReminder(ctx context.Context, id uuid.UUID, observed time.Time) (bool, error) {
	args := m.Called(ctx, id, observed)
	return args.Bool(0), args.Error(1)
}

func assertBusinessError(t *testing.T, err error, code string) {
	t.Helper()
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, code, businessErr.Code)
}

// TestCreateTask_EmptyTitle - задача без названия отклоняется до хранилища
func TestCreateTask_EmptyTitle(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	_, err := taskService.CreateTask(ctx, &task.Task{Description: "без названия"})

	assertBusinessError(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "Create")
}

// TestCreateTask_Success тестирует успешное создание
func TestCreateTask_Success(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	mockRepo.On("Create", ctx, mock.AnythingOfType("*task.Task")).Return(nil)

	created, err := taskService.CreateTask(ctx, &task.Task{Title: "Buy milk"})
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", created.Title)
	mockRepo.AssertExpectations(t)
}

// TestListTasks_Defaults - умолчания: created_at desc, page=1, per_page=10
func TestListTasks_Defaults(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	expectedSort := task.Sort{Field: task.SortByCreatedAt, Desc: true}
	expectedWindow := task.Window{Page: 1, PerPage: 10}

	mockRepo.On("Count", ctx, task.Filter{}).Return(int64(0), nil)
	mockRepo.On("List", ctx, task.Filter{}, expectedSort, expectedWindow).Return([]*task.Task{}, nil)

	page, err := taskService.ListTasks(ctx, service.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 0, page.Skip)
	mockRepo.AssertExpectations(t)
}

// TestListTasks_ClampsWindow - page/per_page меньше 1 прижимаются к 1
func TestListTasks_ClampsWindow(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	expectedSort := task.Sort{Field: task.SortByCreatedAt, Desc: true}
	expectedWindow := task.Window{Page: 1, PerPage: 1}

	mockRepo.On("Count", ctx, task.Filter{}).Return(int64(3), nil)
	mockRepo.On("List", ctx, task.Filter{}, expectedSort, expectedWindow).Return([]*task.Task{}, nil)

	page, err := taskService.ListTasks(ctx, service.ListOptions{Page: "-2", PerPage: "0"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.PerPage)
	mockRepo.AssertExpectations(t)
}

// TestListTasks_BadFromDate - неразборчивая дата отклоняет запрос
func TestListTasks_BadFromDate(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	_, err := taskService.ListTasks(ctx, service.ListOptions{FromDate: "не дата"})

	assertBusinessError(t, err, service.CodeValidation)
	var businessErr *service.BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, "from_date", businessErr.Details["field"])
	mockRepo.AssertNotCalled(t, "Count")
	mockRepo.AssertNotCalled(t, "List")
}

// TestListTasks_ToDateCoversWholeDay - to_date расширяется до конца дня
func TestListTasks_ToDateCoversWholeDay(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	expectedTo := time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC)

	mockRepo.On("Count", ctx, mock.MatchedBy(func(f task.Filter) bool {
		return f.CreatedTo != nil && f.CreatedTo.Equal(expectedTo)
	})).Return(int64(0), nil)
	mockRepo.On("List", ctx, mock.Anything, mock.Anything, mock.Anything).Return([]*task.Task{}, nil)

	_, err := taskService.ListTasks(ctx, service.ListOptions{ToDate: "2025-05-10"})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestGetTaskByID_NotFound - отсутствие задачи отличимо от прочих ошибок
func TestGetTaskByID_NotFound(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	id := uuid.New()
	mockRepo.On("GetByID", ctx, id).Return(nil, repository.ErrNotFound)

	_, err := taskService.GetTaskByID(ctx, id)
	assertBusinessError(t, err, service.CodeNotFound)
}

// TestUpdateTask_EmptyPatch - обновление без полей отклоняется
func TestUpdateTask_EmptyPatch(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	_, err := taskService.UpdateTask(ctx, uuid.New(), task.Patch{})

	assertBusinessError(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "UpdateFields")
}

// TestBulkCreate_FailFast - первый элемент без title отклоняет всю пачку,
// вставка не начинается
func TestBulkCreate_FailFast(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	tasks := []*task.Task{
		{Title: "A"},
		{Description: "no title"},
	}

	_, err := taskService.BulkCreate(ctx, tasks)

	assertBusinessError(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "CreateMany")
}

// TestBulkCreate_Success - id в порядке входного списка
func TestBulkCreate_Success(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	tasks := []*task.Task{{Title: "A"}, {Title: "B"}}
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	mockRepo.On("CreateMany", ctx, tasks).Return(ids, nil)

	insertedIDs, err := taskService.BulkCreate(ctx, tasks)
	require.NoError(t, err)
	assert.Equal(t, ids, insertedIDs)
	mockRepo.AssertExpectations(t)
}

// TestBulkUpdate_SkipsInvalid - элемент с нечитаемым id пропускается,
// остальные применяются
func TestBulkUpdate_SkipsInvalid(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	validID := uuid.New()
	completed := true
	title := "x"

	mockRepo.On("UpdateFields", ctx, validID, task.Patch{Completed: &completed}).Return(true, true, nil)

	result, err := taskService.BulkUpdate(ctx, []service.BulkUpdateItem{
		{ID: validID.String(), Patch: task.Patch{Completed: &completed}},
		{ID: "not-an-id", Patch: task.Patch{Title: &title}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Matched)
	assert.Equal(t, int64(1), result.Modified)
	mockRepo.AssertNumberOfCalls(t, "UpdateFields", 1)
}

// TestBulkUpdate_NoValidOperations - все элементы невалидны
func TestBulkUpdate_NoValidOperations(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	title := "x"
	_, err := taskService.BulkUpdate(ctx, []service.BulkUpdateItem{
		{ID: "мусор", Patch: task.Patch{Title: &title}},
		{ID: uuid.New().String(), Patch: task.Patch{}}, // пустой патч
	})

	assertBusinessError(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "UpdateFields")
}

// TestBulkDelete_DropsInvalidIDs - нечитаемые id отбрасываются молча
func TestBulkDelete_DropsInvalidIDs(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	validID := uuid.New()
	mockRepo.On("DeleteMany", ctx, []uuid.UUID{validID}).Return(int64(1), nil)

	deleted, err := taskService.BulkDelete(ctx, []string{validID.String(), "not-an-id"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	mockRepo.AssertExpectations(t)
}

// TestBulkDelete_NoValidIDs тестирует отказ при пустом наборе валидных id
func TestBulkDelete_NoValidIDs(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	_, err := taskService.BulkDelete(ctx, []string{"a", "b"})

	assertBusinessError(t, err, service.CodeValidation)
	mockRepo.AssertNotCalled(t, "DeleteMany")
}

// TestSearchTasks_DropsBadIDs - поиск отбрасывает нечитаемые id
func TestSearchTasks_DropsBadIDs(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	validID := uuid.New()
	mockRepo.On("ListAll", ctx, mock.MatchedBy(func(f task.Filter) bool {
		return len(f.IDs) == 1 && f.IDs[0] == validID
	})).Return([]*task.Task{}, nil)

	_, err := taskService.SearchTasks(ctx, service.SearchOptions{
		IDs: []string{validID.String(), "мусор"},
	})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestStats тестирует агрегацию счётчиков
func TestStats(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	mockRepo.On("Count", ctx, task.Filter{}).Return(int64(25), nil)
	mockRepo.On("Count", ctx, mock.MatchedBy(func(f task.Filter) bool {
		return f.Completed != nil && *f.Completed
	})).Return(int64(10), nil)
	mockRepo.On("Count", ctx, mock.MatchedBy(func(f task.Filter) bool {
		return f.HasDueDate != nil && *f.HasDueDate
	})).Return(int64(20), nil)

	stats, err := taskService.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), stats.Total)
	assert.Equal(t, int64(10), stats.Completed)
	assert.Equal(t, int64(15), stats.Pending)
	assert.Equal(t, int64(20), stats.WithDueDate)
}

// TestStats_StorageError - ошибка хранилища не маскируется под бизнес-ошибку
func TestStats_StorageError(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockTaskRepository)
	taskService := service.NewTaskService(mockRepo)

	storageErr := errors.New("соединение потеряно")
	mockRepo.On("Count", ctx, task.Filter{}).Return(int64(0), storageErr)

	_, err := taskService.Stats(ctx)
	require.Error(t, err)
	var businessErr *service.BusinessError
	assert.False(t, errors.As(err, &businessErr))
	assert.ErrorIs(t, err, storageErr)
}
