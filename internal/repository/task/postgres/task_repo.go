package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"
	"todoKeeper/internal/logger"
	"todoKeeper/internal/models/task"
	repo "todoKeeper/internal/repository"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const taskColumns = `uuid,
				title,
				description,
				completed,
				created_at,
				due_date,
				reminder_time`

type Storage struct {
	pool *pgxpool.Pool
}

type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

func New(ctx context.Context, connString string, poolCfg PoolConfig) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка разбора строки подключения", err)
		return nil, fmt.Errorf("разбор строки подключения: %w", err)
	}

	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns > 0 {
		config.MinConns = poolCfg.MinConns
	}
	if poolCfg.IdleTimeout > 0 {
		config.MaxConnIdleTime = poolCfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	if err := runMigrations(connString); err != nil {
		logger.Error("Repository: Ошибка применения миграций", err)
		return nil, fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func runMigrations(connString string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("чтение встроенных миграций: %w", err)
	}

	// драйвер migrate для pgx/v5 регистрируется под схемой pgx5
	url := strings.Replace(connString, "postgres://", "pgx5://", 1)
	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("инициализация мигратора: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}

	query := `INSERT INTO tasks
				(uuid, title, description, completed, due_date, reminder_time)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Completed,
		taskToCreate.DueDate,
		taskToCreate.ReminderTime,
	).Scan(&taskToCreate.CreatedAt)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) CreateMany(ctx context.Context, tasks []*task.Task) ([]uuid.UUID, error) {
	start := time.Now()

	query := `INSERT INTO tasks
				(uuid, title, description, completed, due_date, reminder_time)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING created_at`

	batch := &pgx.Batch{}
	insertedIDs := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		insertedIDs = append(insertedIDs, t.ID)
		batch.Queue(query, t.ID, t.Title, t.Description, t.Completed, t.DueDate, t.ReminderTime)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for _, t := range tasks {
		if err := results.QueryRow().Scan(&t.CreatedAt); err != nil {
			logger.Error("Repository: Ошибка группового добавления", err, zap.Duration("ms", time.Since(start)))
			return nil, fmt.Errorf("групповое добавление: %w", err)
		}
	}

	logger.Info("Repository: Групповое добавление задач",
		zap.Int("inserted", len(insertedIDs)),
		zap.Duration("ms", time.Since(start)))
	return insertedIDs, nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE uuid = $1`

	t := &task.Task{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&t.CreatedAt,
		&t.DueDate,
		&t.ReminderTime,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return t, nil
}

// buildWhere переводит фильтр в условия WHERE с нумерованными аргументами
func buildWhere(filter task.Filter) (string, []any) {
	conds := []string{}
	args := []any{}

	add := func(format string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if filter.Completed != nil {
		add("completed = $%d", *filter.Completed)
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}
	if len(filter.IDs) > 0 {
		add("uuid = ANY($%d)", filter.IDs)
	}
	if filter.Title != "" {
		add("title ILIKE '%%' || $%d || '%%'", filter.Title)
	}
	if filter.Description != "" {
		add("description ILIKE '%%' || $%d || '%%'", filter.Description)
	}
	if filter.Query != "" {
		args = append(args, filter.Query)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')", n, n))
	}
	if filter.HasDueDate != nil {
		if *filter.HasDueDate {
			conds = append(conds, "due_date IS NOT NULL")
		} else {
			conds = append(conds, "due_date IS NULL")
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildOrderBy(sortBy task.Sort) string {
	column := "created_at"
	switch sortBy.Field {
	case task.SortByTitle, task.SortByCompleted, task.SortByDueDate, task.SortByReminderTime, task.SortByCreatedAt:
		column = sortBy.Field
	}

	direction := "ASC"
	if sortBy.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func (s *Storage) List(ctx context.Context, filter task.Filter, sortBy task.Sort, window task.Window) ([]*task.Task, error) {
	window = window.Normalize()

	where, args := buildWhere(filter)
	args = append(args, window.PerPage, window.Skip())
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + buildOrderBy(sortBy) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return s.queryTasks(ctx, query, args)
}

func (s *Storage) ListAll(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where

	return s.queryTasks(ctx, query, args)
}

func (s *Storage) queryTasks(ctx context.Context, query string, args []any) ([]*task.Task, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t := &task.Task{}
		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.Completed,
			&t.CreatedAt,
			&t.DueDate,
			&t.ReminderTime,
		)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return tasks, nil
}

func (s *Storage) Count(ctx context.Context, filter task.Filter) (int64, error) {
	start := time.Now()

	where, args := buildWhere(filter)
	query := `SELECT COUNT(*) FROM tasks` + where

	var total int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return total, nil
}

// UpdateFields - атомарное частичное обновление по id.
// modified считается как в документных хранилищах: строка с теми же
// значениями matched, но не modified.
func (s *Storage) UpdateFields(ctx context.Context, id uuid.UUID, patch task.Patch) (bool, bool, error) {
	start := time.Now()

	setClauses := []string{}
	distinctClauses := []string{}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
		distinctClauses = append(distinctClauses, fmt.Sprintf("%s IS DISTINCT FROM $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	if patch.DueDate != nil {
		add("due_date", *patch.DueDate)
	}
	if patch.ReminderTime != nil {
		add("reminder_time", *patch.ReminderTime)
	}

	if len(setClauses) == 0 {
		return false, false, nil
	}

	var matched bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE uuid = $1)`, id).Scan(&matched)
	if err != nil {
		logger.Error("Repository: Проверка существования задачи", err)
		return false, false, fmt.Errorf("проверка существования: %w", err)
	}
	if !matched {
		return false, false, nil
	}

	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE uuid = $1 AND (%s)`,
		strings.Join(setClauses, ", "),
		strings.Join(distinctClauses, " OR "))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err, zap.Duration("ms", time.Since(start)))
		return false, false, fmt.Errorf("обновление задачи: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return true, tag.RowsAffected() > 0, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE uuid = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE uuid = ANY($1)`, ids)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачи", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("групповое удаление: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks`)
	if err != nil {
		logger.Error("Repository: Не удалось очистить коллекцию", err)
		return 0, fmt.Errorf("очистка коллекции: %w", err)
	}
	logger.Info("Repository: Коллекция задач очищена", zap.Int64("deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (s *Storage) DueReminders(ctx context.Context, now time.Time, limit int) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE reminder_time IS NOT NULL AND reminder_time <= $1
				ORDER BY reminder_time
				LIMIT $2`

	return s.queryTasks(ctx, query, []any{now, limit})
}

// ClearReminder снимает напоминание условно: только если поле всё ещё
// равно значению, которое видел планировщик. Пересекающиеся циклы и
// конкурирующее перевзведение клиентом не дают двойного срабатывания.
func (s *Storage) ClearReminder(ctx context.Context, id uuid.UUID, observed time.Time) (bool, error) {
	query := `UPDATE tasks
				SET reminder_time = NULL
				WHERE uuid = $1 AND reminder_time = $2`

	tag, err := s.pool.Exec(ctx, query, id, observed)
	if err != nil {
		logger.Error("Repository: Не удалось снять напоминание", err)
		return false, fmt.Errorf("снятие напоминания: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
