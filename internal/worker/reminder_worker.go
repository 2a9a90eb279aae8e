package worker

import (
	"context"
	"time"
	"todoKeeper/internal/logger"
	"todoKeeper/internal/models/task"
	"todoKeeper/internal/service"

	"go.uber.org/zap"
)

// Notifier - побочный эффект срабатывания напоминания, виден снаружи ядра
type Notifier func(t *task.Task, now time.Time)

type ReminderWorker struct {
	repo      service.TaskRepository
	interval  time.Duration
	batchSize int
	notify    Notifier
}

func NewReminderWorker(repo service.TaskRepository, interval *time.Duration, batchSize *int) *ReminderWorker {
	var intervalToSet time.Duration
	if interval == nil {
		intervalToSet = 60 * time.Second
	} else {
		intervalToSet = *interval
	}

	var batchToSet int
	if batchSize == nil {
		batchToSet = 100
	} else {
		batchToSet = *batchSize
	}

	return &ReminderWorker{
		repo:      repo,
		interval:  intervalToSet,
		batchSize: batchToSet,
		notify:    logNotification,
	}
}

// SetNotifier подменяет побочный эффект (в тестах - счётчик)
func (w *ReminderWorker) SetNotifier(n Notifier) {
	if n != nil {
		w.notify = n
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: Фоновая проверка напоминаний", zap.Time("started_at", time.Now()))
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Фоновая проверка останавливается")
			return
		}
	}
}

// Check - один цикл сканирования. Для каждой задачи с наступившим
// reminder_time поле снимается условно: уведомление уходит только если
// именно этот цикл выиграл снятие. Ошибка по одной задаче не
// останавливает обход остальных.
func (w *ReminderWorker) Check(ctx context.Context) {
	start := time.Now()
	now := time.Now()

	tasks, err := w.repo.DueReminders(ctx, now, w.batchSize)
	if err != nil {
		logger.Warn("Worker: ошибка получения задач", zap.Error(err))
		return
	}

	firedCount := 0
	for _, t := range tasks {
		if t.ReminderTime == nil {
			continue
		}

		cleared, err := w.repo.ClearReminder(ctx, t.ID, *t.ReminderTime)
		if err != nil {
			logger.Warn("Worker: Ошибка снятия напоминания",
				zap.String("task_id", t.ID.String()),
				zap.Error(err))
			continue
		}
		if !cleared {
			// напоминание уже снято другим циклом либо перевзведено клиентом
			continue
		}

		w.notify(t, now)
		firedCount++
	}

	logger.Info("Worker: Завершение проверки напоминаний",
		zap.Duration("ms", time.Since(start)),
		zap.Int("checked", len(tasks)),
		zap.Int("fired", firedCount),
	)
}

func logNotification(t *task.Task, now time.Time) {
	fields := []zap.Field{
		zap.String("task_id", t.ID.String()),
		zap.String("title", t.Title),
	}
	if t.DueDate != nil {
		fields = append(fields, zap.Float64("seconds_to_due", t.DueDate.Sub(now).Seconds()))
	}
	logger.Info("Worker: Напоминание", fields...)
}
