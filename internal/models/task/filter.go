package task

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Поля, по которым разрешена сортировка
const (
	SortByCreatedAt    = "created_at"
	SortByDueDate      = "due_date"
	SortByReminderTime = "reminder_time"
	SortByTitle        = "title"
	SortByCompleted    = "completed"
)

// Filter - декларативный предикат по коллекции задач.
// Пустой фильтр пропускает все задачи.
type Filter struct {
	Completed   *bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	IDs         []uuid.UUID
	Title       string
	Description string
	Query       string
	HasDueDate  *bool
}

// Matcher компилирует фильтр в чистую функцию-предикат.
// Подстроки сравниваются без учёта регистра, условия соединяются через AND,
// Query - дизъюнкция по title и description.
func (f Filter) Matcher() func(*Task) bool {
	title := strings.ToLower(f.Title)
	description := strings.ToLower(f.Description)
	query := strings.ToLower(f.Query)

	var idSet map[uuid.UUID]struct{}
	if len(f.IDs) > 0 {
		idSet = make(map[uuid.UUID]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			idSet[id] = struct{}{}
		}
	}

	return func(t *Task) bool {
		if f.Completed != nil && t.Completed != *f.Completed {
			return false
		}
		if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
			return false
		}
		if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
			return false
		}
		if idSet != nil {
			if _, ok := idSet[t.ID]; !ok {
				return false
			}
		}
		if title != "" && !strings.Contains(strings.ToLower(t.Title), title) {
			return false
		}
		if description != "" && !strings.Contains(strings.ToLower(t.Description), description) {
			return false
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Title), query) &&
			!strings.Contains(strings.ToLower(t.Description), query) {
			return false
		}
		if f.HasDueDate != nil && (t.DueDate != nil) != *f.HasDueDate {
			return false
		}
		return true
	}
}

type Sort struct {
	Field string
	Desc  bool
}

// Apply сортирует срез на месте. Сортировка стабильная, поэтому задачи
// с одинаковым ключом сохраняют порядок вставки. Отсутствующие
// опциональные поля сортируются как нулевое время.
func (s Sort) Apply(tasks []*Task) {
	field := s.Field
	if field == "" {
		field = SortByCreatedAt
	}

	less := func(a, b *Task) bool {
		switch field {
		case SortByTitle:
			return a.Title < b.Title
		case SortByCompleted:
			return !a.Completed && b.Completed
		case SortByDueDate:
			return timeOrZero(a.DueDate).Before(timeOrZero(b.DueDate))
		case SortByReminderTime:
			return timeOrZero(a.ReminderTime).Before(timeOrZero(b.ReminderTime))
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if s.Desc {
			return less(tasks[j], tasks[i])
		}
		return less(tasks[i], tasks[j])
	})
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// Window - окно пагинации: skip = (page-1)*per_page, limit = per_page
type Window struct {
	Page    int
	PerPage int
}

// Normalize прижимает значения меньше 1 к 1, запрос не отклоняется
func (w Window) Normalize() Window {
	if w.Page < 1 {
		w.Page = 1
	}
	if w.PerPage < 1 {
		w.PerPage = 1
	}
	return w
}

func (w Window) Skip() int {
	return (w.Page - 1) * w.PerPage
}
