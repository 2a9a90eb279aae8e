package service

import (
	"strconv"
	"strings"
	"time"
	"todoKeeper/internal/models/task"

	"github.com/google/uuid"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
)

// ListOptions - сырые параметры списка/подсчёта, как пришли из запроса
type ListOptions struct {
	Completed string
	FromDate  string
	ToDate    string
	SortBy    string
	Order     string
	Page      string
	PerPage   string
}

// SearchOptions - сырые параметры поиска
type SearchOptions struct {
	IDs         []string
	Title       string
	Description string
	Query       string
	Completed   string
}

// поддерживаемые форматы меток времени в параметрах фильтра
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// compileListFilter - компилятор предиката списка. Чистая функция:
// никаких обращений к хранилищу, при неразборчивой дате возвращает
// VALIDATION_ERROR с именем поля.
func compileListFilter(opts ListOptions) (task.Filter, error) {
	filter := task.Filter{}

	if opts.Completed != "" {
		completed := strings.EqualFold(opts.Completed, "true")
		filter.Completed = &completed
	}

	if opts.FromDate != "" {
		from, err := parseTimestamp(opts.FromDate)
		if err != nil {
			return task.Filter{}, NewValidationError("from_date", "неверный формат даты")
		}
		filter.CreatedFrom = &from
	}

	if opts.ToDate != "" {
		to, err := parseTimestamp(opts.ToDate)
		if err != nil {
			return task.Filter{}, NewValidationError("to_date", "неверный формат даты")
		}
		// верхняя граница расширяется до конца календарного дня
		to = to.Add(24 * time.Hour)
		filter.CreatedTo = &to
	}

	return filter, nil
}

// compileSearchFilter - предикат поиска. Нечитаемые id отбрасываются
// молча (поведение поискового эндпоинта), текстовые поля - подстроки
// без учёта регистра.
func compileSearchFilter(opts SearchOptions) task.Filter {
	filter := task.Filter{
		Title:       opts.Title,
		Description: opts.Description,
		Query:       opts.Query,
	}

	for _, raw := range opts.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		filter.IDs = append(filter.IDs, id)
	}

	if opts.Completed != "" {
		completed := strings.EqualFold(opts.Completed, "true")
		filter.Completed = &completed
	}

	return filter
}

func compileSort(sortBy, order string) task.Sort {
	field := task.SortByCreatedAt
	switch sortBy {
	case task.SortByTitle, task.SortByCompleted, task.SortByDueDate, task.SortByReminderTime:
		field = sortBy
	}

	// по умолчанию desc, явный asc переключает направление
	return task.Sort{
		Field: field,
		Desc:  !strings.EqualFold(order, "asc"),
	}
}

// compileWindow: значения меньше 1 и мусор прижимаются к умолчаниям,
// запрос никогда не отклоняется
func compileWindow(page, perPage string) task.Window {
	window := task.Window{Page: DefaultPage, PerPage: DefaultPerPage}

	if page != "" {
		if parsed, err := strconv.Atoi(page); err == nil {
			window.Page = parsed
		}
	}
	if perPage != "" {
		if parsed, err := strconv.Atoi(perPage); err == nil {
			window.PerPage = parsed
		}
	}

	return window.Normalize()
}
