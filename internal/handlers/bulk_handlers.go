package handlers

import (
	"fmt"
	"net/http"
	"time"
	"todoKeeper/internal/handlers/dto"
	"todoKeeper/internal/logger"
	"todoKeeper/internal/models/task"
	"todoKeeper/internal/service"

	"go.uber.org/zap"
)

func (h *TaskHandler) BulkCreateTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var requests []dto.CreateTaskRequest
	if err := decodeStrict(r, &requests); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "ожидается массив задач: "+err.Error())
		return
	}

	tasks := make([]*task.Task, len(requests))
	for i, request := range requests {
		tasks[i] = request.ToTask()
	}

	insertedIDs, err := h.TaskService.BulkCreate(r.Context(), tasks)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	ids := make([]string, len(insertedIDs))
	for i, id := range insertedIDs {
		ids[i] = id.String()
	}

	logger.Info("HTTP_OUT: Групповое создание выполнено",
		zap.Int("created", len(ids)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated,
		toPayload("inserted_ids", ids),
		toPayload("message", fmt.Sprintf("создано задач: %d", len(ids))),
	)
}

func (h *TaskHandler) BulkUpdateTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var requests []dto.BulkUpdateItemRequest
	if err := decodeStrict(r, &requests); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "ожидается массив обновлений: "+err.Error())
		return
	}

	items := make([]service.BulkUpdateItem, len(requests))
	for i, request := range requests {
		items[i] = service.BulkUpdateItem{
			ID:    request.ID,
			Patch: request.ToPatch(),
		}
	}

	result, err := h.TaskService.BulkUpdate(r.Context(), items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Групповое обновление выполнено",
		zap.Int64("matched", result.Matched),
		zap.Int64("modified", result.Modified),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("matched_count", result.Matched),
		toPayload("modified_count", result.Modified),
	)
}

func (h *TaskHandler) BulkDeleteTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.BulkDeleteRequest
	if err := decodeStrict(r, &request); err != nil {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "ожидается поле ids: "+err.Error())
		return
	}

	if len(request.IDs) == 0 {
		responseWithError(w, http.StatusBadRequest, "поле ids обязательно")
		return
	}

	deleted, err := h.TaskService.BulkDelete(r.Context(), request.IDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	logger.Info("HTTP_OUT: Групповое удаление выполнено",
		zap.Int64("deleted", deleted),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("deleted_count", deleted),
		toPayload("message", fmt.Sprintf("удалено задач: %d", deleted)),
	)
}
