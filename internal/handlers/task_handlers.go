package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

// GetTasks — единственный вызов, который ждёт удалённую сторону:
// список освежается слиянием, сбой сети отдаёт локальный список
func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := s.TaskService.GetTasks(r.Context())
	if err != nil {
		logger.Error("HTTP: Ошибка Service", err)
		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Duration("ms", time.Since(start)),
		zap.Int("count", len(tasks)))

	responseWithBody(w, http.StatusOK, tasks)
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	t, ok := s.TaskService.GetTask(id)
	if !ok {
		responseWithError(w, http.StatusNotFound, "задача "+id+" не найдена")
		return
	}

	responseWithBody(w, http.StatusOK, t)
}

func (s *TaskHandler) GetPendingTasks(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")
	responseWithBody(w, http.StatusOK, s.TaskService.Pending())
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {

		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var payload task.NewTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	if payload.Title == "" {

		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "title"),
			zap.String("error", "empty_field"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "название не может быть пустым")
		return
	}

	// локальная запись мгновенна, подтверждение удалённой стороной — фоном
	created, err := s.TaskService.AddTask(r.Context(), payload)
	if err != nil {
		logger.Error("HTTP: Ошибка Service", err)
		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithBody(w, http.StatusCreated, created)
}

func (s *TaskHandler) PatchTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {

		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	id := chi.URLParam(r, "id")

	var patch task.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), id, patch)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}
		logger.Error("HTTP: Ошибка Service", err)
		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithBody(w, http.StatusOK, updated)
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id := chi.URLParam(r, "id")
	existed, err := s.TaskService.DeleteTask(r.Context(), id)
	if err != nil {
		logger.Error("HTTP: Ошибка Service", err)
		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !existed {
		responseWithError(w, http.StatusNotFound, "задача "+id+" не найдена")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *TaskHandler) PostResync(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn("HTTP: Ошибка получения параметра",
				zap.Error(err),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, http.StatusBadRequest, "не удалось получить значение limit: "+err.Error())
			return
		}
		limit = parsed
	}

	offered := s.TaskService.Resync(r.Context(), limit)
	responseWithJSON(w, http.StatusAccepted, toPayload("offered", offered))
}

func (s *TaskHandler) GetStatusOptions(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	options, err := s.TaskService.GetStatusOptions(r.Context())
	if err != nil {
		logger.Error("HTTP: Ошибка Service", err)
		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	responseWithBody(w, http.StatusOK, options)
}

// Events — SSE-лента изменений: каждое событие — свежая версия задачи,
// история одной задачи приходит по порядку
func (s *TaskHandler) Events(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	flusher, ok := w.(http.Flusher)
	if !ok {
		responseWithError(w, http.StatusInternalServerError, "потоковая передача не поддерживается")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	subID, events := s.TaskService.Subscribe()
	defer s.TaskService.Unsubscribe(subID)

	logger.Info("HTTP: Подписчик подключён", zap.Int("subscriber", subID))

	for {
		select {
		case <-r.Context().Done():
			logger.Info("HTTP: Подписчик отключён", zap.Int("subscriber", subID))
			return
		case t, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(t)
			if err != nil {
				logger.Error("HTTP: Сериализация события", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}
