package handler

import (
	"encoding/json"
	"net/http"

	"taskini/internal/api/middleware"
	"taskini/internal/app/service"
	"taskini/internal/common"

	"github.com/go-chi/chi/v5"
)

type TaskHandler struct {
	taskService *service.TaskService
}

func NewTaskHandler(ts *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: ts}
}

func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listTasks)
	r.Post("/", h.createTask)
	r.Get("/{id}", h.getTask)
	r.Put("/{id}", h.updateTask)
	r.Delete("/{id}", h.deleteTask)
}

func (h *TaskHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	tasks, err := h.taskService.List(r.Context(), caller)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithList(w, http.StatusOK, tasks)
}

func (h *TaskHandler) getTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	task, err := h.taskService.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, task)
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	var req service.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	task, err := h.taskService.Create(r.Context(), caller, req)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, task)
}

func (h *TaskHandler) updateTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	var req service.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	task, err := h.taskService.Update(r.Context(), caller, chi.URLParam(r, "id"), req)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, task)
}

func (h *TaskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	if err := h.taskService.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Task deleted successfully", struct{}{})
}
