package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"taskini/internal/api/middleware"
	"taskini/internal/app/service"
	"taskini/internal/common"
	"taskini/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// multipartOverhead leaves room for boundaries and headers around the photo part.
const multipartOverhead = 1 << 20

type ProfileHandler struct {
	profileService *service.ProfileService
	taskService    *service.TaskService
}

func NewProfileHandler(ps *service.ProfileService, ts *service.TaskService) *ProfileHandler {
	return &ProfileHandler{profileService: ps, taskService: ts}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getProfile)
	r.Put("/", h.updateProfile)
	r.Put("/password", h.changePassword)
	r.Post("/photo", h.uploadPhoto)
	r.Get("/tasks", h.listCompletedTasks)
}

func (h *ProfileHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	user, err := h.profileService.GetProfile(r.Context(), caller)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, user)
}

func (h *ProfileHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	var update model.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := h.profileService.UpdateProfile(r.Context(), caller, update)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, user)
}

func (h *ProfileHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	var req service.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.profileService.ChangePassword(r.Context(), caller, req); err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithMessage(w, http.StatusOK, "Password updated successfully", struct{}{})
}

func (h *ProfileHandler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxPhotoBytes+multipartOverhead)
	if err := r.ParseMultipartForm(service.MaxPhotoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.RespondWithError(w, http.StatusBadRequest, "Image must be 5MB or smaller")
			return
		}
		common.RespondWithError(w, http.StatusBadRequest, "Please upload an image file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Please upload an image file")
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversize parts are detected.
	data, err := io.ReadAll(io.LimitReader(file, service.MaxPhotoBytes+1))
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	photo, err := h.profileService.UploadPhoto(r.Context(), caller, header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, map[string]string{"profilePhoto": photo})
}

func (h *ProfileHandler) listCompletedTasks(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	tasks, err := h.taskService.ListCompleted(r.Context(), caller)
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithList(w, http.StatusOK, tasks)
}
