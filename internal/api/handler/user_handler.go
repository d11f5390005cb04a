package handler

import (
	"net/http"

	"taskini/internal/app/service"
	"taskini/internal/common"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService  *service.UserService
	statsService *service.StatsService
}

func NewUserHandler(us *service.UserService, ss *service.StatsService) *UserHandler {
	return &UserHandler{userService: us, statsService: ss}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
}

// RegisterAdminRoutes expects the router to already enforce the admin role.
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/stats", h.stats)
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithList(w, http.StatusOK, users)
}

func (h *UserHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.Collect(r.Context())
	if err != nil {
		common.RespondWithServiceError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, stats)
}
